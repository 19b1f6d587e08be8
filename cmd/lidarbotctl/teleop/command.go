package teleop

import (
	"fmt"
	"net/http"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func Command(client *http.Client) *cobra.Command {
	var every time.Duration
	var speed float64

	cmd := &cobra.Command{
		Use:   "teleop",
		Short: "Drive the robot with the keyboard while the microcontroller is disabled",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			if speed <= 0 || speed > 1 {
				return fmt.Errorf("speed: must be in range ]0,1]")
			}

			m := newTUI(client, every, speed)
			_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
			if err != nil {
				return err
			}

			// Do not rely on the joystick timeout to stop the robot.
			return m.send(0, 0)
		},
	}
	cmd.Flags().DurationVarP(&every, "every", "e", 100*time.Millisecond, "Joystick refresh period, must be below the daemon's joystick_timeout")
	cmd.Flags().Float64VarP(&speed, "speed", "s", 0.5, "Initial speed in range ]0,1]")

	return cmd
}
