package setup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/huh"
	"github.com/mdouchement/lidarbot"
	"github.com/mdouchement/lidarbot/lidar"
	"github.com/spf13/cobra"
	"go.bug.st/serial"
	"go.yaml.in/yaml/v4"
)

const (
	portAuto     = "auto"
	portDisabled = "disabled"
)

func Command() *cobra.Command {
	var cpath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactively write the configuration file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := lidarbot.Load(cpath)
			if errors.Is(err, fs.ErrNotExist) {
				cfg, err = lidarbot.Default(), nil
			}
			if err != nil {
				return err
			}

			var variants []huh.Option[string]
			for _, v := range lidar.Variants() {
				label := v.Name + " (pins & moves)"
				if v.HasErrorCodes() {
					label = v.Name + " (pins, moves, error codes & calibration)"
				}
				variants = append(variants, huh.NewOption(label, v.Name))
			}

			ports := []huh.Option[string]{
				huh.NewOption("Auto-detect the microcontroller", portAuto),
				huh.NewOption("No telemetry", portDisabled),
			}
			names, err := serial.GetPortsList()
			if err != nil {
				return fmt.Errorf("serial: %w", err)
			}
			for _, name := range names {
				ports = append(ports, huh.NewOption(name, name))
			}

			port := portDisabled
			if cfg.Telemetry.Enabled {
				port = portAuto
				if cfg.Telemetry.Port != "" {
					port = cfg.Telemetry.Port
				}
			}

			source := string(cfg.SpeedSource)
			speed := strconv.FormatFloat(cfg.Speed, 'f', -1, 64)
			var confirm bool

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewSelect[string]().
						Title("Which firmware runs on the microcontroller?").
						Options(variants...).
						Value(&cfg.Variant),
					huh.NewSelect[string]().
						Title("Where does the drive speed come from?").
						Options(
							huh.NewOption("Fixed speed", string(lidarbot.SpeedSourceFixed)),
							huh.NewOption("MOVE_RATE pulses", string(lidarbot.SpeedSourcePulses)),
						).
						Value(&source),
					huh.NewInput().
						Title("Fixed speed in ]0,1]").
						Value(&speed).
						Validate(func(s string) error {
							v, err := strconv.ParseFloat(s, 64)
							if err != nil || v <= 0 || v > 1 {
								return errors.New("must be a number in ]0,1]")
							}
							return nil
						}),
					huh.NewSelect[string]().
						Title("Serial telemetry").
						Options(ports...).
						Value(&port),
				),
				huh.NewGroup(
					huh.NewConfirm().
						Title(fmt.Sprintf("Write %s?", cpath)).
						Affirmative("Write").
						Negative("Cancel").
						Value(&confirm),
				),
			)

			if err := form.Run(); err != nil {
				return err
			}
			if !confirm {
				return nil
			}

			cfg.SpeedSource = lidarbot.SpeedSource(source)
			cfg.Speed, _ = strconv.ParseFloat(speed, 64)
			cfg.Telemetry = lidarbot.TelemetryConfig{}
			switch port {
			case portDisabled:
			case portAuto:
				cfg.Telemetry.Enabled = true
			default:
				cfg.Telemetry.Enabled = true
				cfg.Telemetry.Port = port
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			payload, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}

			if err = os.MkdirAll(filepath.Dir(cpath), 0o755); err != nil {
				return err
			}

			if err = os.WriteFile(cpath, payload, 0o644); err != nil {
				return err
			}

			fmt.Println("Configuration written to", cpath)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cpath, "config", "c", "/etc/lidarbotd/lidarbotd.yml", "Configfile path")

	return cmd
}
