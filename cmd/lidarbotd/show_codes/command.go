package showcodes

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mdouchement/lidarbot/lidar"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v4"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00afff")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

func Command() *cobra.Command {
	var variant string
	var format string

	cmd := &cobra.Command{
		Use:   "show-codes",
		Short: "Show the pins, move codes and error codes shared with the microcontroller",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			variants := lidar.Variants()
			if variant != "" {
				v, err := lidar.LookupVariant(variant)
				if err != nil {
					return err
				}
				variants = []lidar.Variant{v}
			}

			for _, v := range variants {
				if err := v.Validate(); err != nil {
					return fmt.Errorf("%s: %w", v.Name, err)
				}
			}

			switch format {
			case "yaml":
				codec := yaml.NewEncoder(os.Stdout)
				defer codec.Close()
				return codec.Encode(variants)
			case "json":
				codec := json.NewEncoder(os.Stdout)
				codec.SetIndent("", "  ")
				return codec.Encode(variants)
			case "table":
				for _, v := range variants {
					render(v)
				}
				return nil
			default:
				return fmt.Errorf("unknown format %q (table|yaml|json)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&variant, "variant", "v", "", "Only show the given variant (robot_move2|smooth_puppy_dog)")
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table|yaml|json)")

	return cmd
}

func render(v lidar.Variant) {
	fmt.Println(titleStyle.Render(v.Name))
	fmt.Println()

	//
	// Pins
	//

	var rows [][]string
	for _, r := range lidar.AllRoles() {
		rows = append(rows, []string{r.String(), v.Pins[r].String(), r.Direction().String()})
	}
	fmt.Println(newTable("Role", "Pin", "Direction").Rows(rows...).Render())

	//
	// Moves
	//

	rows = rows[:0]
	for _, m := range v.Moves {
		l, err := m.Lines()
		if err != nil {
			continue
		}
		rows = append(rows, []string{strconv.Itoa(int(m)), m.String(), level(l.Move), level(l.Turn), level(l.Direction)})
	}
	fmt.Println(newTable("Code", "Move", "MOVE", "TURN", "FORWARD_CW").Rows(rows...).Render())

	//
	// Errors
	//

	if v.HasErrorCodes() {
		rows = rows[:0]
		for _, e := range v.Errors {
			rows = append(rows, []string{strconv.Itoa(int(e)), e.String(), e.Severity().String(), e.Error()})
		}
		fmt.Println(newTable("Code", "Error", "Severity", "Description").Rows(rows...).Render())

		fmt.Printf("Degree offset: %d° (%d packets of %d readings)\n", v.DegreeOffset, v.DegreeOffset/lidar.ReadingsPerPacket, lidar.ReadingsPerPacket)
	} else {
		fmt.Println(dimStyle.Render("No error codes nor calibration in this variant"))
	}
	fmt.Println()
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func level(high bool) string {
	if high {
		return "HIGH"
	}
	return "low"
}
