package showspeed

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-analyze/charts"
	"github.com/mattn/go-sixel"
	"github.com/mdouchement/lidarbot"
	"github.com/mdouchement/lidarbot/lidar"
	"github.com/spf13/cobra"
)

func Command() *cobra.Command {
	var cpath string
	var resolution int

	cmd := &cobra.Command{
		Use:   "show-speed",
		Short: "Show the speed and motor outputs according to the MOVE_RATE pulses",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, args []string) error {
			cfg, err := lidarbot.Load(cpath)
			if errors.Is(err, fs.ErrNotExist) {
				cfg = lidarbot.Default()
				err = cfg.Validate()
			}
			if err != nil {
				return err
			}

			//
			// Compute points
			//

			// Past this range the speed is saturated.
			maxTicks := int(float64(cfg.MaxPulse) * (lidarbot.MaxSpeedScalar - lidarbot.MinSpeedScalar) * 1.5)
			maxTicks = max(maxTicks, 10)

			speed := charts.LineSeries{Name: "speed"}
			forward := charts.LineSeries{Name: "forward output"}
			turn := charts.LineSeries{Name: "turn output (left)"}

			var labels []string
			for ticks := range maxTicks + 1 {
				s := lidarbot.SpeedScalar(ticks, cfg.MaxPulse)
				speed.Values = append(speed.Values, s)

				left, _ := lidarbot.ArcadeMix(lidarbot.Decide(lidar.MoveForward, s), cfg.SquaredInputs)
				forward.Values = append(forward.Values, left)

				left, _ = lidarbot.ArcadeMix(lidarbot.Decide(lidar.MoveTurnClockwise, s), cfg.SquaredInputs)
				turn.Values = append(turn.Values, left)

				labels = append(labels, strconv.Itoa(ticks))
			}

			//
			// Render chart
			//

			opt := charts.NewLineChartOptionWithSeries(charts.LineSeriesList{speed, forward, turn})
			opt.Theme = charts.GetTheme(charts.ThemeVividDark)
			opt.Padding = charts.NewBox(20, 20, 20, 20)
			opt.Title.Text = fmt.Sprintf("%s: max_pulse=%d squared_inputs=%t", cfg.Firmware.Name, cfg.MaxPulse, cfg.SquaredInputs)
			opt.Title.FontStyle.FontSize = 16
			opt.Title.Offset = charts.OffsetLeft
			opt.Legend = charts.LegendOption{
				Show:     lidarbot.ToPtr(true),
				Offset:   charts.OffsetCenter,
				Vertical: lidarbot.ToPtr(true),
				Padding:  charts.NewBox(0, 0, 0, 20),
			}
			opt.Symbol = charts.SymbolNone
			opt.LineStrokeWidth = 2
			opt.XAxis.Show = lidarbot.ToPtr(true)
			opt.XAxis.Title = "pulses / cycle"
			opt.XAxis.Labels = labels
			opt.XAxis.LabelCount = 10
			opt.YAxis = []charts.YAxisOption{
				{
					Show:                   lidarbot.ToPtr(true),
					Min:                    lidarbot.ToPtr(float64(-1)),
					Max:                    lidarbot.ToPtr(float64(1)),
					RangeValuePaddingScale: lidarbot.ToPtr(float64(0)),
				},
			}
			p := charts.NewPainter(charts.PainterOptions{
				OutputFormat: charts.ChartOutputPNG,
				Width:        resolution,
				Height:       int(float64(resolution) / (16.0 / 9.0)),
			})

			if err = p.LineChart(opt); err != nil {
				return fmt.Errorf("chart: %w", err)
			}

			mPNG, err := p.Bytes()
			if err != nil {
				return fmt.Errorf("chart: %w", err)
			}

			m, _, err := image.Decode(bytes.NewReader(mPNG))
			if err != nil {
				return fmt.Errorf("chart: %w", err)
			}

			codec := sixel.NewEncoder(os.Stdout)
			return codec.Encode(m)
		},
	}
	cmd.Flags().StringVarP(&cpath, "config", "c", "/etc/lidarbotd/lidarbotd.yml", "Configfile path")
	cmd.Flags().IntVarP(&resolution, "resolution", "r", 1000, "The width size in pixel of the graph")

	return cmd
}
