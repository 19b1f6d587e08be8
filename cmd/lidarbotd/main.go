package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"regexp"
	"runtime"
	"syscall"
	"time"

	"github.com/mdouchement/lidarbot"
	"github.com/mdouchement/lidarbot/board"
	"github.com/mdouchement/lidarbot/cmd/lidarbotd/setup"
	showcodes "github.com/mdouchement/lidarbot/cmd/lidarbotd/show_codes"
	showspeed "github.com/mdouchement/lidarbot/cmd/lidarbotd/show_speed"
	"github.com/mdouchement/lidarbot/lidar"
	"github.com/mdouchement/lidarbot/modbus"
	"github.com/mdouchement/logger"
	"github.com/spf13/cobra"
)

var (
	version  = "dev"
	revision = "none"
	date     = "unknown"

	cpath string
	dummy bool
)

func main() {
	cmd := &cobra.Command{
		Use:     "lidarbotd",
		Short:   "Host controller of a LIDAR driven robot",
		Version: fmt.Sprintf("%s - build %.7s @ %s - %s", version, revision, date, runtime.Version()),
		Args:    cobra.NoArgs,
		RunE:    daemon,
	}
	cmd.Flags().StringVarP(&cpath, "config", "c", "/etc/lidarbotd/lidarbotd.yml", "Configfile path")
	cmd.Flags().BoolVarP(&dummy, "dummy", "", false, "Start lidarbotd with a simulated microcontroller and drivetrain")
	cmd.AddCommand(showcodes.Command())
	cmd.AddCommand(showspeed.Command())
	cmd.AddCommand(setup.Command())
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Version for lidarbotd",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Println(cmd.Version)
		},
	})

	if err := cmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func daemon(_ *cobra.Command, args []string) error {
	cfg, err := lidarbot.Load(cpath)
	if err != nil {
		return err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	h := logger.NewSlogTextHandler(os.Stdout, &logger.SlogTextOption{
		Level:            level,
		ForceColors:      true,
		ForceFormatting:  true,
		PrefixRE:         regexp.MustCompile(`^(\[.*?\])\s`),
		DisableTimestamp: true, // Provided by journalctl
	})
	log := logger.WrapSlogHandler(h)
	ctx := logger.WithLogger(context.Background(), log)

	log.Infof("lidarbotd version %s", version)
	log.Infof("Firmware variant %s - degree offset %d - error codes: %t", cfg.Firmware.Name, cfg.Firmware.DegreeOffset, cfg.Firmware.HasErrorCodes())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		brd       lidarbot.Board
		train     lidarbot.Drivetrain
		telemetry lidarbot.Telemetry
	)

	if dummy {
		b := lidarbot.NewDummyBoard()
		if cfg.Debug {
			b.SetLogger(log)
		}
		defer b.Close()

		go b.Run(ctx, nil, time.Second)

		brd = b
		train = lidarbot.NewDummyDrivetrain()
		telemetry = b
	} else {
		if err := board.Init(); err != nil {
			return err
		}

		b, err := board.Open(cfg.HostPins)
		if err != nil {
			return fmt.Errorf("board: %w", err)
		}
		defer b.Close()

		d, err := board.OpenDrivetrain(cfg.Drivetrain)
		if err != nil {
			return fmt.Errorf("drivetrain: %w", err)
		}
		defer d.Close()

		brd = b
		train = d

		if cfg.Telemetry.Enabled {
			link, err := openLink(cfg.Telemetry.Port)
			if err != nil {
				return fmt.Errorf("telemetry: %w", err)
			}
			if cfg.Debug {
				link.SetLogger(log)
			}
			defer link.Close()

			log.Infof("Microcontroller port `%s`", link.Port())
			telemetry = link
		}
	}

	controller, exporter, err := newController(cfg, brd, train, telemetry)
	if err != nil {
		return err
	}
	if exporter != nil {
		defer exporter.Close()
		log.Infof("Exporting status to modbus %s (unit %d @ %d)", cfg.Modbus.Endpoint, cfg.Modbus.UnitID, cfg.Modbus.Address)
	}

	controller.Launch(ctx)

	sigctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-sigctx.Done()
	log.Info("Gracefully shutdown")

	cancel()
	<-controller.Done()
	return nil
}

// newController dials the optional exporter before the controller takes the socket,
// so a failed dial leaves nothing behind.
func newController(cfg lidarbot.Config, brd lidarbot.Board, train lidarbot.Drivetrain, telemetry lidarbot.Telemetry) (*lidarbot.Controller, *modbus.Exporter, error) {
	var exporter *modbus.Exporter
	if cfg.Modbus.Endpoint != "" {
		var err error
		exporter, err = modbus.Dial(cfg.Modbus)
		if err != nil {
			return nil, nil, err
		}
	}

	controller, err := lidarbot.New(cfg, brd, train)
	if err != nil {
		if exporter != nil {
			exporter.Close()
		}
		return nil, nil, err
	}

	if telemetry != nil {
		controller.SetTelemetry(telemetry)
	}
	if exporter != nil {
		controller.SetExporter(exporter)
	}

	return controller, exporter, nil
}

func openLink(port string) (*lidar.Link, error) {
	if port == "" {
		return lidar.OpenAuto()
	}
	return lidar.Open(port)
}
