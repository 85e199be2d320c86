package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/hydro-controller/internal/config"
	"github.com/thatsimonsguy/hydro-controller/internal/controller"
	"github.com/thatsimonsguy/hydro-controller/internal/i2c"
	"github.com/thatsimonsguy/hydro-controller/internal/logging"
	"github.com/thatsimonsguy/hydro-controller/system/shutdown"
	"github.com/thatsimonsguy/hydro-controller/system/startup"
)

func main() {
	cfg, err := config.Load(os.Args[0], os.Args[1:])
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		shutdown.Exit(err)
		return
	}

	logFile, err := logging.Init(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialise logging")
		shutdown.Exit(err)
		return
	}

	rig, err := startup.Start(cfg, openBus)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start relay controller")
		logFile.Close()
		shutdown.Exit(err)
		return
	}

	loop := controller.New(rig.Bank, cfg.ZoneConfigs(), controller.Options{
		Tick:     cfg.Timing.Tick,
		Settle:   cfg.Timing.Settle,
		Location: rig.Location,
		Sink:     rig.Sink,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = loop.Run(ctx)
	stop()

	if cerr := rig.Close(); cerr != nil {
		log.Warn().Err(cerr).Msg("Failed to close resources")
	}
	logFile.Close()
	shutdown.Exit(err)
}

func openBus(port string) (startup.BusCloser, error) {
	bus, err := i2c.Open(port)
	if err != nil {
		return nil, err
	}
	return bus, nil
}
