package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/api"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/backendwatch"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/buildinfo"
	"github.com/stefanpalsson415/parentcopy-new-sub002/internal/mqtt"
)

// Shutdown budgets.
const (
	httpShutdownTimeout = 10 * time.Second
	mqttShutdownTimeout = 5 * time.Second
)

func newServeCmd(gf *globalFlags, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), stdout, gf)
		},
	}
}

// runServe is the primary operating mode: it opens the stores, wires
// the dispatcher, starts the API server and the optional MQTT
// publisher, and blocks until a shutdown signal arrives.
//
// The shutdown sequence is:
//  1. SIGINT or SIGTERM cancels the context
//  2. The MQTT publisher announces offline and disconnects
//  3. The HTTP server drains in-flight requests and closes streams
//  4. Database connections are closed via defers
func runServe(ctx context.Context, stdout io.Writer, gf *globalFlags) error {
	cfg, logger, err := setup(gf, stdout)
	if err != nil {
		return err
	}
	logger.Info("starting Allie", "build", buildinfo.String(), "data_dir", cfg.DataDir)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("close stores failed", "error", err)
		}
	}()

	// Classification degrades to keyword routing while Ollama is down;
	// /health and the event stream say so.
	health := backendwatch.NewMonitor(ctx, a.bus, logger)
	defer health.Stop()
	health.Watch("ollama", a.ollama.Ping, backendwatch.DefaultSchedule())

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret not set, /v1 routes are unauthenticated")
	}
	server := api.NewServer(cfg.Listen.Address, cfg.Listen.Port, api.Options{
		Dispatcher: a.dispatcher,
		Collector:  a.collector,
		Ledger:     a.ledger,
		Board:      a.board,
		Docs:       a.docs,
		Bus:        a.bus,
		Health:     health,
		JWTSecret:  cfg.Auth.JWTSecret,
		RateLimit:  cfg.RateLimit,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.Start(gctx); err != nil {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down API server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.MQTT.Configured() {
		instanceID, err := mqtt.LoadOrCreateInstanceID(cfg.DataDir)
		if err != nil {
			return fmt.Errorf("mqtt instance id: %w", err)
		}
		pub := mqtt.New(cfg.MQTT, instanceID, a.bus, a.dispatcher, logger)
		g.Go(func() error {
			startErr := pub.Start(gctx)

			stopCtx, cancel := context.WithTimeout(context.Background(), mqttShutdownTimeout)
			defer cancel()
			if err := pub.Stop(stopCtx); err != nil {
				logger.Warn("mqtt shutdown failed", "error", err)
			}
			return startErr
		})
		logger.Info("MQTT publishing enabled", "broker", cfg.MQTT.Broker, "instance_id", instanceID)
	}

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Allie stopped")
	return nil
}
