package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"jobmate/harvester-service/internal/api"
	"jobmate/harvester-service/internal/grpcserver"
	"jobmate/harvester-service/internal/logger"
	"jobmate/harvester-service/internal/scheduler"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run sessions on a schedule and expose the status API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := a.log

	d, err := buildDeps(ctx, a.cfg, log)
	if err != nil {
		return err
	}
	defer d.close(log)

	// ── Scheduler ────────────────────────────────────────────────────────────
	sched := scheduler.New(d.worker, a.cfg.Interval, log.With(logger.String("component", "scheduler")))
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	// ── HTTP server ──────────────────────────────────────────────────────────
	h := api.NewHandler(d.store, sched, d.registry, version, log)
	srv := api.NewServer(a.cfg.HTTPPort, h, log, a.debug)
	httpErr := srv.StartAsync()

	// ── gRPC health ──────────────────────────────────────────────────────────
	var grpcErr chan error
	if a.cfg.GRPCPort != "" {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", a.cfg.GRPCPort))
		if err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
		gs := grpcserver.NewServer(sched, log)
		go gs.Watch(ctx, 5*time.Second)
		grpcErr = make(chan error, 1)
		go func() { grpcErr <- gs.Serve(lis) }()
		defer gs.Stop()
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-httpErr:
		if err != nil {
			return err
		}
	case err := <-grpcErr:
		if err != nil {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(parent), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		log.Warn("HTTP shutdown error", logger.Error(err))
	}
	return nil
}
