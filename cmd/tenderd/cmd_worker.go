package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/tender-checklist/internal/workflows"
)

// ledgerService is the health service name reporting ledger database reachability.
const ledgerService = "tenderd.ledger"

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume tender jobs from the Temporal task queue",
	RunE:  runWorker,
}

func dialTemporal() (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Queue.TemporalHostPort,
		Namespace: cfg.Queue.TemporalNamespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("dial temporal %s: %w", cfg.Queue.TemporalHostPort, err)
	}
	return c, nil
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	tc, err := dialTemporal()
	if err != nil {
		return err
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Queue.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize: cfg.Queue.Workers,
	})
	workflows.Register(w, workflows.NewActivities(a.orchestrator, logger))

	// gRPC health + reflection for probes and grpcurl
	grpcServer := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.HealthAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.HealthAddr, err)
	}
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("health.serve.failed", "error", err)
			stop()
		}
	}()
	logger.Info("health.serving", "addr", cfg.Server.HealthAddr)

	if err := w.Start(); err != nil {
		grpcServer.Stop()
		return fmt.Errorf("start worker: %w", err)
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	logger.Info("worker.started",
		"task_queue", cfg.Queue.TaskQueue,
		"namespace", cfg.Queue.TemporalNamespace,
		"workers", cfg.Queue.Workers,
	)

	if a.ledgerDB != nil {
		go watchLedger(ctx, a, hs)
	}

	<-ctx.Done()
	logger.Info("worker.stopping")
	hs.Shutdown()
	w.Stop()
	grpcServer.GracefulStop()
	logger.Info("worker.stopped")
	return nil
}

// watchLedger reports ledger reachability under ledgerService every 30s.
func watchLedger(ctx context.Context, a *app, hs *health.Server) {
	t := time.NewTicker(30 * time.Second)
	defer t.Stop()
	for {
		status := healthpb.HealthCheckResponse_SERVING
		if err := a.ledgerDB.HealthCheck(ctx, 3*time.Second); err != nil {
			logger.Warn("ledger.health.failed", "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus(ledgerService, status)

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
