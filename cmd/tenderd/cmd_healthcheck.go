package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var healthFlags struct {
	addr    string
	service string
	timeout time.Duration
}

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Probe a running worker's gRPC health endpoint",
	RunE:  runHealthcheck,
}

func init() {
	f := healthcheckCmd.Flags()
	f.StringVar(&healthFlags.addr, "addr", "", "worker health address (default HEALTH_ADDR)")
	f.StringVar(&healthFlags.service, "service", "", "health service name; "+ledgerService+" checks the ledger")
	f.DurationVar(&healthFlags.timeout, "timeout", 3*time.Second, "probe timeout")
}

func runHealthcheck(cmd *cobra.Command, _ []string) error {
	addr := healthFlags.addr
	if addr == "" {
		addr = cfg.Server.HealthAddr
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), healthFlags.timeout)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: healthFlags.service})
	if err != nil {
		return fmt.Errorf("health %s: %w", addr, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), resp.GetStatus().String())
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("health %s: %s", addr, resp.GetStatus())
	}
	return nil
}
