// ============================================================================
// TaskQueue CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Cobra-based command line interface, adapted from the teacher's
//          beaver-raft CLI (run/enqueue/status) down to this module's
//          narrower surface: serve/submit/status over a WorkerSet exposed
//          via internal/rpcgateway.
//
// Command Structure:
//   taskqueued                     # Root command
//   ├── serve                      # Start the worker set + gRPC gateway + metrics
//   │   └── --config, -c          # Specify config file
//   ├── submit                     # Submit one task to a running gateway
//   │   ├── --addr                # Gateway address
//   │   ├── --type                # Task type
//   │   └── --key                 # Routing key (empty = round robin)
//   ├── status                     # Query a running gateway's status
//   │   └── --addr                # Gateway address
//   ├── --version                  # Display version information
//   └── --help                     # Display help information
//
// Signal Handling:
//   serve captures SIGINT/SIGTERM, gracefully stops the gateway and then
//   destroys the worker set, same as the teacher's run command. The
//   metrics server is not stopped; it ends when the process exits.
//
// ============================================================================

package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/dingodb/dingo-taskqueue/internal/config"
	"github.com/dingodb/dingo-taskqueue/internal/metrics"
	"github.com/dingodb/dingo-taskqueue/internal/rpcgateway"
	"github.com/dingodb/dingo-taskqueue/pkg/executor"
)

var log = slog.Default()

var configFile string

// BuildCLI assembles the taskqueued root command and its subcommands.
func BuildCLI(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "taskqueued",
		Short:   "taskqueued: a reusable task-execution core for DingoDB",
		Long:    "taskqueued runs a pool of single-consumer execution queues with pluggable routing, backpressure and retry, exposed over a small gRPC gateway.",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	rootCmd.AddCommand(buildServeCommand())
	rootCmd.AddCommand(buildSubmitCommand())
	rootCmd.AddCommand(buildStatusCommand())

	return rootCmd
}

func buildServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the worker set, gRPC gateway and metrics server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configFile)
		},
	}
	return cmd
}

func loadConfig(path string) config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Warn("config load failed, using defaults", "path", path, "error", err)
		return config.Default()
	}
	return cfg
}

func runServe(path string) error {
	cfg := loadConfig(path)
	log.Info("starting taskqueued", "worker_num", cfg.WorkerSet.WorkerNum, "max_pending", cfg.WorkerSet.MaxPending)

	registry := metrics.NewRegistry(prometheus.DefaultRegisterer)
	set := executor.NewWorkerSet(cfg.WorkerSet.Name, cfg.WorkerSet.WorkerNum, cfg.WorkerSet.MaxPending, cfg.WorkerSet.UseTrace, registry)
	if !set.Init() {
		return fmt.Errorf("taskqueued: worker set failed to initialize")
	}

	metricsPort, err := portOf(cfg.MetricsAddr)
	if err != nil {
		set.Destroy()
		return fmt.Errorf("taskqueued: metrics_addr: %w", err)
	}
	go func() {
		if err := metrics.StartServer(metricsPort); err != nil {
			log.Warn("metrics server stopped", "error", err)
		}
	}()

	srv, err := startGateway(cfg.GatewayAddr, set)
	if err != nil {
		set.Destroy()
		return err
	}

	log.Info("taskqueued started", "gateway_addr", cfg.GatewayAddr, "metrics_addr", cfg.MetricsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, stopping gracefully")
	srv.GracefulStop()
	set.Destroy()
	log.Info("taskqueued stopped")
	return nil
}

func portOf(addr string) (int, error) {
	_, portStr, found := strings.Cut(addr, ":")
	if !found {
		return 0, fmt.Errorf("address %q has no port", addr)
	}
	return strconv.Atoi(portStr)
}

func startGateway(addr string, set *executor.WorkerSet) (*grpc.Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("taskqueued: listen on %s: %w", addr, err)
	}

	grpcServer := grpc.NewServer()
	gw := rpcgateway.NewGateway(set)
	rpcgateway.RegisterTaskGatewayServer(grpcServer, gw)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Warn("gateway server stopped", "error", err)
		}
	}()

	return grpcServer, nil
}

func buildSubmitCommand() *cobra.Command {
	var addr, taskType, routingKey string
	var payload string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit one task to a running gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubmit(addr, taskType, routingKey, []byte(payload))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:7070", "gateway address")
	cmd.Flags().StringVar(&taskType, "type", "generic", "task type")
	cmd.Flags().StringVar(&routingKey, "key", "", "routing key (empty = round robin)")
	cmd.Flags().StringVar(&payload, "payload", "", "task payload bytes")

	return cmd
}

func dial(addr string) (*grpc.ClientConn, error) {
	return grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func runSubmit(addr, taskType, routingKey string, payload []byte) error {
	conn, err := dial(addr)
	if err != nil {
		return fmt.Errorf("taskqueued: dial %s: %w", addr, err)
	}
	defer conn.Close()

	client := rpcgateway.NewTaskGatewayClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.SubmitTask(ctx, &rpcgateway.SubmitTaskRequest{
		TaskType:   taskType,
		RoutingKey: routingKey,
		Payload:    payload,
	})
	if err != nil {
		return fmt.Errorf("taskqueued: submit: %w", err)
	}

	if !resp.Accepted {
		return fmt.Errorf("taskqueued: rejected: %s", resp.Message)
	}
	log.Info("task accepted", "task_id", resp.TaskID)
	return nil
}

func buildStatusCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Query a running gateway's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:7070", "gateway address")
	return cmd
}

func runStatus(addr string) error {
	conn, err := dial(addr)
	if err != nil {
		return fmt.Errorf("taskqueued: dial %s: %w", addr, err)
	}
	defer conn.Close()

	client := rpcgateway.NewTaskGatewayClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resp, err := client.GetStatus(ctx, &rpcgateway.GetStatusRequest{})
	if err != nil {
		return fmt.Errorf("taskqueued: status: %w", err)
	}

	fmt.Printf("workers:   %d\n", resp.WorkerCount)
	fmt.Printf("accepted:  %d\n", resp.TotalAccepted)
	fmt.Printf("pending:   %d\n", resp.Pending)
	for _, w := range resp.Workers {
		fmt.Printf("  worker[%d]: pending=%d traces=%v\n", w.Index, w.Pending, w.Traces)
	}
	return nil
}
