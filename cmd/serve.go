package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/housepredict/backend"
	"github.com/kilianp07/housepredict/infra/logger"
	"github.com/kilianp07/housepredict/infra/metrics"
)

var serveAddr string

var serveMockCmd = &cobra.Command{
	Use:   "serve-mock",
	Short: "Run a local stand-in for the prediction service",
	RunE:  runServeMock,
}

func init() {
	serveMockCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address, overrides mock.address")
	rootCmd.AddCommand(serveMockCmd)
}

func runServeMock(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Mock.Address = serveAddr
	}
	if cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, cfg.Metrics.PrometheusPort); err != nil {
				logger.New("main").Errorf("prom server: %v", err)
			}
		}()
	}
	return backend.NewServer(cfg.Mock, backend.DefaultEstimator()).Start(ctx, nil)
}
