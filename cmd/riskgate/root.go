package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidleathers/change-risk-gate/internal/infrastructure/config"
	"github.com/davidleathers/change-risk-gate/internal/infrastructure/telemetry"
	"github.com/davidleathers/change-risk-gate/internal/metrics"
)

// app carries what every subcommand needs once flags and config are resolved
type app struct {
	configPath  string
	metricsFile string

	cfg      *config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	recorder *metrics.Recorder
	otel     *telemetry.Provider
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "riskgate",
		Short:         "Assess the risk of proposed application changes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd.Context())
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default "+config.DefaultPath+" when present)")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file on exit")

	root.AddCommand(
		newAssessCommand(a),
		newAnalyzeCommand(a),
		newMigrateCommand(a),
		newVersionCommand(),
	)

	return root
}

func (a *app) init(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := telemetry.NewLogger(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return err
	}
	a.logger = logger.Named("riskgate")

	a.registry = prometheus.NewRegistry()
	a.recorder = metrics.NewRecorder(a.registry)

	otelCfg := telemetry.DefaultConfig()
	otelCfg.Enabled = cfg.Telemetry.Enabled
	otelCfg.ServiceName = cfg.Telemetry.ServiceName
	otelCfg.ServiceVersion = version
	otelCfg.Environment = cfg.Environment
	otelCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	otelCfg.SamplingRate = cfg.Telemetry.SamplingRate

	a.otel, err = telemetry.InitializeOpenTelemetry(ctx, otelCfg)
	return err
}

// close is safe to call when init never ran or failed part way
func (a *app) close(ctx context.Context) {
	if a.metricsFile != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsFile, a.registry); err != nil {
			a.logger.Warn("failed to write metrics file", zap.String("path", a.metricsFile), zap.Error(err))
		}
	}
	if a.otel != nil {
		if err := a.otel.Shutdown(ctx); err != nil {
			a.logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
