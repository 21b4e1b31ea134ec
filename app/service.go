package app

import (
	"context"
	"fmt"
	"io"

	"github.com/kilianp07/housepredict/config"
	"github.com/kilianp07/housepredict/core/controller"
	coremetrics "github.com/kilianp07/housepredict/core/metrics"
	"github.com/kilianp07/housepredict/core/model"
	"github.com/kilianp07/housepredict/infra/logger"
	"github.com/kilianp07/housepredict/infra/metrics"
	"github.com/kilianp07/housepredict/infra/predictor"
)

// Service wires the prediction controller to its client and metrics sinks.
type Service struct {
	Controller  *controller.Controller
	Client      *predictor.HTTPClient
	sink        coremetrics.MetricsSink
	log         logger.Logger
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.MetricsSink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	sink := metrics.Combine(sinks...)

	client := predictor.NewHTTPClient(cfg.Predictor.BaseURL, cfg.Predictor.Timeout(),
		predictor.WithLogger(logger.New("predictor")))
	ctrl, err := controller.New(client,
		controller.WithIntervalPolicy(cfg.Interval.Policy()),
		controller.WithMetrics(sink),
		controller.WithLogger(logger.New("controller")),
	)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	return &Service{
		Controller:  ctrl,
		Client:      client,
		sink:        sink,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}, nil
}

// ServeMetrics exposes /metrics in the background when Prometheus is enabled.
// The server stops with ctx.
func (s *Service) ServeMetrics(ctx context.Context) {
	if !s.promEnabled {
		return
	}
	go func() {
		if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
}

// Predict fills the form with values and runs one submission cycle. The
// returned snapshot carries either the outcome or the user-facing error.
func (s *Service) Predict(ctx context.Context, values map[model.FieldName]string) (controller.Snapshot, error) {
	for _, f := range model.FieldNames {
		if err := s.Controller.SetField(f, values[f]); err != nil {
			return controller.Snapshot{}, err
		}
	}
	if err := s.Controller.Submit(ctx); err != nil {
		return controller.Snapshot{}, err
	}
	return s.Controller.Snapshot(), nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	err := s.Controller.Close()
	if c, ok := s.sink.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
