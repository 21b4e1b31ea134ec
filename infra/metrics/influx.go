package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/housepredict/core/metrics"
	"github.com/kilianp07/housepredict/infra/logger"
)

// InfluxSink writes submission events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordSubmission writes one point per resolved cycle.
func (s *InfluxSink) RecordSubmission(ev coremetrics.SubmissionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("prediction_submission").
		AddTag("result", ev.Result).
		AddTag("component", "prediction_controller")
	if ev.RequestID != "" {
		p = p.AddTag("request_id", ev.RequestID)
	}
	p = p.AddField("latency_ms", round3(ev.Latency.Seconds()*1000))
	if ev.Succeeded() {
		p = p.AddTag("interval_source", string(ev.Outcome.IntervalSource)).
			AddField("predicted_price", round3(ev.Outcome.PredictedPrice)).
			AddField("lower_bound", round3(ev.Outcome.LowerBound)).
			AddField("upper_bound", round3(ev.Outcome.UpperBound))
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordValidationFailure writes the field that blocked a submission.
func (s *InfluxSink) RecordValidationFailure(ev coremetrics.ValidationFailureEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	field := ev.Field
	if field == "" {
		field = "incomplete"
	}
	p := write.NewPointWithMeasurement("prediction_validation_failure").
		AddTag("field", field).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
