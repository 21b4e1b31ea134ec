// Package backend serves a stand-in prediction service speaking the same
// HTTP contract as the real one.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/kilianp07/housepredict/config"
	"github.com/kilianp07/housepredict/core/model"
	"github.com/kilianp07/housepredict/infra/logger"
)

// HealthMessage is returned by GET /.
const HealthMessage = "Backend is running!"

// Server exposes GET / and POST /predict.
type Server struct {
	addr     string
	est      Estimator
	limiter  *rate.Limiter
	log      logger.Logger
	srv      *http.Server
	requests *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewServer creates a server registering its metrics on the default
// Prometheus registerer.
func NewServer(cfg config.MockConfig, est Estimator) *Server {
	return NewServerWithRegistry(cfg, est, prometheus.DefaultRegisterer)
}

// NewServerWithRegistry creates a server and registers metrics on reg. A nil
// registerer defaults to the global one and a nil estimator to
// DefaultEstimator.
func NewServerWithRegistry(cfg config.MockConfig, est Estimator, reg prometheus.Registerer) *Server {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if est == nil {
		est = DefaultEstimator()
	}
	log := logger.New("prediction-backend")

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "backend_predict_requests_total",
		Help: "Prediction requests handled by the backend",
	}, []string{"code"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "backend_predict_duration_seconds",
		Help:    "Time spent computing a prediction",
		Buckets: prometheus.DefBuckets,
	})

	if err := reg.Register(requests); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if exist, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				requests = exist
			} else {
				log.Errorf("existing collector for backend_predict_requests_total has wrong type %T", are.ExistingCollector)
			}
		}
	}
	if err := reg.Register(latency); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if exist, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				latency = exist
			} else {
				log.Errorf("existing collector for backend_predict_duration_seconds has wrong type %T", are.ExistingCollector)
			}
		}
	}

	s := &Server{
		addr:     cfg.Address,
		est:      est,
		log:      log,
		requests: requests,
		latency:  latency,
	}
	if cfg.RatePerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst)
	}
	return s
}

// Handler returns the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleHealth)
	mux.HandleFunc("/predict", s.handlePredict)
	return withCORS(mux)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		s.writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": HealthMessage})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.reply(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
		return
	}
	if s.limiter != nil && !s.limiter.Allow() {
		s.reply(w, http.StatusTooManyRequests, map[string]any{"error": "rate limit exceeded"})
		return
	}
	start := time.Now()
	fields, err := decodeFeatures(r)
	if err != nil {
		s.log.Warnf("rejecting request %s: %v", r.Header.Get("X-Request-ID"), err)
		s.reply(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	price, err := s.est.Estimate(fields)
	if err != nil {
		s.reply(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	s.latency.Observe(time.Since(start).Seconds())
	s.log.Debugw("prediction served", map[string]any{"request_id": r.Header.Get("X-Request-ID"), "prediction": price})
	s.reply(w, http.StatusOK, map[string]any{"prediction": price})
}

func (s *Server) reply(w http.ResponseWriter, status int, body any) {
	s.requests.WithLabelValues(strconv.Itoa(status)).Inc()
	s.writeJSON(w, status, body)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Errorf("write response: %v", err)
	}
}

// decodeFeatures reads the five features from a JSON object. Numbers may be
// sent as JSON numbers or numeric strings.
func decodeFeatures(r *http.Request) (model.ValidatedFields, error) {
	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return model.ValidatedFields{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	values := make(map[model.FieldName]float64, model.FieldCount)
	for _, f := range model.FieldNames {
		raw, ok := body[f.String()]
		if !ok || raw == nil {
			return model.ValidatedFields{}, fmt.Errorf("missing feature %s", f)
		}
		n, err := number(raw)
		if err != nil {
			return model.ValidatedFields{}, fmt.Errorf("feature %s: %w", f, err)
		}
		values[f] = n
	}
	return model.ValidatedFields{
		OverallQual: int(values[model.OverallQual]),
		GrLivArea:   values[model.GrLivArea],
		GarageCars:  int(values[model.GarageCars]),
		YearBuilt:   int(values[model.YearBuilt]),
		TotalBsmtSF: values[model.TotalBsmtSF],
	}, nil
}

func number(v any) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case string:
		return strconv.ParseFloat(x, 64)
	default:
		return 0, fmt.Errorf("not a number: %v", v)
	}
}

// Addr returns the listening address once Start has been called.
func (s *Server) Addr() string { return s.addr }

// Start runs the HTTP server until the context is canceled. Ready, when not
// nil, is closed once the listener is bound.
func (s *Server) Start(ctx context.Context, ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = ln.Addr().String()
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("shutdown server: %v", err)
		}
		cancel()
	}()
	s.log.Infof("prediction backend listening on %s", s.addr)
	if ready != nil {
		close(ready)
	}
	err = s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
