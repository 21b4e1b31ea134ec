package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/housepredict/config"
	"github.com/kilianp07/housepredict/core/model"
	"github.com/kilianp07/housepredict/infra/predictor"
)

func newTestServer(t *testing.T, cfg config.MockConfig) (*Server, *httptest.Server) {
	t.Helper()
	s := NewServerWithRegistry(cfg, DefaultEstimator(), prometheus.NewRegistry())
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, url string, body any) (int, map[string]any) {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url+"/predict", "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return resp.StatusCode, out
}

var features = map[string]any{
	"OverallQual": 7,
	"GrLivArea":   1500,
	"GarageCars":  2,
	"YearBuilt":   2005,
	"TotalBsmtSF": 1000,
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, config.MockConfig{})
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"message": HealthMessage}, out); diff != "" {
		t.Fatalf("health body mismatch (-want +got):\n%s", diff)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("cors header %q", got)
	}
}

func TestPredict(t *testing.T) {
	s, ts := newTestServer(t, config.MockConfig{})
	status, out := post(t, ts.URL, features)
	if status != http.StatusOK {
		t.Fatalf("status %d: %v", status, out)
	}
	if diff := cmp.Diff(map[string]any{"prediction": 323750.0}, out); diff != "" {
		t.Fatalf("prediction mismatch (-want +got):\n%s", diff)
	}
	if got := testutil.ToFloat64(s.requests.WithLabelValues("200")); got != 1 {
		t.Fatalf("expected one counted request, got %v", got)
	}
}

func TestPredictAcceptsNumericStrings(t *testing.T) {
	_, ts := newTestServer(t, config.MockConfig{})
	body := map[string]any{}
	for k, v := range features {
		body[k] = v
	}
	body["GrLivArea"] = "1500"
	status, out := post(t, ts.URL, body)
	if status != http.StatusOK || out["prediction"] != 323750.0 {
		t.Fatalf("unexpected reply %d %v", status, out)
	}
}

func TestPredictRejectsBadFeatures(t *testing.T) {
	cases := map[string]func(map[string]any){
		"missing":     func(m map[string]any) { delete(m, "YearBuilt") },
		"null":        func(m map[string]any) { m["GarageCars"] = nil },
		"non numeric": func(m map[string]any) { m["TotalBsmtSF"] = "big" },
		"bool":        func(m map[string]any) { m["OverallQual"] = true },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			s, ts := newTestServer(t, config.MockConfig{})
			body := map[string]any{}
			for k, v := range features {
				body[k] = v
			}
			mutate(body)
			status, out := post(t, ts.URL, body)
			if status != http.StatusBadRequest {
				t.Fatalf("status %d", status)
			}
			if msg, _ := out["error"].(string); msg == "" {
				t.Fatalf("missing error message: %v", out)
			}
			if got := testutil.ToFloat64(s.requests.WithLabelValues("400")); got != 1 {
				t.Fatalf("expected one rejected request, got %v", got)
			}
		})
	}
}

func TestPredictMethodNotAllowed(t *testing.T) {
	_, ts := newTestServer(t, config.MockConfig{})
	resp, err := http.Get(ts.URL + "/predict")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestPredictRateLimited(t *testing.T) {
	_, ts := newTestServer(t, config.MockConfig{RatePerSecond: 0.001, Burst: 1})
	if status, _ := post(t, ts.URL, features); status != http.StatusOK {
		t.Fatalf("first request status %d", status)
	}
	if status, _ := post(t, ts.URL, features); status != http.StatusTooManyRequests {
		t.Fatalf("second request status %d", status)
	}
}

func TestStartServesClient(t *testing.T) {
	s := NewServerWithRegistry(config.MockConfig{Address: "127.0.0.1:0"}, nil, prometheus.NewRegistry())
	ctx, cancel := context.WithCancel(context.Background())
	ready := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, ready) }()
	select {
	case <-ready:
	case err := <-done:
		t.Fatalf("start: %v", err)
	}

	client := predictor.NewHTTPClient("http://"+s.Addr(), 2*time.Second)
	raw, err := client.Predict(context.Background(), model.ValidatedFields{
		OverallQual: 7, GrLivArea: 1500, GarageCars: 2, YearBuilt: 2005, TotalBsmtSF: 1000,
	})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if raw.Price != 323750 || raw.Lower != nil || raw.Upper != nil {
		t.Fatalf("unexpected response %+v", raw)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
