// Package predictor implements the prediction service client over HTTP.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/housepredict/core/logger"
	"github.com/kilianp07/housepredict/core/model"
	"github.com/kilianp07/housepredict/core/prediction"
)

// DefaultTimeout bounds a single request when none is configured.
const DefaultTimeout = 10 * time.Second

// maxBodyBytes caps how much of a reply is read.
const maxBodyBytes = 1 << 20

// RequestIDHeader carries the submission identifier.
const RequestIDHeader = "X-Request-ID"

// HTTPClient posts fields to {baseURL}/predict.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	log     logger.Logger
}

// Option customizes an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) {
		if c != nil {
			h.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(h *HTTPClient) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHTTPClient creates a client for the service at baseURL. A non-positive
// timeout selects DefaultTimeout.
func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     logger.NopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the configured base URL.
func (c *HTTPClient) Endpoint() string { return c.baseURL }

// wireResponse accepts both field names of each value. Pointers tell an
// absent field from a zero one.
type wireResponse struct {
	PredictedPrice *float64 `json:"predicted_price"`
	Prediction     *float64 `json:"prediction"`
	LowerBound     *float64 `json:"lower_bound"`
	IntervalLower  *float64 `json:"interval_lower"`
	UpperBound     *float64 `json:"upper_bound"`
	IntervalUpper  *float64 `json:"interval_upper"`
}

type wireError struct {
	Error string `json:"error"`
}

// Predict sends one request and normalizes the reply. Errors are
// *prediction.ClientError.
func (c *HTTPClient) Predict(ctx context.Context, fields model.ValidatedFields) (prediction.RawResponse, error) {
	body, err := json.Marshal(fields)
	if err != nil {
		return prediction.RawResponse{}, prediction.NewInvalidRequest("encode request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return prediction.RawResponse{}, prediction.NewInvalidRequest("failed to create request", err)
	}
	id := prediction.RequestID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, id)

	c.log.Debugw("sending prediction request", map[string]any{"request_id": id, "url": req.URL.String()})
	resp, err := c.client.Do(req)
	if err != nil {
		return prediction.RawResponse{}, prediction.NewUnreachable(err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return prediction.RawResponse{}, prediction.NewUnreachable(fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var we wireError
		_ = json.Unmarshal(data, &we)
		c.log.Warnf("prediction service returned %d: %s", resp.StatusCode, we.Error)
		return prediction.RawResponse{}, prediction.NewServerError(resp.StatusCode, we.Error)
	}
	return decode(data)
}

func decode(data []byte) (prediction.RawResponse, error) {
	var wr wireResponse
	if err := json.Unmarshal(data, &wr); err != nil {
		return prediction.RawResponse{}, prediction.NewMalformed("invalid response body", err)
	}
	price := first(wr.PredictedPrice, wr.Prediction)
	if price == nil {
		return prediction.RawResponse{}, prediction.NewMalformed("response missing predicted price", nil)
	}
	raw := prediction.RawResponse{
		Price: *price,
		Lower: first(wr.LowerBound, wr.IntervalLower),
		Upper: first(wr.UpperBound, wr.IntervalUpper),
	}
	if raw.Lower != nil && *raw.Lower > raw.Price {
		return prediction.RawResponse{}, prediction.NewMalformed("lower bound above predicted price", nil)
	}
	if raw.Upper != nil && *raw.Upper < raw.Price {
		return prediction.RawResponse{}, prediction.NewMalformed("upper bound below predicted price", nil)
	}
	return raw, nil
}

func first(a, b *float64) *float64 {
	if a != nil {
		return a
	}
	return b
}
