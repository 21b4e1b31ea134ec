package prediction

import (
	"context"
	"fmt"

	"github.com/kilianp07/housepredict/core/model"
)

// Client submits validated fields to the prediction service. Each call is
// exactly one network attempt.
type Client interface {
	Predict(ctx context.Context, fields model.ValidatedFields) (RawResponse, error)
	// Endpoint returns the base URL the client talks to.
	Endpoint() string
}

// RawResponse is the service reply normalized to a fixed shape regardless of
// which accepted field names it used. Nil bounds were absent from the reply.
type RawResponse struct {
	Price float64
	Lower *float64
	Upper *float64
}

// ErrorKind classifies client failures.
type ErrorKind int

const (
	// Unreachable means the transport could not establish or complete the exchange.
	Unreachable ErrorKind = iota
	// ServerError means the service answered with a non-2xx status.
	ServerError
	// MalformedResponse means the body did not match the expected structure.
	MalformedResponse
	// InvalidRequest means the request could not be built or encoded.
	InvalidRequest
)

// String returns a human-readable representation of the kind.
func (k ErrorKind) String() string {
	switch k {
	case Unreachable:
		return "unreachable"
	case ServerError:
		return "server"
	case MalformedResponse:
		return "malformed"
	case InvalidRequest:
		return "request"
	default:
		return "unknown"
	}
}

// ClientError is returned by Client implementations.
type ClientError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ClientError) Unwrap() error { return e.Err }

// NewUnreachable wraps a transport failure.
func NewUnreachable(err error) *ClientError {
	return &ClientError{Kind: Unreachable, Message: "prediction service unreachable", Err: err}
}

// NewServerError builds the error for a non-2xx reply. An empty message falls
// back to the generic status text.
func NewServerError(status int, message string) *ClientError {
	if message == "" {
		message = fmt.Sprintf("Server error: %d", status)
	}
	return &ClientError{Kind: ServerError, Status: status, Message: message}
}

// NewInvalidRequest reports a request that never left the client.
func NewInvalidRequest(message string, err error) *ClientError {
	if err != nil {
		message = fmt.Sprintf("%s: %v", message, err)
	}
	return &ClientError{Kind: InvalidRequest, Message: message, Err: err}
}

// NewMalformed reports a reply that could not be interpreted.
func NewMalformed(message string, err error) *ClientError {
	return &ClientError{Kind: MalformedResponse, Message: message, Err: err}
}

type requestIDKey struct{}

// WithRequestID attaches the submission identifier to ctx. Clients forward it
// to the service.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the identifier stored by WithRequestID, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
