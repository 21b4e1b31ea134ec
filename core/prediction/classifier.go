package prediction

import (
	"errors"
	"fmt"
)

// FailureKind is the internal category attached to a user message.
type FailureKind string

const (
	FailureValidation  FailureKind = "validation"
	FailureUnreachable FailureKind = "unreachable"
	FailureServer      FailureKind = "server"
	FailureMalformed   FailureKind = "malformed"
	FailureRequest     FailureKind = "request"
	FailureUnexpected  FailureKind = "unexpected"
)

// UnexpectedMessage is shown for failures outside the client taxonomy.
const UnexpectedMessage = "An unexpected error occurred. Please try again."

// Classification is what the presentation layer gets for a failed cycle.
type Classification struct {
	Kind    FailureKind
	Message string
}

// Classifier maps client failures to user-facing messages. Endpoint is
// quoted in the connection hint.
type Classifier struct {
	Endpoint string
}

// Classify never fails; unknown errors get the generic message.
func (c Classifier) Classify(err error) Classification {
	var cerr *ClientError
	if !errors.As(err, &cerr) {
		return Classification{Kind: FailureUnexpected, Message: UnexpectedMessage}
	}
	switch cerr.Kind {
	case Unreachable:
		return Classification{
			Kind:    FailureUnreachable,
			Message: fmt.Sprintf("Unable to connect to the prediction service. Please ensure your backend is running on %s.", c.Endpoint),
		}
	case ServerError:
		return Classification{Kind: FailureServer, Message: fmt.Sprintf("Prediction failed: %s.", cerr.Message)}
	case MalformedResponse:
		return Classification{Kind: FailureMalformed, Message: fmt.Sprintf("Prediction failed: %s.", cerr.Message)}
	default:
		return Classification{Kind: FailureRequest, Message: fmt.Sprintf("Prediction failed: %s.", cerr.Message)}
	}
}
