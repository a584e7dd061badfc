package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/af-corp/aireader-gateway/internal/router/adapters"
	"github.com/af-corp/aireader-gateway/internal/transport"
	"github.com/af-corp/aireader-gateway/internal/types"
)

// OutcomeKind classifies how a single attempt ended.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeRateLimited
	OutcomeServerError
	OutcomeTimeout
	OutcomeClientError
	OutcomeMalformedResponse
	OutcomeNetworkError
	// OutcomeCanceled means the caller's context ended; it is never recorded
	// in routing state.
	OutcomeCanceled
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeServerError:
		return "server_error"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeClientError:
		return "client_error"
	case OutcomeMalformedResponse:
		return "malformed_response"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sticky reports whether a failure moves the credential's persisted cursor
// past the model. Text timeouts are transient; image timeouts are not.
func Sticky(kind types.Kind, outcome OutcomeKind) bool {
	switch outcome {
	case OutcomeSuccess, OutcomeCanceled:
		return false
	case OutcomeTimeout:
		return kind == types.KindImage
	default:
		return true
	}
}

// ClassifyStatus maps an HTTP status to an outcome.
func ClassifyStatus(status int) OutcomeKind {
	switch {
	case status >= 200 && status < 300:
		return OutcomeSuccess
	case status == http.StatusTooManyRequests:
		return OutcomeRateLimited
	case status >= 500:
		return OutcomeServerError
	default:
		return OutcomeClientError
	}
}

// ClassifyError maps a transport or parse error to an outcome. ctx is the
// caller's context, used to tell cancellation apart from attempt timeouts.
func ClassifyError(ctx context.Context, err error) OutcomeKind {
	switch {
	case ctx.Err() != nil:
		return OutcomeCanceled
	case errors.Is(err, transport.ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, transport.ErrResponseTooLarge), errors.Is(err, adapters.ErrMalformedResponse):
		return OutcomeMalformedResponse
	default:
		var netErr *transport.NetworkError
		if errors.As(err, &netErr) {
			return OutcomeNetworkError
		}
		return OutcomeClientError
	}
}
