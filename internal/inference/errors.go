package inference

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies how an inference call failed.
type Kind string

const (
	// KindTransientService is a 503: the model is warming up or overloaded.
	KindTransientService Kind = "transient_service"
	// KindServerFault is a 500 that persisted through the last attempt.
	KindServerFault Kind = "server_fault"
	// KindClientRequest is any other non-200 status. Never retried.
	KindClientRequest Kind = "client_request"
	// KindTransport covers connection errors and per-attempt timeouts.
	KindTransport Kind = "transport"
	// KindMalformedResponse is a 200 whose payload has no generated_text.
	KindMalformedResponse Kind = "malformed_response"
	// KindExhaustedRetries is terminal after every attempt returned 503.
	KindExhaustedRetries Kind = "exhausted_retries"
	// KindNotConfigured means no API key was available.
	KindNotConfigured Kind = "not_configured"
	// KindCanceled means the caller's context ended first.
	KindCanceled Kind = "canceled"
)

// Error is returned for every terminal failure of Client.Generate.
// Error() is always a displayable, human-readable sentence.
type Error struct {
	Kind       Kind
	StatusCode int
	Attempts   int
	// Body holds a truncated response body for HTTP failures and the full
	// raw payload for malformed responses.
	Body string
	// ModelError is the "error" field of the payload, when the endpoint sent one.
	ModelError string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch e.Kind {
	case KindTransientService:
		return fmt.Sprintf("the model is loading or overloaded (HTTP %d)", e.StatusCode)
	case KindServerFault:
		return fmt.Sprintf("inference server error after %d attempts (HTTP %d): %s", e.Attempts, e.StatusCode, e.Body)
	case KindClientRequest:
		if e.StatusCode == http.StatusTooManyRequests {
			return fmt.Sprintf("inference rate limit reached (HTTP %d): %s", e.StatusCode, e.Body)
		}
		return fmt.Sprintf("inference request rejected (HTTP %d): %s", e.StatusCode, e.Body)
	case KindTransport:
		return fmt.Sprintf("could not reach the inference endpoint after %d attempts: %v", e.Attempts, e.Err)
	case KindMalformedResponse:
		if e.ModelError != "" {
			return fmt.Sprintf("model loading error: %s", e.ModelError)
		}
		return fmt.Sprintf("unexpected inference response payload: %s", e.Body)
	case KindExhaustedRetries:
		return fmt.Sprintf("max retries exceeded after %d attempts: %v", e.Attempts, e.Err)
	case KindNotConfigured:
		return fmt.Sprintf("inference is not configured: %v", e.Err)
	case KindCanceled:
		return fmt.Sprintf("inference request canceled: %v", e.Err)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "inference error"
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err, or anything it wraps, is an *Error of kind k.
func IsKind(err error, k Kind) bool {
	for err != nil {
		var ie *Error
		if !errors.As(err, &ie) {
			return false
		}
		if ie.Kind == k {
			return true
		}
		err = ie.Err
	}
	return false
}
