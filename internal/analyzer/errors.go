// internal/analyzer/errors.go
package analyzer

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInvalidInput Kind = iota + 1
	KindConfiguration
	KindUpstreamUnavailable
	KindUpstreamRejected
	KindUpstreamMalformed
)

func (k Kind) String() string {
	switch k {
	case KindInvalidInput:
		return "invalid_input"
	case KindConfiguration:
		return "configuration"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindUpstreamRejected:
		return "upstream_rejected"
	case KindUpstreamMalformed:
		return "upstream_malformed"
	default:
		return "unknown"
	}
}

// Error is a failure of one analysis request. Status is only meaningful for
// KindUpstreamRejected, where it holds the upstream HTTP status.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus is the status a transport should answer with.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUpstreamRejected:
		if e.Status >= 400 && e.Status <= 599 {
			return e.Status
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to return to clients.
func (e *Error) PublicMessage() string {
	switch e.Kind {
	case KindInvalidInput:
		return e.Message
	case KindConfiguration:
		return "Server configuration error: " + e.Message
	case KindUpstreamRejected:
		return fmt.Sprintf("OpenAI API error: %d", e.Status)
	case KindUpstreamMalformed:
		return "Invalid response from OpenAI"
	default:
		return MessageServerError
	}
}

const (
	MessageImageRequired = "Image data is required"
	MessageServerError   = "Server error processing request"
)

var ErrMissingAPIKey = &Error{Kind: KindConfiguration, Message: "OpenAI API key not set"}

func InvalidInput(message string) *Error {
	return &Error{Kind: KindInvalidInput, Message: message}
}

func Unavailable(err error) *Error {
	return &Error{Kind: KindUpstreamUnavailable, Message: "vision API unreachable", Err: err}
}

func Rejected(status int, snippet string) *Error {
	return &Error{Kind: KindUpstreamRejected, Status: status, Message: snippet}
}

func Malformed(message string, err error) *Error {
	return &Error{Kind: KindUpstreamMalformed, Message: message, Err: err}
}

// KindOf reports the kind of err, or 0 when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
