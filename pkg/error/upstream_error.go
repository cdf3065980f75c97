package error

import (
	"context"
	"errors"
	"net/http"
)

const genericUpstreamMessage = "upstream completion failed"

// UpstreamError wraps a failed completion or embedding call. Message carries
// the provider's own message when one was available.
type UpstreamError struct {
	Provider string
	Message  string
	Err      error
}

// NewUpstreamError wraps err, keeping providerMessage when it is not empty.
func NewUpstreamError(provider, providerMessage string, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, Message: providerMessage, Err: err}
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = genericUpstreamMessage
	}
	if e.Provider != "" {
		return e.Provider + ": " + msg
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) ErrCode() string {
	return "UPSTREAM_ERROR"
}

func (e *UpstreamError) StatusCode() int {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
