// Package providers implements the per-vendor API clients the flows fan out
// to: crop health classifiers, soil and weather data, generative text,
// speech, translation, and geocoding.
//
// Every client converts every failure mode into an *AdapterError before it
// crosses the package boundary; callers never see a raw transport error.
package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// AdapterError kinds.
const (
	ErrKindNetwork    = "network"
	ErrKindHTTPStatus = "http_status"
	ErrKindTimeout    = "timeout"
	ErrKindAuth       = "auth"
	ErrKindParse      = "parse"
)

// AdapterError is the one failure shape adapters are allowed to return.
type AdapterError struct {
	Provider string
	Kind     string
	Message  string
	Status   int // HTTP status, when Kind is http_status
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, e.Message)
}

// adapterErr builds an AdapterError from an arbitrary call failure,
// classifying timeouts and network errors.
func adapterErr(provider string, err error) *AdapterError {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae
	}
	kind := ErrKindNetwork
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ErrKindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		kind = ErrKindTimeout
	}
	return &AdapterError{Provider: provider, Kind: kind, Message: err.Error()}
}

func statusErr(provider string, status int, body string) *AdapterError {
	kind := ErrKindHTTPStatus
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = ErrKindAuth
	}
	if len(body) > 200 {
		body = body[:200]
	}
	return &AdapterError{
		Provider: provider,
		Kind:     kind,
		Status:   status,
		Message:  fmt.Sprintf("unexpected status %d: %s", status, body),
	}
}

func parseErr(provider string, err error) *AdapterError {
	return &AdapterError{Provider: provider, Kind: ErrKindParse, Message: err.Error()}
}

func authErr(provider, message string) *AdapterError {
	return &AdapterError{Provider: provider, Kind: ErrKindAuth, Message: message}
}

// ErrUnavailable marks a capability whose client could not be constructed
// (missing credentials). Call sites surface it instead of holding a nil
// client.
var ErrUnavailable = errors.New("provider unavailable: missing credentials")

// withRetry wraps an idempotent GET-style call in bounded exponential
// backoff. Image uploads and LLM completions are never retried.
func withRetry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = 8 * time.Second
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		var ae *AdapterError
		// Client-side errors and auth failures will not heal on retry.
		if errors.As(err, &ae) && (ae.Kind == ErrKindAuth || ae.Kind == ErrKindParse ||
			(ae.Kind == ErrKindHTTPStatus && ae.Status >= 400 && ae.Status < 500)) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}
