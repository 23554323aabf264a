// Package provider implements the capability provider contract and the
// built-in data providers (launch schedule, weather, news, market).
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// Provider is the uniform contract every capability provider implements.
// The orchestration core depends only on this interface, never on a
// provider's internals.
type Provider interface {
	// ID returns the capability identifier.
	ID() string
	// RequiredInputs returns the context keys that must be present
	// before Invoke may be called.
	RequiredInputs() []string
	// ProducedOutputs returns the context keys a successful Invoke writes.
	ProducedOutputs() []string
	// CanProcess reports whether the current context satisfies the
	// provider's input requirements.
	CanProcess(c models.Context) bool
	// Invoke performs the capability's work and returns its outputs.
	// The context carries the caller's deadline; implementations must
	// honor cancellation.
	Invoke(ctx context.Context, c models.Context) (map[string]any, error)
}

// Error wraps a failure raised by a provider, preserving the capability ID.
type Error struct {
	// Capability is the ID of the failing provider.
	Capability string
	// Err is the underlying error.
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Capability, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// defaultHTTPTimeout bounds a single upstream request when the caller's
// context carries no tighter deadline.
const defaultHTTPTimeout = 30 * time.Second

// newHTTPClient returns the client used by the built-in providers.
func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultHTTPTimeout}
}

// getJSON performs a GET request and decodes the JSON response into out.
// Non-2xx responses are returned as errors with the status and a snippet
// of the body for diagnosis.
func getJSON(ctx context.Context, hc *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GET %s: status %d: %s", url, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response from %s: %w", url, err)
	}
	return nil
}

// hasInputs is the shared CanProcess implementation.
func hasInputs(p Provider, c models.Context) bool {
	return c.Has(p.RequiredInputs()...)
}
