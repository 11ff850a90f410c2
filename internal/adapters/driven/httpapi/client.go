// Package httpapi holds the request plumbing shared by the JSON-over-HTTP
// provider adapters: status mapping onto the domain error taxonomy and
// error message extraction.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/custodia-labs/juris/internal/core/domain"
)

// maxErrorBody bounds the response text quoted in errors.
const maxErrorBody = 300

// Client sends JSON requests to one provider.
type Client struct {
	// HTTP is the underlying client.
	HTTP *http.Client

	// Provider names the service in error messages ("openai").
	Provider string

	// Header is added to every request.
	Header http.Header
}

// PostJSON marshals in, posts it to url and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", c.Provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.Provider, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req, out)
}

// Get sends a GET request and discards the response body.
func (c *Client) Get(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", c.Provider, err)
	}
	return c.Do(req, nil)
}

// Do sends req and decodes a 2xx JSON response into out when out is not
// nil. Other statuses are mapped with domain.ErrorForStatus; transport
// failures are transient.
func (c *Client) Do(req *http.Request, out any) error {
	for k, v := range c.Header {
		req.Header[k] = v
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return c.transportError(req.Context(), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", c.Provider, domain.ErrProviderUnavailable)
	}

	if sentinel := domain.ErrorForStatus(resp.StatusCode); sentinel != nil {
		return fmt.Errorf("%s: status %d: %s: %w", c.Provider, resp.StatusCode, ErrorMessage(body), sentinel)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %v: %w", c.Provider, err, domain.ErrProviderUnavailable)
	}
	return nil
}

func (c *Client) transportError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		return fmt.Errorf("%s: %w", c.Provider, ctx.Err())
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return fmt.Errorf("%s: %v: %w", c.Provider, err, domain.ErrTimeout)
	default:
		return fmt.Errorf("%s: %v: %w", c.Provider, err, domain.ErrProviderUnavailable)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// ErrorMessage extracts the provider's error message from a response
// body. It understands {"error":{"message":...}}, {"error":"..."} and
// {"message":...}, and falls back to the truncated body.
func ErrorMessage(body []byte) string {
	var envelope struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		var nested struct {
			Message string `json:"message"`
		}
		var flat string
		switch {
		case json.Unmarshal(envelope.Error, &nested) == nil && nested.Message != "":
			return nested.Message
		case json.Unmarshal(envelope.Error, &flat) == nil && flat != "":
			return flat
		case envelope.Message != "":
			return envelope.Message
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return text
}
