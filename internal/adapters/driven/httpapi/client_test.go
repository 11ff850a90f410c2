package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"value":"ok"}`))
	}))
	defer server.Close()

	c := &Client{HTTP: server.Client(), Provider: "test", Header: http.Header{"Authorization": {"Bearer k"}}}
	var out struct {
		Value string `json:"value"`
	}
	require.NoError(t, c.PostJSON(context.Background(), server.URL, map[string]string{"a": "b"}, &out))
	assert.Equal(t, "ok", out.Value)
}

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
	}{
		{http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, domain.ErrRateLimited},
		{http.StatusUnauthorized, `{"error":"bad key"}`, domain.ErrMissingCredentials},
		{http.StatusBadRequest, `{"message":"too long"}`, domain.ErrInvalidInput},
		{http.StatusBadGateway, `oops`, domain.ErrProviderUnavailable},
		{http.StatusGatewayTimeout, ``, domain.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := &Client{HTTP: server.Client(), Provider: "test"}
			err := c.Get(context.Background(), server.URL)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Contains(t, err.Error(), "test: status")
		})
	}
}

func TestClient_DecodeErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	c := &Client{HTTP: server.Client(), Provider: "test"}
	var out map[string]any
	err := c.PostJSON(context.Background(), server.URL, nil, &out)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c := &Client{HTTP: server.Client(), Provider: "test"}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := c.Get(ctx, server.URL)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.True(t, domain.Classify(err) == domain.ErrorClassTransient)
}

func TestClient_Unreachable(t *testing.T) {
	c := &Client{HTTP: &http.Client{}, Provider: "test"}
	err := c.Get(context.Background(), "http://127.0.0.1:1")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "nested", ErrorMessage([]byte(`{"error":{"message":"nested"}}`)))
	assert.Equal(t, "flat", ErrorMessage([]byte(`{"error":"flat"}`)))
	assert.Equal(t, "top", ErrorMessage([]byte(`{"message":"top"}`)))
	assert.Equal(t, "plain text", ErrorMessage([]byte(" plain text ")))
	assert.Len(t, ErrorMessage([]byte(string(make([]byte, 1000)))), maxErrorBody+3)
}

func TestGRPCError(t *testing.T) {
	tests := []struct {
		code codes.Code
		want error
	}{
		{codes.ResourceExhausted, domain.ErrRateLimited},
		{codes.Unauthenticated, domain.ErrMissingCredentials},
		{codes.PermissionDenied, domain.ErrMissingCredentials},
		{codes.InvalidArgument, domain.ErrInvalidInput},
		{codes.DeadlineExceeded, domain.ErrTimeout},
		{codes.Unavailable, domain.ErrProviderUnavailable},
		{codes.Internal, domain.ErrProviderUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.code.String(), func(t *testing.T) {
			err := GRPCError("gemini", status.Error(tt.code, "boom"))
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorContains(t, err, "gemini")
		})
	}

	assert.NoError(t, GRPCError("gemini", nil))
	assert.ErrorIs(t, GRPCError("gemini", context.Canceled), context.Canceled)
	assert.ErrorIs(t, GRPCError("gemini", errors.New("eof")), domain.ErrProviderUnavailable)
}
