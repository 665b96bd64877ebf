package handler_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/busops/ticket-counter/internal/handler"
)

func TestGetHealth_returns200WithOKStatus(t *testing.T) {
	rec := serve(handler.NewRouter(handler.NewServer(handler.Deps{}), anonymous), http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])
}

func TestGetReady(t *testing.T) {
	ok := handler.Check{Name: "postgres", Ping: func(context.Context) error { return nil }}
	down := handler.Check{Name: "redis", Ping: func(context.Context) error { return errors.New("dial tcp: refused") }}

	tests := []struct {
		name   string
		checks []handler.Check
		status int
		want   map[string]any
	}{
		{"no checks", nil, http.StatusOK, map[string]any{}},
		{"all up", []handler.Check{ok}, http.StatusOK, map[string]any{"postgres": "ok"}},
		{"one down", []handler.Check{ok, down}, http.StatusServiceUnavailable, map[string]any{"postgres": "ok", "redis": "unavailable"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := handler.NewRouter(handler.NewServer(handler.Deps{Checks: tc.checks}), anonymous)

			rec := serve(h, http.MethodGet, "/readyz", nil)

			require.Equal(t, tc.status, rec.Code)
			body := decode[map[string]any](t, rec)
			assert.Equal(t, tc.want, body["checks"])
			assert.NotContains(t, rec.Body.String(), "refused")
		})
	}
}

func TestGetOpenAPI(t *testing.T) {
	rec := serve(handler.NewRouter(handler.NewServer(handler.Deps{}), anonymous), http.MethodGet, "/openapi.yaml", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "openapi: 3.0.3")
	assert.Contains(t, rec.Body.String(), "/sessions/{id}/checkout")
}

func TestRouter_JSONNotFoundAndMethodNotAllowed(t *testing.T) {
	h := handler.NewRouter(handler.NewServer(handler.Deps{}), anonymous)

	rec := serve(h, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorCode(t, rec))

	rec = serve(h, http.MethodPut, "/healthz", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
