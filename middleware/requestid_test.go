package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/chainstream/middleware"
)

func TestRequestIDDefaultConfiguration(t *testing.T) {
	t.Parallel()

	var capturedID string
	handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.GetRequestID(r.Context())
		assert.True(t, ok, "Request ID should be present in context")
		capturedID = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, capturedID, "Request ID should be generated")
	assert.Equal(t, capturedID, w.Header().Get("X-Request-ID"), "Request ID should be in response header")

	// Validate UUID format (default generator)
	assert.Len(t, capturedID, 36, "Default ID should be UUID v4 format")
	assert.Contains(t, capturedID, "-", "UUID should contain hyphens")
}

func TestRequestIDCustomGenerator(t *testing.T) {
	t.Parallel()

	customID := "custom-123-456"
	var capturedID string
	handler := middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string {
			return customID
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := middleware.GetRequestID(r.Context())
		assert.True(t, ok)
		capturedID = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, customID, capturedID, "Should use custom generator")
	assert.Equal(t, customID, w.Header().Get("X-Request-ID"))
}

func TestRequestIDCustomHeaderName(t *testing.T) {
	t.Parallel()

	handler := middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		HeaderName: "X-Trace-ID",
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
	assert.Empty(t, w.Header().Get("X-Request-ID"))
}

func TestRequestIDUseExisting(t *testing.T) {
	t.Parallel()

	t.Run("reuses incoming ID when enabled", func(t *testing.T) {
		var capturedID string
		handler := middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			UseExisting: true,
		})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedID, _ = middleware.GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "upstream-id", capturedID)
		assert.Equal(t, "upstream-id", w.Header().Get("X-Request-ID"))
	})

	t.Run("ignores incoming ID by default", func(t *testing.T) {
		var capturedID string
		handler := middleware.RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			capturedID, _ = middleware.GetRequestID(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set("X-Request-ID", "upstream-id")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.NotEqual(t, "upstream-id", capturedID)
		assert.NotEmpty(t, capturedID)
	})
}

func TestRequestIDSkip(t *testing.T) {
	t.Parallel()

	handler := middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Skip: func(r *http.Request) bool {
			return r.URL.Path == "/healthz"
		},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, ok := middleware.GetRequestID(r.Context())
		assert.False(t, ok, "skipped request should carry no ID")
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("X-Request-ID"))
}

func TestGetRequestIDMissing(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	id, ok := middleware.GetRequestID(req.Context())
	assert.False(t, ok)
	assert.Empty(t, id)
}
