package healthsvc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	testCases := []struct {
		name     string
		ping     error
		database string
	}{
		{name: "reachable", database: "connected"},
		{name: "unreachable", ping: errors.New("connection refused"), database: "disconnected"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(pingerFunc(func(context.Context) error { return tc.ping }), "test")
			h := NewHTTPHandler(svc, log.NewNopLogger())

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var got Health
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
			assert.Equal(t, Health{Status: "healthy", Environment: "test", Database: tc.database}, got)
		})
	}
}

func TestInfo(t *testing.T) {
	h := NewHTTPHandler(NewService(pingerFunc(func(context.Context) error { return nil }), "test"), log.NewNopLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got Info
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, Info{Service: ServiceName, Version: Version, Status: "healthy"}, got)
}
