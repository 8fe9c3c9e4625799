package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	var dbErr error
	checker := NewChecker("1.2.3")
	checker.AddCheck("database", func(context.Context) error { return dbErr })
	checker.AddCheck("redis", func(context.Context) error { return nil })

	e := echo.New()
	checker.RegisterRoutes(e)

	rec := serve(e, "/api/v1/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1.2.3", status.Version)
	assert.Equal(t, "healthy", status.Checks["database"].Status)
	assert.Equal(t, "healthy", status.Checks["redis"].Status)

	dbErr = errors.New("connection refused")
	rec = serve(e, "/api/v1/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, "connection refused", status.Checks["database"].Message)
}

func TestLiveAndReady(t *testing.T) {
	var dbErr error
	checker := NewChecker("dev")
	checker.AddCheck("database", func(context.Context) error { return dbErr })

	e := echo.New()
	checker.RegisterRoutes(e)

	assert.Equal(t, http.StatusOK, serve(e, "/api/v1/health/live").Code)
	assert.Equal(t, http.StatusServiceUnavailable, serve(e, "/api/v1/health/ready").Code)

	checker.SetReady(true)
	assert.Equal(t, http.StatusOK, serve(e, "/api/v1/health/ready").Code)

	dbErr = errors.New("down")
	assert.Equal(t, http.StatusServiceUnavailable, serve(e, "/api/v1/health/ready").Code)
}
