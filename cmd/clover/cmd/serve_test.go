package cmd

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/logging"
	"github.com/Ramsey-B/clover/pkg/routes/health"
)

func newTestEcho(checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	checker.RegisterRoutes(e)
	return e
}

func TestListen_ReadyAfterBind(t *testing.T) {
	logger = logging.Silent()
	checker := health.NewChecker("test")
	e := newTestEcho(checker)

	errCh, err := listen(context.Background(), e, checker, "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
		for range errCh {
		}
	})

	addr := e.ListenerAddr()
	require.NotNil(t, addr)

	resp, err := http.Get("http://" + addr.String() + "/api/v1/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestListen_BindFailureLeavesNotReady(t *testing.T) {
	logger = logging.Silent()
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	checker := health.NewChecker("test")
	e := newTestEcho(checker)

	_, err = listen(context.Background(), e, checker, taken.Addr().String())
	require.Error(t, err)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
