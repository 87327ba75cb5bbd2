package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestInstrumentLabelsByRoute(t *testing.T) {
	e := echo.New()
	e.Use(Instrument)
	e.GET("/users/:id", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/missing/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound)
	})

	before := testutil.CollectAndCount(RequestDuration)

	for _, path := range []string{"/users/1", "/users/2", "/missing/3"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	// two new series: one per route/status pair
	require.Equal(t, before+2, testutil.CollectAndCount(RequestDuration))
}

func TestHandlerExposesCounters(t *testing.T) {
	MessagesPosted.Inc()

	e := echo.New()
	e.GET("/metrics", Handler())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "warbler_messages_posted_total"))
}
