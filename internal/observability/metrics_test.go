package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RecordTicketEvent("status_changed")
	m.RecordTicketEvent("status_changed")
	m.RecordTicketCreated()
	m.RecordRequest("/api/tickets", "GET", 200, 5*time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ticketEvents.WithLabelValues("status_changed")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ticketsCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestCount.WithLabelValues("/api/tickets", "GET", "200")))

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.RecordTicketCreated() })
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestCount.WithLabelValues("/ping", "GET", "200")))
}
