package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/chesspulse/chesspulse/cache"
)

var _ cache.Metrics = (*Metrics)(nil)

func TestCacheCountersAppearInScrape(t *testing.T) {
	m := NewMetrics("chesspulse_test")
	m.Hit()
	m.Hit()
	m.Miss()
	m.Expire()

	body := scrape(t, m)
	for _, want := range []string{
		"chesspulse_test_cache_hits_total 2",
		"chesspulse_test_cache_misses_total 1",
		"chesspulse_test_cache_expirations_total 1",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape output missing %q", want)
		}
	}
}

func TestMiddlewareRecordsRequests(t *testing.T) {
	m := NewMetrics("chesspulse_mw")

	e := echo.New()
	e.Use(m.Middleware())
	e.GET("/api/:platform/player/:username", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/lichess/player/magnus", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := scrape(t, m)
	want := `chesspulse_mw_http_requests_total{method="GET",route="/api/:platform/player/:username",status="200"} 1`
	if !strings.Contains(body, want) {
		t.Errorf("scrape output missing %q", want)
	}
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	data, err := io.ReadAll(rec.Result().Body)
	if err != nil {
		t.Fatalf("read scrape body: %v", err)
	}
	return string(data)
}
