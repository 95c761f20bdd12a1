package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"TradePull/pkg/logger"

	"github.com/labstack/echo/v4"
)

func collectingLogger(t *testing.T) (*logger.Logger, *logger.Collector) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	c := logger.NewCollector(10)
	log.AttachCollector(c)
	return log, c
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	log, collector := collectingLogger(t)

	e := echo.New()
	e.Use(Recover(log))
	e.GET("/boom", func(echo.Context) error {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	entries := collector.Recent()
	if len(entries) != 1 || entries[0].Message != "handler panic" {
		t.Fatalf("collected = %+v", entries)
	}
}

func TestRecoverPassesThroughNormalRequests(t *testing.T) {
	log, collector := collectingLogger(t)

	e := echo.New()
	e.Use(Recover(log))
	e.GET("/ok", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(collector.Recent()) != 0 {
		t.Fatalf("unexpected collected entries: %+v", collector.Recent())
	}
}
