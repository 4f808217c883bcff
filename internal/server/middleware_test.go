package server

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gspavan07/stockconnect/internal/common"
)

// logCapture collects raw JSON log events so tests can check level filtering.
type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) output() string {
	return c.buf.String()
}

func TestLoggingMiddleware_2xxUsesDebugLevel(t *testing.T) {
	// Routine successful requests log at DEBUG, so an INFO-level logger
	// stays quiet.
	capture := &logCapture{}
	logger := common.NewLoggerWithOutput("info", capture)

	handler := loggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := capture.output(); strings.Contains(got, "HTTP request") {
		t.Errorf("Expected 200 log to be filtered at INFO level, but it passed through: %s", got)
	}
}

func TestLoggingMiddleware_4xxUsesInfoLevel(t *testing.T) {
	// Client errors log at INFO, below a WARN-level logger's threshold.
	capture := &logCapture{}
	logger := common.NewLoggerWithOutput("warn", capture)

	handler := loggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/missing", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if got := capture.output(); strings.Contains(got, "HTTP request") {
		t.Errorf("Expected 404 log to be filtered at WARN level, but it passed through: %s", got)
	}
}

func TestLoggingMiddleware_5xxUsesErrorLevel(t *testing.T) {
	capture := &logCapture{}
	logger := common.NewLoggerWithOutput("warn", capture)

	handler := loggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/broken", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	got := capture.output()
	if !strings.Contains(got, "HTTP request") {
		t.Errorf("Expected 500 log to pass WARN filter, got: %q", got)
	}
	if !strings.Contains(got, "/api/broken") {
		t.Errorf("Expected log event to carry the request path, got: %q", got)
	}
}

func TestRecoveryMiddleware_PanicReturns500(t *testing.T) {
	capture := &logCapture{}
	logger := common.NewLoggerWithOutput("error", capture)

	handler := recoveryMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/assets", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500 after panic, got %d", rr.Code)
	}
	if got := capture.output(); !strings.Contains(got, "boom") {
		t.Errorf("Expected panic value in log output, got: %q", got)
	}
}
