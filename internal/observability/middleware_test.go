package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggerRecordsStatusAndRoute(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(InjectLogger(logger))
	r.Use(RequestLogger(func(*http.Request) []zap.Field {
		return []zap.Field{zap.String("session", "abcd1234")}
	}))
	r.Get("/products/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products/heel", nil))

	entries := logs.FilterMessage("request completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected one completion log, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("expected warn level for 404, got %s", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["status"] != int64(http.StatusNotFound) {
		t.Fatalf("unexpected status field %v", fields["status"])
	}
	if fields["route"] != "/products/{slug}" {
		t.Fatalf("unexpected route field %v", fields["route"])
	}
	if fields["bytes"] != int64(len("missing")) {
		t.Fatalf("unexpected bytes field %v", fields["bytes"])
	}
	if fields["session"] != "abcd1234" {
		t.Fatalf("expected extra fields to be logged, got %v", fields)
	}
}

func TestRecoveryLogsAndDelegates(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	called := false
	handler := Recovery(zap.New(core), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusTeapot)
	}))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !called || rec.Code != http.StatusTeapot {
		t.Fatalf("expected panic handler to write the response, got %d", rec.Code)
	}
	if logs.FilterMessage("panic recovered").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
}

func TestTraceMiddlewareContinuesTraceparent(t *testing.T) {
	var got TraceInfo
	handler := TraceMiddleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, _ = Trace(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if got.TraceID != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Fatalf("expected trace id from traceparent, got %q", got.TraceID)
	}
}

func TestFromContextDefaultsToNoop(t *testing.T) {
	if FromContext(context.Background()) != noopLogger {
		t.Fatalf("expected noop logger")
	}
	if SanitizeSessionID("0123456789abcdef") != "01234567" {
		t.Fatalf("expected session id to be shortened")
	}
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("loud")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if logger.Core().Enabled(zapcore.DebugLevel) {
		t.Fatalf("expected info level fallback")
	}
}
