package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestWriteErrorEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	err := NewError("invalid_quantity", "quantity\nmust be a number", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{"field": "quantity"})

	WriteError(context.Background(), rec, err)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["error"] != "invalid_quantity" || body["message"] != "quantity must be a number" || body["field"] != "quantity" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["trace_id"]; ok {
		t.Fatalf("trace id must be omitted without a span")
	}
}

func TestNewErrorDefaultsStatus(t *testing.T) {
	if got := NewError("x", "y", 0).Status; got != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", got)
	}
}
