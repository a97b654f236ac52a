package respond_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/cardhub/internal/app/system/respond"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestError_WritesJSONBody(t *testing.T) {
	req := httptest.NewRequest("GET", "/x", nil)
	rec := httptest.NewRecorder()

	respond.Error(rec, req, http.StatusConflict, "username already taken")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	var body respond.ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "username already taken" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestFail_LogLevels(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := zap.New(core)

	req := httptest.NewRequest("POST", "/api/x", nil)
	respond.Fail(httptest.NewRecorder(), req, log, http.StatusBadRequest, "bad input", errors.New("x"))
	respond.Fail(httptest.NewRecorder(), req, log, http.StatusInternalServerError, "db down", errors.New("y"))

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zap.WarnLevel {
		t.Errorf("4xx logged at %v, want warn", entries[0].Level)
	}
	if entries[1].Level != zap.ErrorLevel {
		t.Errorf("5xx logged at %v, want error", entries[1].Level)
	}
}

func TestFail_CanceledIsSilent(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)

	respond.Fail(rec, req, zap.New(core), http.StatusInternalServerError, "boom", context.Canceled)

	if logs.Len() != 0 {
		t.Errorf("expected no logs for canceled request, got %d", logs.Len())
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected no body for canceled request, got %q", rec.Body.String())
	}
}

func TestServerError_HidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/x", nil)

	respond.ServerError(rec, req, zap.NewNop(), "load user", errors.New("connection refused to 10.0.0.3"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.3") {
		t.Error("server error leaked internal detail")
	}
}

type fieldErr map[string]string

func (f fieldErr) Error() string                  { return "invalid" }
func (f fieldErr) FieldErrors() map[string]string { return f }

func TestInvalid(t *testing.T) {
	req := httptest.NewRequest("POST", "/x", nil)

	rec := httptest.NewRecorder()
	respond.Invalid(rec, req, fieldErr{"email": "is required"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body respond.InvalidBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Fields["email"] != "is required" {
		t.Errorf("fields = %v", body.Fields)
	}

	rec = httptest.NewRecorder()
	respond.Invalid(rec, req, errors.New("malformed JSON"))
	body = respond.InvalidBody{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "malformed JSON" || body.Fields != nil {
		t.Errorf("body = %+v", body)
	}
}

func TestTooManyRequests_RetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	respond.TooManyRequests(rec, httptest.NewRequest("POST", "/x", nil), "slow down", 1500*time.Millisecond)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
}
