package problem

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
)

var errTest = errors.New("connection refused")

func TestWriteProblem_ContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteProblem(rec, ProblemDetails{
		Type:   "https://sourcemeter.dev/problems/validation-error",
		Title:  "Invalid request",
		Status: 400,
		Detail: "limit must be between 1 and 100",
	})

	if got := rec.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %q", got)
	}
	if rec.Code != 400 {
		t.Errorf("expected status 400, got %d", rec.Code)
	}

	var decoded ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if decoded.Detail != "limit must be between 1 and 100" {
		t.Errorf("unexpected detail: %q", decoded.Detail)
	}
}

func TestWrite_ProductionHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/reliability/top", nil)

	Write(rec, req, 500, "about:blank", "Internal error", errTest, "production")

	var decoded ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if decoded.Detail == errTest.Error() {
		t.Error("raw error text must not leak in production")
	}
	if decoded.Instance != "/api/v1/reliability/top" {
		t.Errorf("expected instance from request path, got %q", decoded.Instance)
	}
}
