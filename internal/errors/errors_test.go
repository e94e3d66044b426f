package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		err  *AppError
		want int
	}{
		{BadRequest("x"), http.StatusBadRequest},
		{Validation("x"), http.StatusBadRequest},
		{NotFound("x"), http.StatusNotFound},
		{RateLimit("x"), http.StatusTooManyRequests},
		{ServiceUnavailableWrap(nil, "x"), http.StatusServiceUnavailable},
		{Internal("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Code), func(t *testing.T) {
			if tt.err.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", tt.err.StatusCode, tt.want)
			}
		})
	}
}

func TestWriteError_AppError(t *testing.T) {
	w := httptest.NewRecorder()
	appErr := BadRequest("unknown metric").WithDetails("metric %q", "profit")

	WriteError(w, discardLogger(), fmt.Errorf("compare: %w", appErr), "req-7")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp struct {
		Success bool `json:"success"`
		Error   struct {
			Code      string `json:"code"`
			Details   string `json:"details"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Error.Code != string(CodeBadRequest) || resp.Error.RequestID != "req-7" {
		t.Errorf("unexpected error body: %+v", resp.Error)
	}
	if resp.Error.Details != `metric "profit"` {
		t.Errorf("details = %q", resp.Error.Details)
	}
	if appErr.RequestID != "" {
		t.Error("WriteError should not modify the original error")
	}
}

func TestWriteError_PlainErrorIsInternal(t *testing.T) {
	w := httptest.NewRecorder()

	WriteError(w, discardLogger(), io.ErrUnexpectedEOF, "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestWriteSuccessWithHeaders(t *testing.T) {
	w := httptest.NewRecorder()

	WriteSuccessWithHeaders(w, []int{1, 2}, map[string]string{"Cache-Control": "no-store"})

	if w.Header().Get("Cache-Control") != "no-store" {
		t.Errorf("cache-control = %q", w.Header().Get("Cache-Control"))
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content-type = %q", w.Header().Get("Content-Type"))
	}
	if got := w.Body.String(); got != "{\"data\":[1,2],\"success\":true}\n" {
		t.Errorf("body = %q", got)
	}
}
