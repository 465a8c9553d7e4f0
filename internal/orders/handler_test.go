package orders

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler() *Handler {
	// Validation failures never reach the repository.
	return NewHandler(nil, nil, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandler_HandleCreate_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed json", `{`, "invalid request body"},
		{"unknown field", `{"email": "a@b.c", "items": [], "note": "hi"}`, "invalid request body"},
		{"missing email", `{"items": [{"uuid": "c1f9e7a0-9a7e-4a44-b4e5-000000000001", "quantity": 1}]}`, "email is required"},
		{"missing items", `{"email": "a@b.c"}`, "items is required"},
		{"malformed item uuid", `{"email": "a@b.c", "items": [{"uuid": "nope", "quantity": 1}]}`, "invalid item uuid"},
		{"zero quantity", `{"email": "a@b.c", "items": [{"uuid": "c1f9e7a0-9a7e-4a44-b4e5-000000000001", "quantity": 0}]}`, "item quantity must be at least 1"},
		{"negative quantity", `{"email": "a@b.c", "items": [{"uuid": "c1f9e7a0-9a7e-4a44-b4e5-000000000001", "quantity": -2}]}`, "item quantity must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newTestHandler()

			req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			handler.HandleCreate(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
			}

			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp["error"] != tt.want {
				t.Errorf("expected error %q, got %q", tt.want, resp["error"])
			}
		})
	}
}

func TestHandler_HandleUpdate_Validation(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /orders/{uuid}", newTestHandler().HandleUpdate)

	t.Run("rejects statuses other than CANCELLED", func(t *testing.T) {
		for _, body := range []string{`{"status": "PLACED"}`, `{"status": "SHIPPED"}`, `{}`} {
			req := httptest.NewRequest(http.MethodPut, "/orders/c1f9e7a0-9a7e-4a44-b4e5-000000000001", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %s: expected status 400, got %d", body, rec.Code)
			}
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/orders/c1f9e7a0-9a7e-4a44-b4e5-000000000001", strings.NewReader(`{"status": "CANCELLED", "reason": "x"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("malformed uuid reports not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/orders/nope", strings.NewReader(`{"status": "CANCELLED"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}
