package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLoopbackOnlyAllowsLoopbackAddresses(t *testing.T) {
	h := LoopbackOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, addr := range []string{"127.0.0.1:5000", "[::1]:5000"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/executePayouts", nil)
		req.RemoteAddr = addr
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("addr %s: status = %d, want 200", addr, rec.Code)
		}
	}
}

func TestLoopbackOnlyRejectsRemoteAddresses(t *testing.T) {
	h := LoopbackOnly(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/executePayouts", nil)
	req.RemoteAddr = "203.0.113.9:12345"
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestExtractIPHandlesMissingPort(t *testing.T) {
	if got := extractIP("not-a-host-port"); got != "not-a-host-port" {
		t.Errorf("extractIP() = %q, want fallback to raw input", got)
	}
}
