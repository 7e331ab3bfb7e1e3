package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paycore/internal/provider/openpay"
)

func newRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/webhooks/payments", h.WebhookHandler).Methods("POST")
	r.HandleFunc("/api/v1/payments/{id}/decision", h.DecisionHandler).Methods("POST")
	return r
}

func TestWebhookSignatureGate(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, "hook-secret", zap.NewNop())
	router := newRouter(h)
	body := `{"id":"evt-1","type":"incoming.payment.completed"}`

	t.Run("missing signature rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhooks/payments", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("bad signature rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/webhooks/payments", strings.NewReader(body))
		req.Header.Set("Signature", "t=1700000000000, v1=deadbeef")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("signature over different body rejected", func(t *testing.T) {
		sig := openpay.SignatureHeader([]byte("hook-secret"), []byte(`{"id":"other"}`), time.Now())
		req := httptest.NewRequest("POST", "/webhooks/payments", strings.NewReader(body))
		req.Header.Set("Signature", sig)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})
}

func TestDecisionHandlerValidation(t *testing.T) {
	h := NewHandler(nil, nil, nil, nil, "", zap.NewNop())
	router := newRouter(h)

	cases := []struct {
		name string
		url  string
		body string
		want int
	}{
		{"non-numeric id", "/api/v1/payments/abc/decision", `{"decision":"approve","reviewer":"r"}`, http.StatusBadRequest},
		{"malformed body", "/api/v1/payments/1/decision", `{`, http.StatusBadRequest},
		{"missing reviewer", "/api/v1/payments/1/decision", `{"decision":"approve"}`, http.StatusUnprocessableEntity},
		{"unknown decision", "/api/v1/payments/1/decision", `{"decision":"defer","reviewer":"r"}`, http.StatusUnprocessableEntity},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", c.url, strings.NewReader(c.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != c.want {
				t.Fatalf("status = %d, want %d", rec.Code, c.want)
			}
		})
	}
}
