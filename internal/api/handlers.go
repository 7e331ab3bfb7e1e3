package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/punchamoorthee/paycore/internal/domain"
	"github.com/punchamoorthee/paycore/internal/provider/openpay"
	"github.com/punchamoorthee/paycore/internal/service"
	"github.com/punchamoorthee/paycore/internal/store"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paycore_http_requests_total",
		Help: "Total HTTP requests processed, labeled by status code",
	}, []string{"method", "endpoint", "status"})

	webhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paycore_webhook_duration_seconds",
		Help:    "Latency distribution of webhook processing",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"outcome"})
)

type Handler struct {
	pipeline *service.Pipeline
	orch     *service.Orchestrator
	store    *store.Store
	mirror   *store.EventMirror
	log      *zap.Logger

	// webhookSecret enables inbound signature verification when non-empty.
	webhookSecret []byte
}

func NewHandler(pipeline *service.Pipeline, orch *service.Orchestrator, s *store.Store, mirror *store.EventMirror, webhookSecret string, log *zap.Logger) *Handler {
	return &Handler{
		pipeline:      pipeline,
		orch:          orch,
		store:         s,
		mirror:        mirror,
		webhookSecret: []byte(webhookSecret),
		log:           log,
	}
}

func (h *Handler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// WebhookHandler receives one payment-network notification and runs the
// ingestion pipeline. Duplicates are acknowledged with 200 so the network
// stops redelivering.
func (h *Handler) WebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/webhooks/payments", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, "Stream read error")
		return
	}

	if len(h.webhookSecret) > 0 {
		sig := r.Header.Get("Signature")
		if sig == "" || !openpay.VerifySignature(h.webhookSecret, sig, body) {
			httpRequestsTotal.WithLabelValues("POST", "/webhooks/payments", "401").Inc()
			respondWithError(w, http.StatusUnauthorized, "Invalid webhook signature")
			return
		}
	}

	start := time.Now()
	res, err := h.pipeline.HandleWebhook(r.Context(), body)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			webhookDuration.WithLabelValues("validation_error").Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues("POST", "/webhooks/payments", "400").Inc()
			respondWithError(w, http.StatusBadRequest, err.Error())
		default:
			webhookDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			h.log.Error("webhook processing failed", zap.Error(err))
			httpRequestsTotal.WithLabelValues("POST", "/webhooks/payments", "500").Inc()
			respondWithError(w, http.StatusInternalServerError, "Webhook processing failed")
		}
		return
	}
	webhookDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	if res.Duplicate {
		httpRequestsTotal.WithLabelValues("POST", "/webhooks/payments", "200").Inc()
		respondWithJSON(w, http.StatusOK, res)
		return
	}
	httpRequestsTotal.WithLabelValues("POST", "/webhooks/payments", "201").Inc()
	respondWithJSON(w, http.StatusCreated, res)
}

type decisionRequest struct {
	Decision string `json:"decision"`
	Reviewer string `json:"reviewer"`
	Notes    string `json:"notes"`
}

// DecisionHandler applies a reviewer's approve/reject decision.
func (h *Handler) DecisionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/payments/{id}/decision", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "Invalid payment id")
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpRequestsTotal.WithLabelValues("POST", "/payments/{id}/decision", "400").Inc()
		respondWithError(w, http.StatusBadRequest, "Malformed JSON body")
		return
	}
	if req.Reviewer == "" {
		httpRequestsTotal.WithLabelValues("POST", "/payments/{id}/decision", "422").Inc()
		respondWithError(w, http.StatusUnprocessableEntity, "Reviewer required")
		return
	}

	var payment *domain.PendingPayment
	switch req.Decision {
	case "approve":
		payment, err = h.orch.Approve(r.Context(), id, req.Reviewer, req.Notes)
	case "reject":
		payment, err = h.orch.Reject(r.Context(), id, req.Reviewer, req.Notes)
	default:
		httpRequestsTotal.WithLabelValues("POST", "/payments/{id}/decision", "422").Inc()
		respondWithError(w, http.StatusUnprocessableEntity, "Decision must be approve or reject")
		return
	}

	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyDecided):
			httpRequestsTotal.WithLabelValues("POST", "/payments/{id}/decision", "409").Inc()
			respondWithError(w, http.StatusConflict, "Payment already decided")
		case errors.Is(err, domain.ErrPaymentNotFound):
			httpRequestsTotal.WithLabelValues("POST", "/payments/{id}/decision", "404").Inc()
			respondWithError(w, http.StatusNotFound, "Payment not found")
		default:
			h.log.Error("decision failed", zap.Int64("payment_id", id), zap.Error(err))
			httpRequestsTotal.WithLabelValues("POST", "/payments/{id}/decision", "500").Inc()
			respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		}
		return
	}

	httpRequestsTotal.WithLabelValues("POST", "/payments/{id}/decision", "200").Inc()
	respondWithJSON(w, http.StatusOK, payment)
}

func (h *Handler) ListPendingHandler(w http.ResponseWriter, r *http.Request) {
	payments, err := h.store.ListPendingPayments(r.Context(), domain.PaymentStatusPending, 100)
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/payments/pending", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	httpRequestsTotal.WithLabelValues("GET", "/payments/pending", "200").Inc()
	respondWithJSON(w, http.StatusOK, payments)
}

func (h *Handler) GetPaymentHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid payment id")
		return
	}
	payment, err := h.store.GetPendingPayment(r.Context(), id)
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/payments/{id}", "404").Inc()
		respondWithError(w, http.StatusNotFound, "Payment not found")
		return
	}
	httpRequestsTotal.WithLabelValues("GET", "/payments/{id}", "200").Inc()
	respondWithJSON(w, http.StatusOK, payment)
}

func (h *Handler) GetEventHandler(w http.ResponseWriter, r *http.Request) {
	ev, err := h.store.GetEvent(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/events/{id}", "404").Inc()
		respondWithError(w, http.StatusNotFound, "Event not found")
		return
	}
	httpRequestsTotal.WithLabelValues("GET", "/events/{id}", "200").Inc()
	respondWithJSON(w, http.StatusOK, ev)
}

func (h *Handler) RecentEventsHandler(w http.ResponseWriter, r *http.Request) {
	ids, err := h.mirror.Recent(r.Context(), 50)
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/events/recent", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, "Mirror unavailable")
		return
	}
	httpRequestsTotal.WithLabelValues("GET", "/events/recent", "200").Inc()
	respondWithJSON(w, http.StatusOK, map[string]any{"event_ids": ids})
}

func (h *Handler) GetAccountHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid account id")
		return
	}
	account, err := h.store.GetAccount(r.Context(), id)
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}", "404").Inc()
		respondWithError(w, http.StatusNotFound, "Account not found")
		return
	}
	httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}", "200").Inc()
	respondWithJSON(w, http.StatusOK, account)
}

func (h *Handler) GetAccountTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid account id")
		return
	}
	txs, err := h.store.GetAccountTransactions(r.Context(), id, 100)
	if err != nil {
		httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}/transactions", "500").Inc()
		respondWithError(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}
	httpRequestsTotal.WithLabelValues("GET", "/accounts/{id}/transactions", "200").Inc()
	respondWithJSON(w, http.StatusOK, txs)
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
