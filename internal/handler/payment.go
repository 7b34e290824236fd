package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
	"debttrack-api/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
	production     bool
	logger         *logrus.Logger
}

func NewPaymentHandler(paymentService *service.PaymentService, production bool, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		production:     production,
		logger:         logger,
	}
}

// RegisterRoutes registers the authenticated payment routes.
func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/initiate", h.InitiatePayment).Methods("POST")
}

// RegisterPublicRoutes registers the routes the gateway calls directly.
func (h *PaymentHandler) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/kcb/callback", h.HandleCallback).Methods("POST")
	router.HandleFunc("/dev/complete", h.DevComplete).Methods("POST")
}

func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req model.InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode initiate payment request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	resp, err := h.paymentService.InitiatePayment(r.Context(), userID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(resp)
}

// HandleCallback ingests the gateway's settlement report. It always
// acknowledges: a correlation miss is a local reporting gap to investigate,
// and surfacing it as an error would only trigger gateway-side retry storms.
// Safe to receive concurrently for different correlation ids.
func (h *PaymentHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	var cb model.GatewayCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		h.logger.WithError(err).Error("Failed to decode gateway callback")
		http.Error(w, "Invalid callback payload", http.StatusBadRequest)
		return
	}

	if err := h.paymentService.Reconcile(r.Context(), cb); err != nil {
		// Logged for follow-up, still acknowledged.
		h.logger.WithError(err).WithField("transaction_ref", cb.TransactionRef).
			Error("Reconciliation failed internally")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"ResultCode": 0,
		"ResultDesc": "Accepted",
	})
}

// DevComplete manually settles a pending transaction. Disabled in production.
func (h *PaymentHandler) DevComplete(w http.ResponseWriter, r *http.Request) {
	if h.production {
		http.Error(w, "Not available in production", http.StatusForbidden)
		return
	}

	var req model.DevCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	ref := req.TransactionRef
	if ref == "" {
		ref = req.PaymentID
	}

	if err := h.paymentService.DevComplete(r.Context(), ref); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "completed"})
}
