package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
	"debttrack-api/internal/service"
)

type CreditHandler struct {
	creditService *service.CreditService
	logger        *logrus.Logger
}

func NewCreditHandler(creditService *service.CreditService, logger *logrus.Logger) *CreditHandler {
	return &CreditHandler{creditService: creditService, logger: logger}
}

func (h *CreditHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.CreateCredit).Methods("POST")
	router.HandleFunc("", h.GetUserCredits).Methods("GET")
	router.HandleFunc("/{creditId}", h.GetCredit).Methods("GET")
	router.HandleFunc("/{creditId}/amount", h.UpdateAmount).Methods("PATCH")
	router.HandleFunc("/{creditId}/status", h.UpdateStatus).Methods("PATCH")
}

func (h *CreditHandler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req model.CreateCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode create credit request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	credit, err := h.creditService.CreateCredit(r.Context(), userID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(credit)
}

func (h *CreditHandler) GetUserCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	credits, err := h.creditService.GetUserCredits(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to get credits", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(credits)
}

func (h *CreditHandler) GetCredit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	creditID, err := pathID(r, "creditId")
	if err != nil {
		http.Error(w, "Invalid credit ID", http.StatusBadRequest)
		return
	}

	credit, err := h.creditService.GetCredit(r.Context(), creditID, userID)
	if err != nil {
		http.Error(w, "Credit not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(credit)
}

func (h *CreditHandler) UpdateAmount(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	creditID, err := pathID(r, "creditId")
	if err != nil {
		http.Error(w, "Invalid credit ID", http.StatusBadRequest)
		return
	}

	var req model.UpdateCreditAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	credit, err := h.creditService.UpdateAmount(r.Context(), creditID, userID, req.Amount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(credit)
}

func (h *CreditHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	creditID, err := pathID(r, "creditId")
	if err != nil {
		http.Error(w, "Invalid credit ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status model.CreditStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := h.creditService.UpdateStatus(r.Context(), creditID, userID, req.Status); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": string(req.Status)})
}
