package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/model"
	"debttrack-api/internal/service"
)

type DebtHandler struct {
	debtService *service.DebtService
	logger      *logrus.Logger
}

func NewDebtHandler(debtService *service.DebtService, logger *logrus.Logger) *DebtHandler {
	return &DebtHandler{debtService: debtService, logger: logger}
}

func (h *DebtHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.CreateDebt).Methods("POST")
	router.HandleFunc("", h.GetUserDebts).Methods("GET")
	router.HandleFunc("/{debtId}", h.GetDebt).Methods("GET")
	router.HandleFunc("/{debtId}/status", h.UpdateStatus).Methods("PATCH")
	router.HandleFunc("/{debtId}", h.DeleteDebt).Methods("DELETE")
	router.HandleFunc("/{debtId}/transactions", h.ListTransactions).Methods("GET")
}

// RegisterTransactionRoutes registers the user-wide transaction listing.
func (h *DebtHandler) RegisterTransactionRoutes(router *mux.Router) {
	router.HandleFunc("", h.ListUserTransactions).Methods("GET")
}

func (h *DebtHandler) CreateDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req model.CreateDebtRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WithError(err).Error("Failed to decode create debt request")
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	debt, err := h.debtService.CreateDebt(r.Context(), userID, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(debt)
}

func (h *DebtHandler) GetUserDebts(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	debts, err := h.debtService.GetUserDebts(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to get debts", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(debts)
}

func (h *DebtHandler) GetDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	debtID, err := pathID(r, "debtId")
	if err != nil {
		http.Error(w, "Invalid debt ID", http.StatusBadRequest)
		return
	}

	debt, err := h.debtService.GetDebt(r.Context(), debtID, userID)
	if err != nil {
		http.Error(w, "Debt not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(debt)
}

func (h *DebtHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	debtID, err := pathID(r, "debtId")
	if err != nil {
		http.Error(w, "Invalid debt ID", http.StatusBadRequest)
		return
	}

	var req model.UpdateDebtStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if err := h.debtService.UpdateStatus(r.Context(), debtID, userID, req.Status); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": string(req.Status)})
}

func (h *DebtHandler) DeleteDebt(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	debtID, err := pathID(r, "debtId")
	if err != nil {
		http.Error(w, "Invalid debt ID", http.StatusBadRequest)
		return
	}

	if err := h.debtService.DeleteDebt(r.Context(), debtID, userID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *DebtHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	debtID, err := pathID(r, "debtId")
	if err != nil {
		http.Error(w, "Invalid debt ID", http.StatusBadRequest)
		return
	}

	transactions, err := h.debtService.ListTransactions(r.Context(), debtID, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

func (h *DebtHandler) ListUserTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	transactions, err := h.debtService.ListUserTransactions(r.Context(), userID)
	if err != nil {
		http.Error(w, "Failed to get transactions", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(transactions)
}

// pathID parses a numeric id path variable.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}
