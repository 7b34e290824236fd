package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/service"
)

type AnalyticsHandler struct {
	analyticService *service.AnalyticService
	logger          *logrus.Logger
}

func NewAnalyticsHandler(analyticService *service.AnalyticService, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analyticService: analyticService, logger: logger}
}

func (h *AnalyticsHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/summary", h.GetSummary).Methods("GET")
}

func (h *AnalyticsHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	summary, err := h.analyticService.GetPortfolioSummary(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to build portfolio summary")
		http.Error(w, "Failed to build summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summary)
}
