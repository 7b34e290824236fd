package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"debttrack-api/internal/push"
	"debttrack-api/internal/service"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
	authService         *service.AuthService
	scheduler           *service.NotificationScheduler
	hub                 *push.Hub
	upgrader            websocket.Upgrader
	logger              *logrus.Logger
}

func NewNotificationHandler(
	notificationService *service.NotificationService,
	authService *service.AuthService,
	scheduler *service.NotificationScheduler,
	hub *push.Hub,
	logger *logrus.Logger,
) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		authService:         authService,
		scheduler:           scheduler,
		hub:                 hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger,
	}
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("", h.List).Methods("GET")
	router.HandleFunc("/{notificationId}/read", h.MarkRead).Methods("PATCH")
	router.HandleFunc("/read-all", h.MarkAllRead).Methods("POST")
	router.HandleFunc("/scan", h.TriggerScan).Methods("POST")
}

// RegisterPublicRoutes registers the websocket endpoint. Browsers cannot set
// an Authorization header on upgrade, so the token travels as a query
// parameter and is verified before upgrading.
func (h *NotificationHandler) RegisterPublicRoutes(router *mux.Router) {
	router.HandleFunc("/ws/notifications", h.Subscribe).Methods("GET")
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.notificationService.ListForUser(r.Context(), userID, unreadOnly)
	if err != nil {
		http.Error(w, "Failed to get notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notifications)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	id, err := pathID(r, "notificationId")
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), id, userID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFrom(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.notificationService.MarkAllRead(r.Context(), userID); err != nil {
		http.Error(w, "Failed to mark notifications read", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TriggerScan forces an immediate out-of-band scan without disturbing the
// recurring timer.
func (h *NotificationHandler) TriggerScan(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFrom(r); !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.scheduler.RunScan(r.Context()); err != nil {
		h.logger.WithError(err).Error("Manual notification scan failed")
		http.Error(w, "Scan failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "scan completed"})
}

// Subscribe upgrades the connection and joins the caller's broadcast group.
// The connection is held open until the client closes it; inbound messages
// are read and discarded to service control frames.
func (h *NotificationHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}

	userID, err := h.authService.ParseToken(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Error("Websocket upgrade failed")
		return
	}

	h.hub.Register(userID, conn)
	h.logger.WithField("channel", push.GroupName(userID)).Info("Websocket client subscribed")

	go func() {
		defer func() {
			h.hub.Unregister(userID, conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
