package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/riteshkumar/greengrid/internal/models"
	u "github.com/riteshkumar/greengrid/internal/utils"
)

type NoticeFeed interface {
	Notices() []models.Notice
}

type NotificationHandler struct {
	feed   NoticeFeed
	logger *slog.Logger
}

func NewNotificationHandler(feed NoticeFeed, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		feed:   feed,
		logger: logger,
	}
}

func (h *NotificationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/notifications", h.ListNotifications).Methods(http.MethodGet)
}

// ListNotifications returns recent notices, newest first.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	u.WriteJSON(w, http.StatusOK, nonNil(h.feed.Notices()))
}
