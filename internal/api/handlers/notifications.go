package handlers

import (
	"net/http"

	"github.com/dxbintel/propsignal/internal/data/repos"
	"github.com/dxbintel/propsignal/pkg/logger"
)

// NotificationHandler serves notification read endpoints.
type NotificationHandler struct {
	notifications *repos.NotificationRepo
	logger        *logger.Logger
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(notifications *repos.NotificationRepo, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifications: notifications,
		logger:        log,
	}
}

// List returns the most recent notifications of one recipient.
// GET /api/notifications?recipient_id=u1&limit=50
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	org := orgID(r)
	if org == "" {
		respondError(w, http.StatusBadRequest, "X-Org-ID header is required")
		return
	}
	recipientID := r.URL.Query().Get("recipient_id")
	if recipientID == "" {
		respondError(w, http.StatusBadRequest, "recipient_id is required")
		return
	}
	limit := queryInt(r, "limit", 50)

	notifications, err := h.notifications.ListRecent(r.Context(), org, recipientID, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list notifications")
		respondError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
	})
}
