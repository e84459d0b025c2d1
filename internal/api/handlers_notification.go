package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pawhaven/adoption-service/internal/domain"
)

// ListNotificationsHandler lists inbox notifications for the authenticated user.
func (h *Handlers) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	limit, err := parseOptionalNonNegativeInt(r.URL.Query().Get("limit"), 50)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := parseOptionalNonNegativeInt(r.URL.Query().Get("offset"), 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid offset")
		return
	}
	unreadOnly := false
	if raw := strings.TrimSpace(r.URL.Query().Get("unread_only")); raw != "" {
		unreadOnly, err = strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid unread_only")
			return
		}
	}

	items, err := h.service.ListNotifications(r.Context(), userID, domain.NotificationListOptions{
		Limit:      limit,
		Offset:     offset,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		writeServiceError(w, "list_notifications", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": nonNil(items)})
}

func (h *Handlers) UnreadNotificationCountHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	count, err := h.service.UnreadNotificationCount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "unread_notification_count", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"unread_count": count})
}

func (h *Handlers) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	notificationID, ok := uuidParam(w, r, "notificationID")
	if !ok {
		return
	}
	if err := h.service.MarkNotificationRead(r.Context(), userID, notificationID); err != nil {
		writeServiceError(w, "mark_notification_read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
