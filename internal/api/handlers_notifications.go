package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/haventeam/haven/internal/api/respond"
	"github.com/haventeam/haven/internal/auth"
	"github.com/haventeam/haven/internal/services"
)

// NotificationHandler provides HTTP transport for the notification feed.
type NotificationHandler struct {
	svc      *services.NotificationService
	pageSize int
	maxPage  int
}

func NewNotificationHandler(svc *services.NotificationService, defaultPageSize, maxPageSize int) *NotificationHandler {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	if maxPageSize <= 0 {
		maxPageSize = 100
	}
	return &NotificationHandler{svc: svc, pageSize: defaultPageSize, maxPage: maxPageSize}
}

// ListNotifications GET /api/notifications?unread&page&limit
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	q := r.URL.Query()
	page := positiveInt(q.Get("page"), 1)
	limit := positiveInt(q.Get("limit"), h.pageSize)
	if limit > h.maxPage {
		limit = h.maxPage
	}
	unreadOnly := q.Get("unread") == "true"

	out, err := h.svc.List(r.Context(), actor.ID, unreadOnly, page, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

// MarkNotificationsRead PUT /api/notifications
// Body: {"notificationIds": [...]} or {"markAllAsRead": true}
func (h *NotificationHandler) MarkNotificationsRead(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	var req struct {
		NotificationIDs []string `json:"notificationIds"`
		MarkAllAsRead   bool     `json:"markAllAsRead"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	unread, err := h.svc.MarkRead(r.Context(), actor.ID, req.NotificationIDs, req.MarkAllAsRead)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"unreadCount": unread})
}

// DeleteNotifications DELETE /api/notifications
// Body: {"notificationIds": [...]} or {"deleteAll": true}
func (h *NotificationHandler) DeleteNotifications(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		respond.WriteUnauthorized(w, "authentication required")
		return
	}
	var req struct {
		NotificationIDs []string `json:"notificationIds"`
		DeleteAll       bool     `json:"deleteAll"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	deleted, err := h.svc.Delete(r.Context(), actor.ID, req.NotificationIDs, req.DeleteAll)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"deletedCount": deleted})
}

func positiveInt(v string, def int) int {
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
