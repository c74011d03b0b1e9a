package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"foundation_backend/internal/service"
)

type notificationCreateRequest struct {
	RecipientType  string     `json:"recipient_type"`
	Recipients     []int64    `json:"recipients" validate:"required,min=1"`
	Title          string     `json:"title" validate:"required"`
	Message        string     `json:"message" validate:"required"`
	Type           string     `json:"type"`
	Channels       []string   `json:"channels"`
	Priority       string     `json:"priority"`
	RequiresAction bool       `json:"requires_action"`
	ScheduledFor   *time.Time `json:"scheduled_for"`
}

func handleCreateNotification(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		var req notificationCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		notif, err := notifSvc.Create(r.Context(), currentUser.ID, service.NotificationCreateInput{
			FoundationID:   currentUser.FoundationID,
			RecipientType:  req.RecipientType,
			Recipients:     req.Recipients,
			Title:          req.Title,
			Message:        req.Message,
			Type:           req.Type,
			Channels:       req.Channels,
			Priority:       req.Priority,
			RequiresAction: req.RequiresAction,
			ScheduledFor:   req.ScheduledFor,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, notif)
	}
}

// handleListNotifications returns the caller's notifications, newest first.
func handleListNotifications(notifSvc *service.NotificationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}
		limit := queryInt(r, "limit", 50)
		notifs, err := notifSvc.ListForUser(r.Context(), currentUser.ID, currentUser.FoundationID, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, notifs)
	}
}
