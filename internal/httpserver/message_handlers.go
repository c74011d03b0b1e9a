package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"foundation_backend/internal/service"
)

type messageCreateRequest struct {
	Content      string  `json:"content" validate:"required"`
	Type         string  `json:"type"`
	AttachmentID *string `json:"attachment_id"`
}

func handleCreateMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		if currentUser == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		convID, ok := conversationIDParam(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		var req messageCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := validate.Struct(req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		msg, err := msgSvc.Send(r.Context(), currentUser.ID, service.MessageSendInput{
			ConversationID: convID,
			Content:        req.Content,
			Type:           req.Type,
			AttachmentID:   req.AttachmentID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// handleListMessages streams a conversation's history oldest first.
// Non-participants and unauthenticated callers get an empty list.
func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		currentUser := CurrentUser(r)
		convID, ok := conversationIDParam(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid conversation id"})
			return
		}
		if currentUser == nil {
			writeJSON(w, http.StatusOK, []any{})
			return
		}

		// Full history by default; limit/offset are opt-in.
		limit := queryInt(r, "limit", 0)
		offset := queryInt(r, "offset", 0)

		msgs, err := msgSvc.List(r.Context(), currentUser.ID, convID, limit, offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			return i
		}
	}
	return def
}
