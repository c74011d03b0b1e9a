package ws

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"foundation_backend/internal/domain"
	"foundation_backend/internal/security"
	"foundation_backend/internal/service"
)

type wsAuthError struct {
	status int
	msg    string
}

func (e wsAuthError) Error() string {
	return e.msg
}

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", wsAuthError{status: http.StatusUnauthorized, msg: "missing bearer token"}
}

func userInParticipants(userID int64, participantIDs []int64) bool {
	for _, pid := range participantIDs {
		if pid == userID {
			return true
		}
	}
	return false
}

// MakeHandler returns an HTTP handler for the /ws endpoint.
// Authenticates via Bearer token (Authorization header or Sec-WebSocket-Protocol), then dispatches events:
//   - message   -> persist & broadcast to conversation participants
//   - mark_read -> mark all unread + broadcast messages_read
//   - typing    -> forward typing indicator to other participants
func MakeHandler(
	hub *Hub,
	tokens *security.TokenService,
	users domain.UserRepository,
	participants domain.ParticipantRepository,
	msgSvc *service.MessageService,
	allowedOrigins []string,
	log zerolog.Logger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			if authErr, ok := err.(wsAuthError); ok {
				http.Error(w, authErr.msg, authErr.status)
				return
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := tokens.Parse(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		userID, err := security.Subject(claims)
		if err != nil {
			http.Error(w, "invalid token subject", http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := users.GetByID(ctx, userID)
		if err != nil || user == nil || !user.IsActive {
			http.Error(w, "user not found or inactive", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if err := users.TouchLastSeen(ctx, user.ID); err != nil {
			log.Warn().Err(err).Int64("user_id", user.ID).Msg("ws: touch last seen")
		}
		hub.Register(user.ID, conn)
		defer hub.Unregister(user.ID, conn)

		for {
			var payload map[string]any
			if err := conn.ReadJSON(&payload); err != nil {
				break
			}
			msgType, _ := payload["type"].(string)
			switch msgType {

			// ── send message ─────────────────────────────────────────────────
			case "message":
				convIDf, _ := payload["conversation_id"].(float64)
				content, _ := payload["content"].(string)
				attachmentID, _ := payload["attachment_id"].(string)
				if convIDf == 0 || (content == "" && attachmentID == "") {
					sendError(conn, "message requires conversation_id and non-empty content or attachment")
					continue
				}
				var attPtr *string
				if attachmentID != "" {
					attPtr = &attachmentID
				}
				contentType, _ := payload["message_type"].(string)
				msg, err := msgSvc.Send(ctx, user.ID, service.MessageSendInput{
					ConversationID: int64(convIDf),
					Content:        content,
					Type:           contentType,
					AttachmentID:   attPtr,
				})
				if err != nil {
					log.Warn().Err(err).Int64("user_id", user.ID).Msg("ws: send message")
					sendError(conn, "failed to send message")
					continue
				}
				// Send handles recipient fan-out; echo back to the sender's
				// own connections so every client converges.
				hub.BroadcastToUsers([]int64{user.ID}, map[string]any{
					"type":    "message",
					"message": msg,
				})

			// ── mark read ────────────────────────────────────────────────────
			case "mark_read":
				convIDf, _ := payload["conversation_id"].(float64)
				if convIDf == 0 {
					continue
				}
				convID := int64(convIDf)
				if _, err := msgSvc.MarkRead(ctx, user.ID, convID); err != nil {
					log.Warn().Err(err).Int64("user_id", user.ID).Msg("ws: mark_read")
					sendError(conn, "failed to mark messages as read")
					continue
				}
				participantIDs, _ := participants.ParticipantIDs(ctx, convID)
				hub.BroadcastToUsers(participantIDs, map[string]any{
					"type":            "messages_read",
					"conversation_id": convID,
					"user_id":         user.ID,
				})

			// ── typing indicator ─────────────────────────────────────────────
			case "typing":
				convIDf, _ := payload["conversation_id"].(float64)
				if convIDf == 0 {
					continue
				}
				convID := int64(convIDf)
				participantIDs, err := participants.ParticipantIDs(ctx, convID)
				if err != nil || !userInParticipants(user.ID, participantIDs) {
					sendError(conn, "not allowed for this conversation")
					continue
				}
				var others []int64
				for _, pid := range participantIDs {
					if pid != user.ID {
						others = append(others, pid)
					}
				}
				hub.BroadcastToUsers(others, map[string]any{
					"type":            "typing",
					"conversation_id": convID,
					"user_id":         user.ID,
					"name":            user.FullName(),
				})

			default:
				log.Debug().Str("event", msgType).Int64("user_id", user.ID).
					Msg("ws: unknown event type")
			}
		}
	}
}

func sendError(conn *websocket.Conn, msg string) {
	_ = conn.WriteJSON(map[string]any{
		"type":    "error",
		"message": msg,
	})
}
