package service

// Broadcaster pushes real-time events to connected clients. The WebSocket
// hub satisfies this; services treat it as optional.
type Broadcaster interface {
	BroadcastToUsers(userIDs []int64, payload any)
}
