package socket

import (
	"context"

	"github.com/wwoosshh/clearly-web-sub000/internal/dtos/chat_dto"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
)

// PushChannelContract is the persistent side of the sync engine: one
// connection per authenticated session. Commands are fire and forget.
// Connection errors are logged, never surfaced; the pull channel always
// remains available as a fallback.
type PushChannelContract interface {
	Start(ctx context.Context)
	Close()
	Connected() bool

	JoinRoom(roomID string)
	LeaveRoom(roomID string)
	MarkRead(roomID string)
	SendMessage(roomID string, payload chat_dto.SendPayload)

	// OnConnect fires on every successful (re)connect so the engine can
	// re-issue joinRoom for the active room. Reconnection must not silently
	// drop room membership.
	OnConnect(fn func())
	OnNewMessage(fn func(msg entity.Message))
	OnMessageRead(fn func(ev chat_dto.MessageReadEvent))
}
