package chat_dto

import "github.com/wwoosshh/clearly-web-sub000/internal/entity"

// Client -> server command frames. Commands are fire and forget; the server
// echoes persisted messages back as newMessage events to every room member,
// sender included.

const (
	CommandJoinRoom    = "joinRoom"
	CommandLeaveRoom   = "leaveRoom"
	CommandMarkRead    = "markRead"
	CommandSendMessage = "sendMessage"
)

type WSCommand struct {
	Event   string       `json:"event"`
	RoomID  string       `json:"roomId"`
	Payload *SendPayload `json:"payload,omitempty"`
}

type SendPayload struct {
	Content     string             `json:"content"`
	MessageType entity.MessageType `json:"messageType,omitempty"`
	FileURL     *string            `json:"fileUrl,omitempty"`
}
