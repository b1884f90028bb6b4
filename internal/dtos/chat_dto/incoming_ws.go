package chat_dto

import "encoding/json"

// Server -> client event frames. newMessage carries an entity.Message payload.

const (
	EventNewMessage  = "newMessage"
	EventMessageRead = "messageRead"
)

type WSEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type MessageReadEvent struct {
	RoomID string `json:"roomId"`
	ReadBy string `json:"readBy"`
}
