package entity

import (
	"strings"
	"time"
)

type MessageType string

const (
	MessageTypeText   MessageType = "TEXT"
	MessageTypeImage  MessageType = "IMAGE"
	MessageTypeSystem MessageType = "SYSTEM"
)

// TempIDPrefix marks client-generated placeholder ids. Server ids are never
// issued with this prefix.
const TempIDPrefix = "temp-"

// Message is a single chat entry. Append-only once it carries a server id;
// while the id is temporary it may be replaced in place by reconciliation.
type Message struct {
	ID          string      `json:"id"`
	RoomID      string      `json:"roomId"`
	SenderID    string      `json:"senderId"`
	Content     string      `json:"content"`
	MessageType MessageType `json:"messageType"`
	FileURL     *string     `json:"fileUrl,omitempty"`
	IsRead      bool        `json:"isRead"`
	CreatedAt   time.Time   `json:"createdAt"`
	Sender      Sender      `json:"sender"`
}

// IsTemp reports whether the message still awaits server confirmation.
func (m Message) IsTemp() bool {
	return IsTempID(m.ID)
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}
