package cache

import "github.com/wwoosshh/clearly-web-sub000/internal/entity"

// CacheContract is the Local Cache: last known room list and per-room message
// lists, used purely for instant first paint. It mirrors canonical state and
// is never a source of truth past hydration.
type CacheContract interface {
	GetRooms() ([]entity.Room, bool)
	PutRooms(rooms []entity.Room)
	GetMessages(roomID string) ([]entity.Message, bool)
	PutMessages(roomID string, messages []entity.Message)

	// ApplyMessages runs fn against the cached list for roomID so message
	// replacements hit the mirror with the same match rules as the live list.
	// A room with no cached list is left untouched.
	ApplyMessages(roomID string, fn func([]entity.Message) []entity.Message)
}
