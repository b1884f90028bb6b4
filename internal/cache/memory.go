package cache

import (
	"sync"

	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
)

type MemoryCache struct {
	mu       sync.RWMutex
	rooms    []entity.Room
	hasRooms bool
	messages map[string][]entity.Message
}

func NewMemoryCache() CacheContract {
	return &MemoryCache{
		messages: make(map[string][]entity.Message),
	}
}

func (c *MemoryCache) GetRooms() ([]entity.Room, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hasRooms {
		return nil, false
	}
	out := make([]entity.Room, len(c.rooms))
	copy(out, c.rooms)
	return out, true
}

func (c *MemoryCache) PutRooms(rooms []entity.Room) {
	snapshot := make([]entity.Room, len(rooms))
	copy(snapshot, rooms)

	c.mu.Lock()
	c.rooms = snapshot
	c.hasRooms = true
	c.mu.Unlock()
}

func (c *MemoryCache) GetMessages(roomID string) ([]entity.Message, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list, ok := c.messages[roomID]
	if !ok {
		return nil, false
	}
	out := make([]entity.Message, len(list))
	copy(out, list)
	return out, true
}

func (c *MemoryCache) PutMessages(roomID string, messages []entity.Message) {
	snapshot := make([]entity.Message, len(messages))
	copy(snapshot, messages)

	c.mu.Lock()
	c.messages[roomID] = snapshot
	c.mu.Unlock()
}

func (c *MemoryCache) ApplyMessages(roomID string, fn func([]entity.Message) []entity.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list, ok := c.messages[roomID]
	if !ok {
		return
	}
	work := make([]entity.Message, len(list))
	copy(work, list)
	c.messages[roomID] = fn(work)
}
