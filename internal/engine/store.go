package engine

import (
	"sync"

	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
)

// Snapshot is the render state handed to subscribers. The UI re-renders from
// this alone.
type Snapshot struct {
	Rooms        []entity.Room
	ActiveRoomID string
	Messages     []entity.Message
	Loading      bool
	ComposeText  string
	LastError    string
}

// Store is the canonical engine state plus subscriber notification. All
// mutation goes through the dispatcher, so writers are serialized; the lock
// exists for readers taking snapshots from other goroutines.
type Store struct {
	mu           sync.RWMutex
	rooms        []entity.Room
	activeRoomID string
	messages     []entity.Message
	loading      bool
	composeText  string
	lastError    string
	subscribers  []func(Snapshot)
}

func NewStore() *Store {
	return &Store{}
}

func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	s.subscribers = append(s.subscribers, fn)
	s.mu.Unlock()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	rooms := make([]entity.Room, len(s.rooms))
	copy(rooms, s.rooms)
	messages := make([]entity.Message, len(s.messages))
	copy(messages, s.messages)

	return Snapshot{
		Rooms:        rooms,
		ActiveRoomID: s.activeRoomID,
		Messages:     messages,
		Loading:      s.loading,
		ComposeText:  s.composeText,
		LastError:    s.lastError,
	}
}

func (s *Store) notify() {
	snapshot := s.snapshotLocked()
	subscribers := append([]func(Snapshot){}, s.subscribers...)

	// Subscribers run outside the mutation path on the caller's goroutine,
	// which is the dispatcher: callback-arrival order is preserved.
	s.mu.Unlock()
	for _, fn := range subscribers {
		fn(snapshot)
	}
	s.mu.Lock()
}

func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.notify()
	s.mu.Unlock()
}

func (s *Store) ActiveRoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeRoomID
}

func (s *Store) Messages() []entity.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Store) Rooms() []entity.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.Room, len(s.rooms))
	copy(out, s.rooms)
	return out
}

// Room returns the current state of one room from the room list.
func (s *Store) Room(roomID string) (entity.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, room := range s.rooms {
		if room.ID == roomID {
			return room, true
		}
	}
	return entity.Room{}, false
}

func (s *Store) setRooms(rooms []entity.Room) {
	s.mutate(func() { s.rooms = rooms })
}

// upsertRoom inserts a room resolved outside the room list (direct
// navigation) or refreshes an existing entry.
func (s *Store) upsertRoom(room entity.Room) {
	s.mutate(func() {
		for i := range s.rooms {
			if s.rooms[i].ID == room.ID {
				s.rooms[i] = room
				return
			}
		}
		s.rooms = append(s.rooms, room)
	})
}

func (s *Store) patchRoom(roomID string, fn func(*entity.Room)) {
	s.mutate(func() {
		for i := range s.rooms {
			if s.rooms[i].ID == roomID {
				fn(&s.rooms[i])
				return
			}
		}
	})
}

func (s *Store) setActive(roomID string) {
	s.mutate(func() { s.activeRoomID = roomID })
}

func (s *Store) setMessages(messages []entity.Message) {
	s.mutate(func() { s.messages = messages })
}

func (s *Store) applyMessages(fn func([]entity.Message) []entity.Message) {
	s.mutate(func() { s.messages = fn(s.messages) })
}

func (s *Store) setLoading(loading bool) {
	s.mutate(func() { s.loading = loading })
}

func (s *Store) setCompose(text string) {
	s.mutate(func() { s.composeText = text })
}

func (s *Store) setError(msg string) {
	s.mutate(func() { s.lastError = msg })
}
