package engine

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"github.com/wwoosshh/clearly-web-sub000/internal/cache"
	"github.com/wwoosshh/clearly-web-sub000/internal/dtos/chat_dto"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
	"github.com/wwoosshh/clearly-web-sub000/internal/reconcile"
	"github.com/wwoosshh/clearly-web-sub000/internal/rest"
	"github.com/wwoosshh/clearly-web-sub000/internal/socket"
)

// Engine is the active-room controller: it owns the notion of "currently open
// room" and orchestrates cache hydration, socket join/leave, background resync
// and the optimistic send pipeline across both channels.
type Engine struct {
	User entity.User

	pull  rest.PullChannelContract
	push  socket.PushChannelContract
	cache cache.CacheContract

	store    *Store
	rec      *reconcile.Reconciler
	dispatch *Dispatcher

	// selection generation, bumped on every room switch. Late fetch results
	// carrying an older generation are discarded (stale-response suppression).
	selection atomic.Uint64

	ctx context.Context
}

func NewEngine(user entity.User, pull rest.PullChannelContract, push socket.PushChannelContract, c cache.CacheContract) *Engine {
	return &Engine{
		User:     user,
		pull:     pull,
		push:     push,
		cache:    c,
		store:    NewStore(),
		rec:      reconcile.NewReconciler(),
		dispatch: NewDispatcher(),
	}
}

func (e *Engine) Store() *Store {
	return e.store
}

// Do runs fn on the serialized mutation goroutine. The transaction layer uses
// this so its room patches interleave cleanly with event handling.
func (e *Engine) Do(fn func()) {
	e.dispatch.Do(fn)
}

// Sync waits for all pending mutations. Test and shutdown barrier.
func (e *Engine) Sync() {
	e.dispatch.Sync()
}

func (e *Engine) sender() entity.Sender {
	return entity.Sender{ID: e.User.ID, Name: e.User.Name}
}

// Start wires the push-channel handlers and performs the initial room-list
// load. The socket itself is started by the caller; reconnects land in
// handleConnect.
func (e *Engine) Start(ctx context.Context) {
	e.ctx = ctx
	e.dispatch.Start(ctx)

	e.push.OnConnect(func() { e.dispatch.Do(e.handleConnect) })
	e.push.OnNewMessage(func(msg entity.Message) {
		e.dispatch.Do(func() { e.handleNewMessage(msg) })
	})
	e.push.OnMessageRead(func(ev chat_dto.MessageReadEvent) {
		e.dispatch.Do(func() { e.handleMessageRead(ev) })
	})

	e.LoadRooms()
}

// LoadRooms paints the cached room list immediately, then refreshes it from
// the pull channel in the background. A transient failure keeps the cached
// state and stays silent.
func (e *Engine) LoadRooms() {
	e.dispatch.Do(func() {
		if cached, ok := e.cache.GetRooms(); ok {
			e.store.setRooms(cached)
		}
	})

	go func() {
		rooms, appErr := e.pull.ListRooms(e.ctx)
		e.dispatch.Do(func() {
			if appErr != nil {
				if !appErr.Transient() {
					e.store.setError(appErr.Message)
				}
				log.Warn().Str("error", appErr.Message).Msg("engine: room list refresh failed, keeping cache")
				return
			}

			// The server may not have processed our markRead yet (typical
			// right after a reconnect); the open room always shows zero.
			if active := e.store.ActiveRoomID(); active != "" {
				for i := range rooms {
					if rooms[i].ID == active {
						rooms[i].UnreadCount = 0
					}
				}
			}

			e.store.setRooms(rooms)
			e.cache.PutRooms(rooms)
		})
	}()
}

// OpenCompany is the direct-navigation entry point with a target company id:
// the server creates the room on first contact or returns the existing one.
func (e *Engine) OpenCompany(companyID string) {
	go func() {
		room, appErr := e.pull.CreateRoom(e.ctx, companyID)
		if appErr != nil {
			e.dispatch.Do(func() { e.store.setError(appErr.Message) })
			return
		}
		e.dispatch.Do(func() {
			e.store.upsertRoom(*room)
			e.selectRoom(*room)
		})
	}()
}

// OpenRoom resolves an explicit room id via the pull channel before selection.
func (e *Engine) OpenRoom(roomID string) {
	go func() {
		room, appErr := e.pull.GetRoom(e.ctx, roomID)
		if appErr != nil {
			e.dispatch.Do(func() { e.store.setError(appErr.Message) })
			return
		}
		e.dispatch.Do(func() {
			e.store.upsertRoom(*room)
			e.selectRoom(*room)
		})
	}()
}

// SelectRoom switches to a room already present in the room list.
func (e *Engine) SelectRoom(roomID string) {
	e.dispatch.Do(func() {
		room, ok := e.store.Room(roomID)
		if !ok {
			log.Warn().Str("roomID", roomID).Msg("engine: select of unknown room ignored")
			return
		}
		e.selectRoom(room)
	})
}

// selectRoom runs the room-switch sequence atomically from the UI's point of
// view. Runs on the dispatcher goroutine.
func (e *Engine) selectRoom(room entity.Room) {
	prev := e.store.ActiveRoomID()
	if prev != "" && prev != room.ID {
		e.push.LeaveRoom(prev)
	}

	gen := e.selection.Add(1)

	e.store.setActive(room.ID)
	e.store.setMessages(nil)
	e.store.patchRoom(room.ID, func(r *entity.Room) { r.UnreadCount = 0 })

	if cached, ok := e.cache.GetMessages(room.ID); ok {
		e.store.setMessages(cached)
	}
	e.store.setLoading(true)

	e.push.JoinRoom(room.ID)
	e.push.MarkRead(room.ID)

	// markRead goes out on both channels, neither conditioned on the other.
	go func() {
		if appErr := e.pull.MarkRead(e.ctx, room.ID); appErr != nil {
			log.Debug().Str("roomID", room.ID).Str("error", appErr.Message).Msg("engine: rest markRead failed")
		}
	}()

	go e.fetchMessages(room.ID, gen)
}

// fetchMessages is the background resync for a newly selected room. The
// result is dropped if the selection moved on while the call was in flight.
func (e *Engine) fetchMessages(roomID string, gen uint64) {
	messages, appErr := e.pull.ListMessages(e.ctx, roomID)
	e.dispatch.Do(func() {
		if e.selection.Load() != gen || e.store.ActiveRoomID() != roomID {
			log.Debug().Str("roomID", roomID).Msg("engine: stale message fetch discarded")
			return
		}

		e.store.setLoading(false)
		if appErr != nil {
			// connectivity failures stay silent, the cached view stands;
			// a server verdict is surfaced
			if !appErr.Transient() {
				e.store.setError(appErr.Message)
			}
			log.Warn().Str("roomID", roomID).Str("error", appErr.Message).Msg("engine: message fetch failed, keeping cached view")
			return
		}

		merged := reconcile.MergeHistory(messages, e.store.Messages())
		e.store.setMessages(merged)
		e.cache.PutMessages(roomID, merged)
	})
}

// LeaveActiveRoom is the unmount path.
func (e *Engine) LeaveActiveRoom() {
	e.dispatch.Do(func() {
		active := e.store.ActiveRoomID()
		if active == "" {
			return
		}
		e.push.LeaveRoom(active)
		e.selection.Add(1)
		e.store.setActive("")
		e.store.setMessages(nil)
	})
}

// Send runs the optimistic send pipeline: append a temporary message, then
// deliver over the push channel when connected, otherwise over REST. Closed
// conversations are refused here, not just in the UI.
func (e *Engine) Send(content string, messageType entity.MessageType, fileURL *string) {
	e.dispatch.Do(func() {
		roomID := e.store.ActiveRoomID()
		if roomID == "" {
			return
		}

		if room, ok := e.store.Room(roomID); ok && room.Closed() {
			log.Warn().Str("roomID", roomID).Msg("engine: send refused, conversation closed")
			e.store.setError("this conversation has ended")
			return
		}

		temp := e.rec.NewTempMessage(roomID, e.sender(), content, messageType, fileURL)
		e.store.applyMessages(func(list []entity.Message) []entity.Message {
			return append(list, temp)
		})
		e.cache.ApplyMessages(roomID, func(list []entity.Message) []entity.Message {
			return append(list, temp)
		})
		e.patchPreview(roomID, temp)

		if e.push.Connected() {
			e.push.SendMessage(roomID, chat_dto.SendPayload{
				Content:     content,
				MessageType: temp.MessageType,
				FileURL:     fileURL,
			})
			return
		}

		go e.sendRest(roomID, temp)
	})
}

// sendRest is the pull-channel fallback delivery. On success the temporary
// message is replaced by the confirmed one; on failure it is removed and the
// text restored to the compose field for a manual retry. Never retried
// automatically.
func (e *Engine) sendRest(roomID string, temp entity.Message) {
	confirmed, appErr := e.pull.SendMessage(e.ctx, roomID, chat_dto.SendMessageRequest{
		Content:     temp.Content,
		MessageType: temp.MessageType,
		FileURL:     temp.FileURL,
	})

	e.dispatch.Do(func() {
		if appErr != nil {
			drop := func(list []entity.Message) []entity.Message {
				return reconcile.DropTemp(list, temp.ID)
			}
			if e.store.ActiveRoomID() == roomID {
				e.store.applyMessages(drop)
			}
			e.cache.ApplyMessages(roomID, drop)
			e.store.setCompose(temp.Content)
			e.store.setError(appErr.Message)
			return
		}

		resolve := func(list []entity.Message) []entity.Message {
			return reconcile.ResolveRest(list, temp.ID, *confirmed)
		}
		if e.store.ActiveRoomID() == roomID {
			e.store.applyMessages(resolve)
		}
		e.cache.ApplyMessages(roomID, resolve)
		e.patchPreview(roomID, *confirmed)
	})
}

// handleConnect runs on every (re)connect: membership for the active room is
// re-established and state lost while disconnected is resynced in the
// background.
func (e *Engine) handleConnect() {
	active := e.store.ActiveRoomID()
	if active != "" {
		e.push.JoinRoom(active)
		e.push.MarkRead(active)
		go e.fetchMessages(active, e.selection.Load())
	}
	e.LoadRooms()
}

func (e *Engine) handleNewMessage(msg entity.Message) {
	active := e.store.ActiveRoomID()

	if msg.RoomID == active {
		merge := func(list []entity.Message) []entity.Message {
			return reconcile.MergeEcho(list, msg)
		}
		e.store.applyMessages(merge)
		e.cache.ApplyMessages(msg.RoomID, merge)
		e.patchPreview(msg.RoomID, msg)

		// The room is open, so acknowledge the counterpart's message right
		// away rather than only on room entry.
		if msg.SenderID != e.User.ID {
			e.push.MarkRead(active)
		}
		return
	}

	e.store.patchRoom(msg.RoomID, func(r *entity.Room) {
		r.UnreadCount++
		r.LastMessage = msg.Content
		created := msg.CreatedAt
		r.LastSentAt = &created
	})
	e.cache.ApplyMessages(msg.RoomID, func(list []entity.Message) []entity.Message {
		return reconcile.MergeEcho(list, msg)
	})
	e.cache.PutRooms(e.store.Rooms())
}

func (e *Engine) handleMessageRead(ev chat_dto.MessageReadEvent) {
	if ev.RoomID != e.store.ActiveRoomID() {
		return
	}

	apply := func(list []entity.Message) []entity.Message {
		return reconcile.ApplyRead(list, e.User.ID, ev.ReadBy)
	}
	e.store.applyMessages(apply)
	e.cache.ApplyMessages(ev.RoomID, apply)
}

// PatchRoom applies a serialized room mutation and mirrors the room list to
// the cache. Used by the transaction state machine.
func (e *Engine) PatchRoom(roomID string, fn func(*entity.Room)) {
	e.dispatch.Do(func() {
		e.store.patchRoom(roomID, fn)
		e.cache.PutRooms(e.store.Rooms())
	})
}

func (e *Engine) patchPreview(roomID string, msg entity.Message) {
	e.store.patchRoom(roomID, func(r *entity.Room) {
		r.LastMessage = msg.Content
		created := msg.CreatedAt
		r.LastSentAt = &created
	})
	e.cache.PutRooms(e.store.Rooms())
}
