package engine

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wwoosshh/clearly-web-sub000/internal/cache"
	"github.com/wwoosshh/clearly-web-sub000/internal/dtos/chat_dto"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
	app_error "github.com/wwoosshh/clearly-web-sub000/internal/errors"
)

const (
	userID    = "user-1"
	companyID = "company-1"
	roomA     = "room-a"
	roomB     = "room-b"
)

var testUser = entity.User{ID: userID, Name: "Kim", Role: entity.RoleCustomer}

// fakePull is an in-memory PullChannelContract with per-call hooks.
type fakePull struct {
	mu            sync.Mutex
	rooms         []entity.Room
	messages      map[string][]entity.Message
	markReadCalls []string

	listMessagesHook func(roomID string) ([]entity.Message, *app_error.AppError)
	sendHook         func(roomID string, req chat_dto.SendMessageRequest) (*entity.Message, *app_error.AppError)
}

func newFakePull() *fakePull {
	return &fakePull{messages: make(map[string][]entity.Message)}
}

func (f *fakePull) ListRooms(ctx context.Context) ([]entity.Room, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.Room, len(f.rooms))
	copy(out, f.rooms)
	return out, nil
}

func (f *fakePull) CreateRoom(ctx context.Context, companyID string) (*entity.Room, *app_error.AppError) {
	room := entity.Room{ID: "room-" + companyID, UserID: userID, CompanyID: companyID}
	return &room, nil
}

func (f *fakePull) GetRoom(ctx context.Context, roomID string) (*entity.Room, *app_error.AppError) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, room := range f.rooms {
		if room.ID == roomID {
			r := room
			return &r, nil
		}
	}
	return nil, app_error.NewAppError(http.StatusNotFound, "room not found", "not-found")
}

func (f *fakePull) ListMessages(ctx context.Context, roomID string) ([]entity.Message, *app_error.AppError) {
	f.mu.Lock()
	hook := f.listMessagesHook
	list := append([]entity.Message{}, f.messages[roomID]...)
	f.mu.Unlock()

	if hook != nil {
		return hook(roomID)
	}
	return list, nil
}

func (f *fakePull) SendMessage(ctx context.Context, roomID string, req chat_dto.SendMessageRequest) (*entity.Message, *app_error.AppError) {
	f.mu.Lock()
	hook := f.sendHook
	f.mu.Unlock()

	if hook != nil {
		return hook(roomID, req)
	}
	msg := entity.Message{ID: "srv-1", RoomID: roomID, SenderID: userID, Content: req.Content, MessageType: entity.MessageTypeText, CreatedAt: time.Now()}
	return &msg, nil
}

func (f *fakePull) MarkRead(ctx context.Context, roomID string) *app_error.AppError {
	f.mu.Lock()
	f.markReadCalls = append(f.markReadCalls, roomID)
	f.mu.Unlock()
	return nil
}

func (f *fakePull) Decline(ctx context.Context, roomID string) (*chat_dto.DeclineResponse, *app_error.AppError) {
	return &chat_dto.DeclineResponse{}, nil
}

func (f *fakePull) Complete(ctx context.Context, roomID string) (*chat_dto.CompleteResponse, *app_error.AppError) {
	return &chat_dto.CompleteResponse{MatchingID: "matching-1", CompanyID: companyID}, nil
}

func (f *fakePull) ReportCompletion(ctx context.Context, matchingID string, req chat_dto.ReportCompletionRequest) *app_error.AppError {
	return nil
}

func (f *fakePull) ConfirmCompletion(ctx context.Context, matchingID string) *app_error.AppError {
	return nil
}

func (f *fakePull) ReportAbuse(ctx context.Context, req chat_dto.ReportAbuseRequest) *app_error.AppError {
	return nil
}

// fakePush records commands and lets tests fire server events.
type fakePush struct {
	mu        sync.Mutex
	connected bool
	joins     []string
	leaves    []string
	markReads []string
	sends     []chat_dto.SendPayload

	onConnect     []func()
	onNewMessage  []func(entity.Message)
	onMessageRead []func(chat_dto.MessageReadEvent)
}

func (f *fakePush) Start(ctx context.Context) {}
func (f *fakePush) Close()                    {}

func (f *fakePush) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakePush) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *fakePush) JoinRoom(roomID string) {
	f.mu.Lock()
	f.joins = append(f.joins, roomID)
	f.mu.Unlock()
}

func (f *fakePush) LeaveRoom(roomID string) {
	f.mu.Lock()
	f.leaves = append(f.leaves, roomID)
	f.mu.Unlock()
}

func (f *fakePush) MarkRead(roomID string) {
	f.mu.Lock()
	f.markReads = append(f.markReads, roomID)
	f.mu.Unlock()
}

func (f *fakePush) SendMessage(roomID string, payload chat_dto.SendPayload) {
	f.mu.Lock()
	f.sends = append(f.sends, payload)
	f.mu.Unlock()
}

func (f *fakePush) OnConnect(fn func()) { f.onConnect = append(f.onConnect, fn) }

func (f *fakePush) OnNewMessage(fn func(entity.Message)) {
	f.onNewMessage = append(f.onNewMessage, fn)
}

func (f *fakePush) OnMessageRead(fn func(chat_dto.MessageReadEvent)) {
	f.onMessageRead = append(f.onMessageRead, fn)
}

func (f *fakePush) fireConnect() {
	for _, fn := range f.onConnect {
		fn()
	}
}

func (f *fakePush) fireNewMessage(msg entity.Message) {
	for _, fn := range f.onNewMessage {
		fn(msg)
	}
}

func (f *fakePush) fireMessageRead(ev chat_dto.MessageReadEvent) {
	for _, fn := range f.onMessageRead {
		fn(ev)
	}
}

func (f *fakePush) joinCount(roomID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.joins {
		if id == roomID {
			n++
		}
	}
	return n
}

func newTestEngine(t *testing.T, rooms ...entity.Room) (*Engine, *fakePull, *fakePush) {
	t.Helper()

	pull := newFakePull()
	pull.rooms = rooms
	push := &fakePush{}

	eng := NewEngine(testUser, pull, push, cache.NewMemoryCache())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	eng.Start(ctx)

	require.Eventually(t, func() bool {
		return len(eng.Store().Rooms()) == len(rooms)
	}, 2*time.Second, 10*time.Millisecond, "initial room list load")

	return eng, pull, push
}

func openRoom(t *testing.T, eng *Engine, roomID string) {
	t.Helper()
	eng.SelectRoom(roomID)
	require.Eventually(t, func() bool {
		snap := eng.Store().Snapshot()
		return snap.ActiveRoomID == roomID && !snap.Loading
	}, 2*time.Second, 10*time.Millisecond, "room %s should finish opening", roomID)
}

func TestSendWhileConnected_EchoReplacesOptimisticMessage(t *testing.T) {
	eng, _, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID})
	push.setConnected(true)
	openRoom(t, eng, roomA)

	eng.Send("hello", entity.MessageTypeText, nil)

	require.Eventually(t, func() bool {
		msgs := eng.Store().Messages()
		return len(msgs) == 1 && msgs[0].IsTemp()
	}, 2*time.Second, 10*time.Millisecond, "temp- message appears immediately")

	push.mu.Lock()
	sent := len(push.sends)
	push.mu.Unlock()
	assert.Equal(t, 1, sent, "delivery went over the push channel")

	push.fireNewMessage(entity.Message{ID: "srv-1", RoomID: roomA, SenderID: userID, Content: "hello", MessageType: entity.MessageTypeText, CreatedAt: time.Now()})

	require.Eventually(t, func() bool {
		msgs := eng.Store().Messages()
		return len(msgs) == 1 && msgs[0].ID == "srv-1"
	}, 2*time.Second, 10*time.Millisecond, "echo replaces the placeholder, list length unchanged")
}

func TestSendWhileDisconnected_RestReplacesTemp(t *testing.T) {
	eng, _, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID})
	push.setConnected(false)
	openRoom(t, eng, roomA)

	eng.Send("hello", entity.MessageTypeText, nil)

	require.Eventually(t, func() bool {
		msgs := eng.Store().Messages()
		return len(msgs) == 1 && msgs[0].ID == "srv-1"
	}, 2*time.Second, 10*time.Millisecond, "REST response replaces the temp in place")

	push.mu.Lock()
	sent := len(push.sends)
	push.mu.Unlock()
	assert.Zero(t, sent, "no push command while disconnected")
}

func TestSendFailure_TempRemovedAndComposeRestored(t *testing.T) {
	eng, pull, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID})
	push.setConnected(false)
	pull.sendHook = func(roomID string, req chat_dto.SendMessageRequest) (*entity.Message, *app_error.AppError) {
		return nil, app_error.NewAppError(http.StatusBadRequest, "message rejected", "content")
	}
	openRoom(t, eng, roomA)

	eng.Send("hello", entity.MessageTypeText, nil)

	require.Eventually(t, func() bool {
		snap := eng.Store().Snapshot()
		return len(snap.Messages) == 0 && snap.ComposeText == "hello"
	}, 2*time.Second, 10*time.Millisecond, "failed send removes the temp and restores the compose field")

	assert.Equal(t, "message rejected", eng.Store().Snapshot().LastError)
}

func TestStaleMessageFetchIsDiscarded(t *testing.T) {
	releaseA := make(chan struct{})
	eng, pull, _ := newTestEngine(t,
		entity.Room{ID: roomA, UserID: userID, CompanyID: companyID},
		entity.Room{ID: roomB, UserID: userID, CompanyID: "company-2"},
	)

	pull.mu.Lock()
	pull.listMessagesHook = func(roomID string) ([]entity.Message, *app_error.AppError) {
		if roomID == roomA {
			<-releaseA
			return []entity.Message{{ID: "a-1", RoomID: roomA, SenderID: companyID, Content: "from A"}}, nil
		}
		return []entity.Message{{ID: "b-1", RoomID: roomB, SenderID: "company-2", Content: "from B"}}, nil
	}
	pull.mu.Unlock()

	eng.SelectRoom(roomA)
	openRoom(t, eng, roomB)
	close(releaseA)

	// give room A's late response every chance to land before asserting
	time.Sleep(100 * time.Millisecond)
	eng.Sync()

	snap := eng.Store().Snapshot()
	assert.Equal(t, roomB, snap.ActiveRoomID)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, "b-1", snap.Messages[0].ID, "room A's late fetch must not leak into room B's view")
}

func TestOpenRoom_ZeroesUnreadAndJoins(t *testing.T) {
	eng, pull, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID, UnreadCount: 4})

	openRoom(t, eng, roomA)

	room, ok := eng.Store().Room(roomA)
	require.True(t, ok)
	assert.Zero(t, room.UnreadCount)

	assert.Equal(t, 1, push.joinCount(roomA))
	push.mu.Lock()
	assert.Contains(t, push.markReads, roomA, "markRead on the push channel")
	push.mu.Unlock()

	require.Eventually(t, func() bool {
		pull.mu.Lock()
		defer pull.mu.Unlock()
		for _, id := range pull.markReadCalls {
			if id == roomA {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond, "markRead on the pull channel too")
}

func TestRoomSwitch_LeavesPreviousRoom(t *testing.T) {
	eng, _, push := newTestEngine(t,
		entity.Room{ID: roomA, UserID: userID, CompanyID: companyID},
		entity.Room{ID: roomB, UserID: userID, CompanyID: "company-2"},
	)

	openRoom(t, eng, roomA)
	openRoom(t, eng, roomB)

	push.mu.Lock()
	defer push.mu.Unlock()
	assert.Contains(t, push.leaves, roomA)
}

func TestMessageRead_OnlyCounterpartFlipsOwnMessages(t *testing.T) {
	eng, pull, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID})
	pull.mu.Lock()
	pull.messages[roomA] = []entity.Message{
		{ID: "m1", RoomID: roomA, SenderID: userID, Content: "mine"},
		{ID: "m2", RoomID: roomA, SenderID: companyID, Content: "theirs"},
	}
	pull.mu.Unlock()
	openRoom(t, eng, roomA)

	// self-echo first: nothing may change
	push.fireMessageRead(chat_dto.MessageReadEvent{RoomID: roomA, ReadBy: userID})
	eng.Sync()
	msgs := eng.Store().Messages()
	assert.False(t, msgs[0].IsRead)

	push.fireMessageRead(chat_dto.MessageReadEvent{RoomID: roomA, ReadBy: companyID})
	require.Eventually(t, func() bool {
		msgs := eng.Store().Messages()
		return msgs[0].IsRead
	}, 2*time.Second, 10*time.Millisecond)

	msgs = eng.Store().Messages()
	assert.False(t, msgs[1].IsRead, "counterpart's own messages never flip")
}

func TestForeignMessageInInactiveRoom_BumpsUnread(t *testing.T) {
	eng, _, push := newTestEngine(t,
		entity.Room{ID: roomA, UserID: userID, CompanyID: companyID},
		entity.Room{ID: roomB, UserID: userID, CompanyID: "company-2"},
	)
	openRoom(t, eng, roomA)

	push.fireNewMessage(entity.Message{ID: "m9", RoomID: roomB, SenderID: "company-2", Content: "new offer", CreatedAt: time.Now()})
	eng.Sync()

	room, ok := eng.Store().Room(roomB)
	require.True(t, ok)
	assert.Equal(t, 1, room.UnreadCount)
	assert.Equal(t, "new offer", room.LastMessage)

	activeRoom, _ := eng.Store().Room(roomA)
	assert.Zero(t, activeRoom.UnreadCount, "active room unread stays zero")
}

func TestCounterpartMessageInActiveRoom_ReacksImmediately(t *testing.T) {
	eng, _, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID})
	openRoom(t, eng, roomA)

	push.mu.Lock()
	before := len(push.markReads)
	push.mu.Unlock()

	push.fireNewMessage(entity.Message{ID: "m5", RoomID: roomA, SenderID: companyID, Content: "hi", CreatedAt: time.Now()})
	eng.Sync()

	push.mu.Lock()
	after := len(push.markReads)
	push.mu.Unlock()
	assert.Greater(t, after, before, "markRead re-emitted while the room is open")
}

func TestSendRefusedOnceConversationClosed(t *testing.T) {
	completed := entity.Matching{ID: "matching-1", Status: entity.MatchingCompleted}
	eng, _, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID, Matching: &completed})
	push.setConnected(true)
	openRoom(t, eng, roomA)

	eng.Send("hello?", entity.MessageTypeText, nil)
	eng.Sync()

	assert.Empty(t, eng.Store().Messages(), "no optimistic append for a closed conversation")
	push.mu.Lock()
	assert.Empty(t, push.sends, "no sendMessage command issued")
	push.mu.Unlock()
}

func TestSendRefusedWhenBothDeclined(t *testing.T) {
	eng, _, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID, UserDeclined: true, CompanyDeclined: true})
	push.setConnected(true)
	openRoom(t, eng, roomA)

	eng.Send("hello?", entity.MessageTypeText, nil)
	eng.Sync()

	assert.Empty(t, eng.Store().Messages())
}

func TestReconnect_RejoinsActiveRoom(t *testing.T) {
	eng, _, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID})
	openRoom(t, eng, roomA)
	require.Equal(t, 1, push.joinCount(roomA))

	push.fireConnect()
	eng.Sync()

	assert.Equal(t, 2, push.joinCount(roomA), "reconnection must not silently drop room membership")
}

func TestOpenCompany_CreatesAndSelectsRoom(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	eng.OpenCompany(companyID)

	require.Eventually(t, func() bool {
		return eng.Store().ActiveRoomID() == "room-"+companyID
	}, 2*time.Second, 10*time.Millisecond, "direct navigation auto-creates and selects the room")
}

func TestReconnectRefresh_ActiveRoomUnreadStaysZero(t *testing.T) {
	eng, pull, push := newTestEngine(t,
		entity.Room{ID: roomA, UserID: userID, CompanyID: companyID},
		entity.Room{ID: roomB, UserID: userID, CompanyID: "company-2"},
	)
	openRoom(t, eng, roomA)

	// the server has not processed our markRead yet, so its room list still
	// carries a stale count for the open room
	pull.mu.Lock()
	pull.rooms = []entity.Room{
		{ID: roomA, UserID: userID, CompanyID: companyID, UnreadCount: 3, LastMessage: "while away"},
		{ID: roomB, UserID: userID, CompanyID: "company-2", UnreadCount: 2},
	}
	pull.mu.Unlock()

	push.fireConnect()

	require.Eventually(t, func() bool {
		room, ok := eng.Store().Room(roomA)
		return ok && room.LastMessage == "while away"
	}, 2*time.Second, 10*time.Millisecond, "reconnect refresh landed")

	room, _ := eng.Store().Room(roomA)
	assert.Zero(t, room.UnreadCount, "open room always shows zero, whatever the server says")

	other, _ := eng.Store().Room(roomB)
	assert.Equal(t, 2, other.UnreadCount, "inactive rooms keep the server's count")
}

func TestMessageFetchFailure_SurfacesOnlyServerVerdicts(t *testing.T) {
	eng, pull, _ := newTestEngine(t,
		entity.Room{ID: roomA, UserID: userID, CompanyID: companyID},
		entity.Room{ID: roomB, UserID: userID, CompanyID: "company-2"},
	)

	pull.mu.Lock()
	pull.listMessagesHook = func(roomID string) ([]entity.Message, *app_error.AppError) {
		return nil, app_error.NewAppError(http.StatusBadGateway, "upstream down", "")
	}
	pull.mu.Unlock()

	openRoom(t, eng, roomA)
	eng.Sync()
	assert.Empty(t, eng.Store().Snapshot().LastError, "connectivity failures stay silent")

	pull.mu.Lock()
	pull.listMessagesHook = func(roomID string) ([]entity.Message, *app_error.AppError) {
		return nil, app_error.NewAppError(http.StatusNotFound, "conversation gone", "room")
	}
	pull.mu.Unlock()

	openRoom(t, eng, roomB)
	require.Eventually(t, func() bool {
		return eng.Store().Snapshot().LastError == "conversation gone"
	}, 2*time.Second, 10*time.Millisecond, "server verdicts reach the user")
}

func TestMergePreservesPendingTempOnResync(t *testing.T) {
	eng, pull, push := newTestEngine(t, entity.Room{ID: roomA, UserID: userID, CompanyID: companyID})
	push.setConnected(true)
	openRoom(t, eng, roomA)

	eng.Send("pending", entity.MessageTypeText, nil)
	require.Eventually(t, func() bool {
		return len(eng.Store().Messages()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	pull.mu.Lock()
	pull.messages[roomA] = []entity.Message{{ID: "m1", RoomID: roomA, SenderID: companyID, Content: "earlier"}}
	pull.mu.Unlock()

	push.fireConnect()

	require.Eventually(t, func() bool {
		msgs := eng.Store().Messages()
		return len(msgs) == 2 && msgs[0].ID == "m1" && msgs[1].IsTemp()
	}, 2*time.Second, 10*time.Millisecond, "resync keeps the unresolved temp at the tail")
}
