package socket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/wwoosshh/clearly-web-sub000/internal/dtos/chat_dto"
	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20 // 1 MB

	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
	sendBuffer    = 64
)

type Socket struct {
	ID    string
	URL   string
	Token string

	connected atomic.Bool
	send      chan []byte

	handlerMu     sync.RWMutex
	onConnect     []func()
	onNewMessage  []func(entity.Message)
	onMessageRead []func(chat_dto.MessageReadEvent)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSocket(url, token string) PushChannelContract {
	return &Socket{
		ID:    uuid.New().String(),
		URL:   url,
		Token: token,
		send:  make(chan []byte, sendBuffer),
		done:  make(chan struct{}),
	}
}

func (s *Socket) OnConnect(fn func()) {
	s.handlerMu.Lock()
	s.onConnect = append(s.onConnect, fn)
	s.handlerMu.Unlock()
}

func (s *Socket) OnNewMessage(fn func(entity.Message)) {
	s.handlerMu.Lock()
	s.onNewMessage = append(s.onNewMessage, fn)
	s.handlerMu.Unlock()
}

func (s *Socket) OnMessageRead(fn func(chat_dto.MessageReadEvent)) {
	s.handlerMu.Lock()
	s.onMessageRead = append(s.onMessageRead, fn)
	s.handlerMu.Unlock()
}

func (s *Socket) Connected() bool {
	return s.connected.Load()
}

// Start runs the connect/read/reconnect loop until the context is cancelled
// or Close is called.
func (s *Socket) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	go func() {
		defer close(s.done)

		backoff := reconnectBase
		for {
			if ctx.Err() != nil {
				return
			}

			conn, err := s.dial(ctx)
			if err != nil {
				log.Warn().Err(err).Str("clientID", s.ID).Dur("retryIn", backoff).Msg("ws: connect failed")
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				backoff = min(backoff*2, reconnectMax)
				continue
			}

			backoff = reconnectBase
			s.connected.Store(true)
			log.Info().Str("clientID", s.ID).Msg("ws: connected")

			s.handlerMu.RLock()
			hooks := append([]func(){}, s.onConnect...)
			s.handlerMu.RUnlock()
			for _, fn := range hooks {
				fn()
			}

			writeDone := make(chan struct{})
			go s.writePump(ctx, conn, writeDone)
			s.readPump(conn)

			s.connected.Store(false)
			close(writeDone)
			_ = conn.Close()
			log.Warn().Str("clientID", s.ID).Msg("ws: connection lost")
		}
	}()
}

func (s *Socket) Close() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	log.Info().Str("clientID", s.ID).Msg("ws: closed")
}

func (s *Socket) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.Token)
	header.Set("X-Client-ID", s.ID)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, s.URL, header)
	return conn, err
}

// writePump: take frames from s.send and write to the socket, plus keep-alive
// pings.
func (s *Socket) writePump(ctx context.Context, conn *websocket.Conn, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-s.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Warn().Err(err).Msg("ws: write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump: read event frames until the connection drops, handle pong
// deadlines for keep-alive.
func (s *Socket) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.dispatch(frame)
	}
}

func (s *Socket) dispatch(frame []byte) {
	var event chat_dto.WSEvent
	if err := json.Unmarshal(frame, &event); err != nil {
		log.Warn().Err(err).Msg("ws: malformed event frame")
		return
	}

	switch event.Event {
	case chat_dto.EventNewMessage:
		var msg entity.Message
		if err := json.Unmarshal(event.Data, &msg); err != nil {
			log.Warn().Err(err).Msg("ws: malformed newMessage payload")
			return
		}
		s.handlerMu.RLock()
		handlers := append([]func(entity.Message){}, s.onNewMessage...)
		s.handlerMu.RUnlock()
		for _, fn := range handlers {
			fn(msg)
		}

	case chat_dto.EventMessageRead:
		var ev chat_dto.MessageReadEvent
		if err := json.Unmarshal(event.Data, &ev); err != nil {
			log.Warn().Err(err).Msg("ws: malformed messageRead payload")
			return
		}
		s.handlerMu.RLock()
		handlers := append([]func(chat_dto.MessageReadEvent){}, s.onMessageRead...)
		s.handlerMu.RUnlock()
		for _, fn := range handlers {
			fn(ev)
		}

	default:
		log.Debug().Str("event", event.Event).Msg("ws: ignoring unknown event")
	}
}

func (s *Socket) JoinRoom(roomID string) {
	s.emit(chat_dto.WSCommand{Event: chat_dto.CommandJoinRoom, RoomID: roomID})
}

func (s *Socket) LeaveRoom(roomID string) {
	s.emit(chat_dto.WSCommand{Event: chat_dto.CommandLeaveRoom, RoomID: roomID})
}

func (s *Socket) MarkRead(roomID string) {
	s.emit(chat_dto.WSCommand{Event: chat_dto.CommandMarkRead, RoomID: roomID})
}

func (s *Socket) SendMessage(roomID string, payload chat_dto.SendPayload) {
	s.emit(chat_dto.WSCommand{Event: chat_dto.CommandSendMessage, RoomID: roomID, Payload: &payload})
}

func (s *Socket) emit(cmd chat_dto.WSCommand) {
	if !s.connected.Load() {
		log.Debug().Str("event", cmd.Event).Str("roomID", cmd.RoomID).Msg("ws: not connected, command dropped")
		return
	}

	frame, err := json.Marshal(cmd)
	if err != nil {
		log.Error().Err(err).Str("event", cmd.Event).Msg("ws: failed to marshal command")
		return
	}

	select {
	case s.send <- frame:
	default:
		log.Warn().Str("event", cmd.Event).Str("roomID", cmd.RoomID).Msg("ws: send buffer full, command dropped")
	}
}
