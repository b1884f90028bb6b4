package reconcile

import (
	"time"

	"github.com/wwoosshh/clearly-web-sub000/internal/entity"
)

// Reconciler merges optimistic (temporary) messages with server-confirmed
// ones. The optimistic append and the server echo race independently, so the
// dedup key is (senderId, content) rather than arrival order: that is the only
// reliable match available without a client id round-tripped by the server.
//
// All merge functions preserve insertion order. Temporary messages live at the
// tail and are never reordered by timestamp.
type Reconciler struct {
	IDs *TempIDGenerator
	now func() time.Time
}

func NewReconciler() *Reconciler {
	return &Reconciler{
		IDs: NewTempIDGenerator(),
		now: time.Now,
	}
}

// NewTempMessage synthesizes the optimistic placeholder appended on user send.
func (r *Reconciler) NewTempMessage(roomID string, sender entity.Sender, content string, messageType entity.MessageType, fileURL *string) entity.Message {
	if messageType == "" {
		messageType = entity.MessageTypeText
	}
	return entity.Message{
		ID:          r.IDs.Next(),
		RoomID:      roomID,
		SenderID:    sender.ID,
		Content:     content,
		MessageType: messageType,
		FileURL:     fileURL,
		IsRead:      false,
		CreatedAt:   r.now(),
		Sender:      sender,
	}
}

// MergeEcho reconciles a newMessage push event against the current list.
// A temporary message with the same sender and identical content is replaced
// in place, keeping list length unchanged; otherwise the incoming message is
// appended unless its server id is already present. This dedups the sender's
// own echoed message against its optimistic placeholder while appending
// foreign messages normally.
func MergeEcho(list []entity.Message, incoming entity.Message) []entity.Message {
	for i, msg := range list {
		if msg.IsTemp() && msg.SenderID == incoming.SenderID && msg.Content == incoming.Content {
			out := make([]entity.Message, len(list))
			copy(out, list)
			out[i] = incoming
			return out
		}
	}

	for _, msg := range list {
		if msg.ID == incoming.ID {
			return list
		}
	}

	return append(list, incoming)
}

// ResolveRest replaces the temporary message identified by tempID with the
// message the REST send returned. If the temp has already been consumed by a
// push echo, the confirmed message is merged by the echo rule instead so the
// send is never lost or duplicated.
func ResolveRest(list []entity.Message, tempID string, confirmed entity.Message) []entity.Message {
	for i, msg := range list {
		if msg.ID == tempID {
			out := make([]entity.Message, len(list))
			copy(out, list)
			out[i] = confirmed
			return out
		}
	}
	return MergeEcho(list, confirmed)
}

// DropTemp removes a temporary message after a failed REST send.
func DropTemp(list []entity.Message, tempID string) []entity.Message {
	out := make([]entity.Message, 0, len(list))
	for _, msg := range list {
		if msg.ID != tempID {
			out = append(out, msg)
		}
	}
	return out
}

// ApplyRead handles a messageRead event under the two-party rule: only the
// counterpart's acknowledgment flips isRead, and only on messages the current
// user authored. Self-echoes are ignored.
func ApplyRead(list []entity.Message, currentUserID, readBy string) []entity.Message {
	if readBy == currentUserID {
		return list
	}

	out := make([]entity.Message, len(list))
	copy(out, list)
	for i := range out {
		if out[i].SenderID == currentUserID {
			out[i].IsRead = true
		}
	}
	return out
}

// MergeHistory resolves a fresh server message page against local state: any
// still-pending temporary messages are preserved at the tail, except those the
// server page already confirms by (senderId, content) — each server message
// consumes at most one temp so two identical sends stay independent.
func MergeHistory(server []entity.Message, local []entity.Message) []entity.Message {
	var temps []entity.Message
	for _, msg := range local {
		if msg.IsTemp() {
			temps = append(temps, msg)
		}
	}

	consumed := make([]bool, len(temps))
	for _, msg := range server {
		for i, temp := range temps {
			if !consumed[i] && temp.SenderID == msg.SenderID && temp.Content == msg.Content {
				consumed[i] = true
				break
			}
		}
	}

	out := make([]entity.Message, 0, len(server)+len(temps))
	out = append(out, server...)
	for i, temp := range temps {
		if !consumed[i] {
			out = append(out, temp)
		}
	}
	return out
}
