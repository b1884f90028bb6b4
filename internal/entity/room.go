package entity

import "time"

type MatchingStatus string

const (
	MatchingAccepted  MatchingStatus = "ACCEPTED"
	MatchingCompleted MatchingStatus = "COMPLETED"
)

type RefundStatus string

const RefundRequested RefundStatus = "REQUESTED"

// Matching is the transaction linked to a room. Its status drives the
// completion/dispute workflow.
type Matching struct {
	ID                   string         `json:"id"`
	Status               MatchingStatus `json:"status"`
	CompletionReportedAt *time.Time     `json:"completionReportedAt,omitempty"`
	CompletedAt          *time.Time     `json:"completedAt,omitempty"`
	CompletionImages     []string       `json:"completionImages,omitempty"`
	Review               *string        `json:"review,omitempty"`
}

// Room is one customer/company conversation. Created server-side on first
// contact; the client mutates it through send/decline/complete actions but
// never deletes it.
type Room struct {
	ID              string        `json:"id"`
	UserID          string        `json:"userId"`
	CompanyID       string        `json:"companyId"`
	LastMessage     string        `json:"lastMessage"`
	LastSentAt      *time.Time    `json:"lastSentAt,omitempty"`
	UnreadCount     int           `json:"unreadCount"`
	UserDeclined    bool          `json:"userDeclined"`
	CompanyDeclined bool          `json:"companyDeclined"`
	RefundStatus    *RefundStatus `json:"refundStatus,omitempty"`
	Matching        *Matching     `json:"matching,omitempty"`
}

// Closed reports whether the conversation accepts further sends.
func (r Room) Closed() bool {
	if r.UserDeclined && r.CompanyDeclined {
		return true
	}
	return r.Matching != nil && r.Matching.Status == MatchingCompleted
}
