package domain

import (
	"strings"
	"time"
)

// TempIDPrefix marks client-assigned message ids that have not been
// replaced by a server id yet.
const TempIDPrefix = "msg_"

// ReplyIDPrefix is used for server-generated reply message ids.
const ReplyIDPrefix = "reply_"

type MessageType string

const (
	TypeText  MessageType = "text"
	TypeVoice MessageType = "voice"
	TypeImage MessageType = "image"
)

// DeliveryStatus is the ordered lifecycle state of a message:
// sending < sent < delivered < read. Anything else compares below sending.
type DeliveryStatus string

const (
	StatusSending   DeliveryStatus = "sending"
	StatusSent      DeliveryStatus = "sent"
	StatusDelivered DeliveryStatus = "delivered"
	StatusRead      DeliveryStatus = "read"
)

// Priority returns the ordinal used to compare statuses. Unknown or empty
// statuses rank below every real one so a merge never keeps garbage over
// a valid state.
func (s DeliveryStatus) Priority() int {
	switch s {
	case StatusSending:
		return 1
	case StatusSent:
		return 2
	case StatusDelivered:
		return 3
	case StatusRead:
		return 4
	default:
		return 0
	}
}

type Reaction struct {
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name,omitempty"`
	Reaction  string    `json:"reaction"`
	Timestamp time.Time `json:"timestamp"`
}

type ReadReceipt struct {
	UserID   int64     `json:"user_id"`
	UserName string    `json:"user_name,omitempty"`
	ReadAt   time.Time `json:"read_at"`
}

type Message struct {
	ID             string         `json:"id"`
	TempID         string         `json:"temp_id,omitempty"`
	ConversationID int64          `json:"conversation_id"`
	SenderID       int64          `json:"sender_id"`
	SenderName     string         `json:"sender_name"`
	Body           string         `json:"message"`
	Type           MessageType    `json:"message_type"`
	MediaURL       string         `json:"media_url,omitempty"`
	ReplyToID      string         `json:"reply_to_id,omitempty"`
	ReplyToBody    string         `json:"reply_to_message,omitempty"`
	ReplyToSender  string         `json:"reply_to_sender_name,omitempty"`
	Reactions      []Reaction     `json:"reactions,omitempty"`
	ReadBy         []ReadReceipt  `json:"read_by,omitempty"`
	DeliveryStatus DeliveryStatus `json:"delivery_status,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// HasDurableID reports whether the message carries a server-assigned id,
// as opposed to a client temp id.
func (m *Message) HasDurableID() bool {
	return m.ID != "" && !strings.HasPrefix(m.ID, TempIDPrefix)
}

// HasReadReceipt reports whether the given user already left a read receipt.
func (m *Message) HasReadReceipt(userID int64) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// HasReaction reports whether the given (user, reaction) pair is present.
func (m *Message) HasReaction(userID int64, reaction string) bool {
	for _, r := range m.Reactions {
		if r.UserID == userID && r.Reaction == reaction {
			return true
		}
	}
	return false
}

// AdvanceStatus moves the delivery status forward to the given state.
// It never lowers the status; it reports whether anything changed.
func (m *Message) AdvanceStatus(to DeliveryStatus) bool {
	if to.Priority() <= m.DeliveryStatus.Priority() {
		return false
	}
	m.DeliveryStatus = to
	return true
}

// Clone returns a deep copy so callers never share slices with stored state.
func (m Message) Clone() Message {
	out := m
	if m.Reactions != nil {
		out.Reactions = append([]Reaction(nil), m.Reactions...)
	}
	if m.ReadBy != nil {
		out.ReadBy = append([]ReadReceipt(nil), m.ReadBy...)
	}
	return out
}

// TypingEntry is the ephemeral per-user typing signal for a conversation.
type TypingEntry struct {
	UserID    int64     `json:"user_id"`
	UserName  string    `json:"user_name"`
	StartedAt time.Time `json:"started_at"`
}

// RoomInfo summarises an active conversation for enumeration.
type RoomInfo struct {
	ConversationID int64     `json:"conversation_id"`
	MessageCount   int       `json:"message_count"`
	LastMessage    *Message  `json:"last_message,omitempty"`
	LastActivity   time.Time `json:"last_activity"`
}

// Snapshot is the shape clients persist locally for offline use.
type Snapshot struct {
	ConversationID int64     `json:"conversation_id"`
	Messages       []Message `json:"messages"`
	LastSync       time.Time `json:"last_sync"`
	MessageCount   int       `json:"message_count"`
}
