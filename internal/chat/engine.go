// Package chat implements the message reconciliation and delivery-state
// engine behind appointment conversations: a TTL-bounded per-conversation
// message log with deduplication, offline-batch reconciliation, reactions,
// read receipts, typing indicators and an active-room registry, all kept in
// a key-value cache.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docavailable/chat-engine/internal/domain"
	"github.com/docavailable/chat-engine/internal/kvstore"
)

const (
	messagesKeyPrefix = "chat:messages:"
	typingKeyPrefix   = "chat:typing:"
	roomsKey          = "chat:rooms"

	defaultMessageTTL  = time.Hour
	defaultMaxMessages = 1000
	defaultTypingTTL   = 30 * time.Second
)

type Engine struct {
	store kvstore.Store
	log   *zap.SugaredLogger

	messageTTL  time.Duration
	maxMessages int
	typingTTL   time.Duration

	locks   *convLocks
	roomsMu sync.Mutex

	now      func() time.Time
	userName func(int64) string
}

type Option func(*Engine)

func WithMessageTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.messageTTL = ttl }
}

func WithMaxMessages(n int) Option {
	return func(e *Engine) { e.maxMessages = n }
}

func WithTypingTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.typingTTL = ttl }
}

// WithClock overrides the engine's time source. Tests use it to drive the
// dedup windows and typing expiry.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithUserNames overrides how user display names are resolved for read
// receipts and reactions.
func WithUserNames(fn func(int64) string) Option {
	return func(e *Engine) { e.userName = fn }
}

func New(store kvstore.Store, log *zap.SugaredLogger, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		log:         log,
		messageTTL:  defaultMessageTTL,
		maxMessages: defaultMaxMessages,
		typingTTL:   defaultTypingTTL,
		locks:       newConvLocks(),
		now:         time.Now,
		userName:    func(id int64) string { return fmt.Sprintf("User #%d", id) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func messagesKey(conversationID int64) string {
	return fmt.Sprintf("%s%d", messagesKeyPrefix, conversationID)
}

func typingKey(conversationID int64) string {
	return fmt.Sprintf("%s%d", typingKeyPrefix, conversationID)
}

// loadMessages reads the conversation's message list. A missing conversation
// is an empty list, never an error.
func (e *Engine) loadMessages(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	b, err := e.store.Get(ctx, messagesKey(conversationID))
	if err != nil {
		return nil, fmt.Errorf("load messages for conversation %d: %w", conversationID, err)
	}
	if b == nil {
		return nil, nil
	}
	var msgs []domain.Message
	if err := json.Unmarshal(b, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages for conversation %d: %w", conversationID, err)
	}
	return msgs, nil
}

// saveMessages writes the list back, enforcing the capacity bound (oldest
// evicted first) and refreshing the conversation TTL.
func (e *Engine) saveMessages(ctx context.Context, conversationID int64, msgs []domain.Message) error {
	if len(msgs) > e.maxMessages {
		msgs = msgs[len(msgs)-e.maxMessages:]
	}
	b, err := json.Marshal(msgs)
	if err != nil {
		return fmt.Errorf("encode messages for conversation %d: %w", conversationID, err)
	}
	if err := e.store.Put(ctx, messagesKey(conversationID), b, e.messageTTL); err != nil {
		return fmt.Errorf("store messages for conversation %d: %w", conversationID, err)
	}
	return nil
}

// Messages returns the ordered message log for a conversation. Absent
// conversations yield an empty slice.
func (e *Engine) Messages(ctx context.Context, conversationID int64) ([]domain.Message, error) {
	msgs, err := e.loadMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Clone())
	}
	return out, nil
}

// Message returns a single message by id, or nil if the conversation or the
// message is absent.
func (e *Engine) Message(ctx context.Context, conversationID int64, messageID string) (*domain.Message, error) {
	msgs, err := e.loadMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		if m.ID == messageID {
			out := m.Clone()
			return &out, nil
		}
	}
	return nil, nil
}

// Snapshot exports a conversation in the shape clients persist locally.
func (e *Engine) Snapshot(ctx context.Context, conversationID int64) (domain.Snapshot, error) {
	msgs, err := e.Messages(ctx, conversationID)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{
		ConversationID: conversationID,
		Messages:       msgs,
		LastSync:       e.now(),
		MessageCount:   len(msgs),
	}, nil
}

// Clear removes a conversation's messages and typing state and drops it from
// the room registry. Called when the owning appointment session ends.
func (e *Engine) Clear(ctx context.Context, conversationID int64) error {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	if err := e.store.Forget(ctx, messagesKey(conversationID)); err != nil {
		return fmt.Errorf("clear messages for conversation %d: %w", conversationID, err)
	}
	if err := e.store.Forget(ctx, typingKey(conversationID)); err != nil {
		return fmt.Errorf("clear typing state for conversation %d: %w", conversationID, err)
	}
	if err := e.deregisterRoom(ctx, conversationID); err != nil {
		return err
	}

	e.log.Infow("conversation cleared", "conversation_id", conversationID)
	return nil
}
