package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/docavailable/chat-engine/internal/domain"
)

// Typing state is ephemeral: entries expire ~30s after StartedAt or on an
// explicit stop. Expiry is enforced lazily on read rather than by a
// background sweep; the backing key carries the same TTL so an abandoned
// conversation's typing set disappears on its own.

func (e *Engine) loadTyping(ctx context.Context, conversationID int64) (map[int64]domain.TypingEntry, error) {
	b, err := e.store.Get(ctx, typingKey(conversationID))
	if err != nil {
		return nil, fmt.Errorf("load typing state for conversation %d: %w", conversationID, err)
	}
	entries := make(map[int64]domain.TypingEntry)
	if b == nil {
		return entries, nil
	}
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode typing state for conversation %d: %w", conversationID, err)
	}
	return entries, nil
}

func (e *Engine) saveTyping(ctx context.Context, conversationID int64, entries map[int64]domain.TypingEntry) error {
	if len(entries) == 0 {
		return e.store.Forget(ctx, typingKey(conversationID))
	}
	b, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode typing state for conversation %d: %w", conversationID, err)
	}
	return e.store.Put(ctx, typingKey(conversationID), b, e.typingTTL)
}

// StartTyping upserts the user's typing entry with a fresh start time and
// returns the current set of typing users.
func (e *Engine) StartTyping(ctx context.Context, conversationID int64, userID int64, userName string) ([]domain.TypingEntry, error) {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	entries, err := e.loadTyping(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	entries[userID] = domain.TypingEntry{
		UserID:    userID,
		UserName:  userName,
		StartedAt: e.now(),
	}
	if err := e.saveTyping(ctx, conversationID, entries); err != nil {
		return nil, err
	}
	return e.liveEntries(entries), nil
}

// StopTyping removes the user's entry if present and returns the remaining
// typing users.
func (e *Engine) StopTyping(ctx context.Context, conversationID int64, userID int64) ([]domain.TypingEntry, error) {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	entries, err := e.loadTyping(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if _, ok := entries[userID]; ok {
		delete(entries, userID)
		if err := e.saveTyping(ctx, conversationID, entries); err != nil {
			return nil, err
		}
	}
	return e.liveEntries(entries), nil
}

// TypingUsers returns the users typing right now, evicting any entries that
// aged past the typing TTL and rewriting the backing set when some did.
func (e *Engine) TypingUsers(ctx context.Context, conversationID int64) ([]domain.TypingEntry, error) {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	entries, err := e.loadTyping(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	live := make(map[int64]domain.TypingEntry, len(entries))
	for id, entry := range entries {
		if e.now().Sub(entry.StartedAt) < e.typingTTL {
			live[id] = entry
		}
	}
	if len(live) != len(entries) {
		if err := e.saveTyping(ctx, conversationID, live); err != nil {
			return nil, err
		}
	}
	return e.liveEntries(live), nil
}

func (e *Engine) liveEntries(entries map[int64]domain.TypingEntry) []domain.TypingEntry {
	out := make([]domain.TypingEntry, 0, len(entries))
	for _, entry := range entries {
		if e.now().Sub(entry.StartedAt) < e.typingTTL {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
