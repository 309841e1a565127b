package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docavailable/chat-engine/internal/domain"
)

// The room registry is a single key holding the ids of conversations known
// to carry messages, so active conversations can be enumerated without
// scanning the keyspace. It refreshes on every write along with the
// conversation entries it points at.

func (e *Engine) loadRooms(ctx context.Context) ([]int64, error) {
	b, err := e.store.Get(ctx, roomsKey)
	if err != nil {
		return nil, fmt.Errorf("load room registry: %w", err)
	}
	if b == nil {
		return nil, nil
	}
	var ids []int64
	if err := json.Unmarshal(b, &ids); err != nil {
		return nil, fmt.Errorf("decode room registry: %w", err)
	}
	return ids, nil
}

func (e *Engine) saveRooms(ctx context.Context, ids []int64) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("encode room registry: %w", err)
	}
	if err := e.store.Put(ctx, roomsKey, b, e.messageTTL); err != nil {
		return fmt.Errorf("store room registry: %w", err)
	}
	return nil
}

// registerRoom idempotently adds a conversation to the active set.
func (e *Engine) registerRoom(ctx context.Context, conversationID int64) error {
	e.roomsMu.Lock()
	defer e.roomsMu.Unlock()

	ids, err := e.loadRooms(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if id == conversationID {
			return nil
		}
	}
	return e.saveRooms(ctx, append(ids, conversationID))
}

func (e *Engine) deregisterRoom(ctx context.Context, conversationID int64) error {
	e.roomsMu.Lock()
	defer e.roomsMu.Unlock()

	ids, err := e.loadRooms(ctx)
	if err != nil {
		return err
	}
	kept := ids[:0]
	for _, id := range ids {
		if id != conversationID {
			kept = append(kept, id)
		}
	}
	return e.saveRooms(ctx, kept)
}

// ActiveRooms enumerates registered conversations that currently hold at
// least one message, newest activity taken from the last stored message.
func (e *Engine) ActiveRooms(ctx context.Context) ([]domain.RoomInfo, error) {
	ids, err := e.loadRooms(ctx)
	if err != nil {
		return nil, err
	}

	rooms := make([]domain.RoomInfo, 0, len(ids))
	for _, id := range ids {
		msgs, err := e.loadMessages(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(msgs) == 0 {
			continue
		}
		last := msgs[len(msgs)-1].Clone()
		rooms = append(rooms, domain.RoomInfo{
			ConversationID: id,
			MessageCount:   len(msgs),
			LastMessage:    &last,
			LastActivity:   last.UpdatedAt,
		})
	}
	return rooms, nil
}
