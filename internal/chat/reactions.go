package chat

import (
	"context"
	"time"

	"github.com/docavailable/chat-engine/internal/domain"
)

// AddReaction records a (user, emoji) reaction on a message. A missing
// message yields ErrMessageNotSynced: with offline clients the reaction can
// legitimately arrive before the message it targets, so the caller should
// retry after the next sync. A repeated pair yields ErrDuplicateReaction.
func (e *Engine) AddReaction(ctx context.Context, conversationID int64, messageID string, userID int64, reaction string) (*domain.Reaction, error) {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	msgs, err := e.loadMessages(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	idx := indexByID(msgs, messageID)
	if idx < 0 {
		e.log.Infow("message not found for reaction, will sync later",
			"conversation_id", conversationID,
			"message_id", messageID,
			"user_id", userID,
			"reaction", reaction,
		)
		return nil, ErrMessageNotSynced
	}

	if msgs[idx].HasReaction(userID, reaction) {
		return nil, ErrDuplicateReaction
	}

	added := domain.Reaction{
		UserID:    userID,
		UserName:  e.userName(userID),
		Reaction:  reaction,
		Timestamp: e.now(),
	}
	msgs[idx].Reactions = append(msgs[idx].Reactions, added)
	msgs[idx].UpdatedAt = e.now()

	if err := e.saveMessages(ctx, conversationID, msgs); err != nil {
		return nil, err
	}

	e.log.Infow("reaction added",
		"conversation_id", conversationID,
		"message_id", messageID,
		"user_id", userID,
		"reaction", reaction,
	)
	return &added, nil
}

// RemoveReaction removes the (user, emoji) pair from a message. Removing a
// reaction that is not there is a no-op; only a missing message is an error.
func (e *Engine) RemoveReaction(ctx context.Context, conversationID int64, messageID string, userID int64, reaction string) error {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	msgs, err := e.loadMessages(ctx, conversationID)
	if err != nil {
		return err
	}

	idx := indexByID(msgs, messageID)
	if idx < 0 {
		return ErrNotFound
	}

	kept := msgs[idx].Reactions[:0]
	for _, r := range msgs[idx].Reactions {
		if r.UserID == userID && r.Reaction == reaction {
			continue
		}
		kept = append(kept, r)
	}
	msgs[idx].Reactions = kept
	msgs[idx].UpdatedAt = e.now()

	if err := e.saveMessages(ctx, conversationID, msgs); err != nil {
		return err
	}

	e.log.Infow("reaction removed",
		"conversation_id", conversationID,
		"message_id", messageID,
		"user_id", userID,
		"reaction", reaction,
	)
	return nil
}

// MarkRead leaves a read receipt from userID on every message in the
// conversation authored by someone else, advancing delivery status to read.
// Own messages are always skipped; repeated calls add nothing. Returns how
// many messages were newly marked.
func (e *Engine) MarkRead(ctx context.Context, conversationID int64, userID int64, readAt time.Time) (int, error) {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	msgs, err := e.loadMessages(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	marked := 0
	for i := range msgs {
		if msgs[i].SenderID == userID {
			continue
		}
		if msgs[i].HasReadReceipt(userID) {
			continue
		}
		msgs[i].ReadBy = append(msgs[i].ReadBy, domain.ReadReceipt{
			UserID:   userID,
			UserName: e.userName(userID),
			ReadAt:   readAt,
		})
		msgs[i].AdvanceStatus(domain.StatusRead)
		msgs[i].UpdatedAt = e.now()
		marked++
	}

	if marked > 0 {
		if err := e.saveMessages(ctx, conversationID, msgs); err != nil {
			return 0, err
		}
	}

	e.log.Infow("messages marked as read",
		"conversation_id", conversationID,
		"user_id", userID,
		"marked_count", marked,
	)
	return marked, nil
}

// RepairDeliveryStatus heals records that fell out of sync under write
// races: any message holding at least one read receipt but a status below
// read is bumped to read. Returns how many messages were fixed.
func (e *Engine) RepairDeliveryStatus(ctx context.Context, conversationID int64) (int, error) {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	msgs, err := e.loadMessages(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	fixed := 0
	for i := range msgs {
		if len(msgs[i].ReadBy) == 0 {
			continue
		}
		if msgs[i].AdvanceStatus(domain.StatusRead) {
			msgs[i].UpdatedAt = e.now()
			fixed++
			e.log.Infow("repaired delivery status",
				"conversation_id", conversationID,
				"message_id", msgs[i].ID,
				"read_by_count", len(msgs[i].ReadBy),
			)
		}
	}

	if fixed > 0 {
		if err := e.saveMessages(ctx, conversationID, msgs); err != nil {
			return 0, err
		}
	}
	return fixed, nil
}

func indexByID(msgs []domain.Message, messageID string) int {
	for i := range msgs {
		if msgs[i].ID == messageID {
			return i
		}
	}
	return -1
}
