package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/docavailable/chat-engine/internal/domain"
)

// Dedup windows per message type. Short for text, where sending the same
// words twice in a row is a normal thing to do; wider for voice and image,
// whose payloads are costly to produce twice and slower to upload.
const (
	textDedupWindow  = 30 * time.Second
	voiceDedupWindow = 60 * time.Second
	imageDedupWindow = 45 * time.Second
)

func dedupWindow(t domain.MessageType) time.Duration {
	switch t {
	case domain.TypeVoice:
		return voiceDedupWindow
	case domain.TypeImage:
		return imageDedupWindow
	default:
		return textDedupWindow
	}
}

// StoreMessage appends a message to the conversation unless it is a duplicate
// of one already stored, in which case the existing message is returned with
// duplicated set.
// Finding a duplicate is a normal, successful outcome, not an error: it is
// how a retried client send resolves to the copy the server already has.
func (e *Engine) StoreMessage(ctx context.Context, conversationID int64, in domain.Message) (domain.Message, bool, error) {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	msgs, err := e.loadMessages(ctx, conversationID)
	if err != nil {
		return domain.Message{}, false, err
	}

	if in.Type == "" {
		in.Type = domain.TypeText
	}

	if existing := e.findDuplicate(msgs, in); existing != nil {
		e.log.Infow("duplicate message detected, returning existing",
			"conversation_id", conversationID,
			"existing_message_id", existing.ID,
			"temp_id", in.TempID,
			"message_type", in.Type,
		)
		return existing.Clone(), true, nil
	}

	now := e.now()
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	in.ConversationID = conversationID
	in.CreatedAt = now
	in.UpdatedAt = now
	if in.DeliveryStatus == "" {
		in.DeliveryStatus = domain.StatusSent
	}

	msgs = append(msgs, in)
	if err := e.saveMessages(ctx, conversationID, msgs); err != nil {
		return domain.Message{}, false, err
	}
	if err := e.registerRoom(ctx, conversationID); err != nil {
		return domain.Message{}, false, err
	}

	e.log.Infow("message stored",
		"conversation_id", conversationID,
		"message_id", in.ID,
		"sender_id", in.SenderID,
		"message_type", in.Type,
		"total_messages", len(msgs),
	)
	return in.Clone(), false, nil
}

// findDuplicate applies the matching precedence: exact id, then temp id,
// then same sender/type/content inside the type's time window. For media
// messages the url must match too, and differing temp ids rule a pair out.
func (e *Engine) findDuplicate(msgs []domain.Message, in domain.Message) *domain.Message {
	now := e.now()
	for i := range msgs {
		existing := &msgs[i]

		if in.ID != "" && existing.ID != "" && existing.ID == in.ID {
			return existing
		}
		if in.TempID != "" && existing.TempID != "" && existing.TempID == in.TempID {
			return existing
		}

		if existing.SenderID != in.SenderID || existing.Body != in.Body || existing.Type != in.Type {
			continue
		}
		if in.Type == domain.TypeVoice || in.Type == domain.TypeImage {
			if existing.MediaURL != in.MediaURL {
				continue
			}
			if in.TempID != "" && existing.TempID != "" && existing.TempID != in.TempID {
				continue
			}
		}
		if now.Sub(existing.CreatedAt) < dedupWindow(in.Type) {
			return existing
		}
	}
	return nil
}

// ReplyInput describes a threaded reply to an existing message.
type ReplyInput struct {
	SenderID      int64
	SenderName    string
	Body          string
	Type          domain.MessageType
	MediaURL      string
	ReplyToID     string
	ReplyToBody   string
	ReplyToSender string
}

// StoreReply composes a reply message and stores it through the regular
// dedup path.
func (e *Engine) StoreReply(ctx context.Context, conversationID int64, in ReplyInput) (domain.Message, error) {
	msg := domain.Message{
		ID:            fmt.Sprintf("%s%d_%s", domain.ReplyIDPrefix, e.now().Unix(), uuid.NewString()),
		SenderID:      in.SenderID,
		SenderName:    in.SenderName,
		Body:          in.Body,
		Type:          in.Type,
		MediaURL:      in.MediaURL,
		ReplyToID:     in.ReplyToID,
		ReplyToBody:   in.ReplyToBody,
		ReplyToSender: in.ReplyToSender,
	}
	stored, _, err := e.StoreMessage(ctx, conversationID, msg)
	if err != nil {
		return domain.Message{}, err
	}
	e.log.Infow("reply message created",
		"conversation_id", conversationID,
		"reply_to_id", in.ReplyToID,
		"sender_id", in.SenderID,
	)
	return stored, nil
}
