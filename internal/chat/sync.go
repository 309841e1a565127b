package chat

import (
	"context"
	"fmt"

	"github.com/docavailable/chat-engine/internal/domain"
)

// SyncResult reports the outcome of reconciling a client's offline batch.
type SyncResult struct {
	SyncedCount   int      `json:"synced_count"`
	TotalMessages int      `json:"total_messages"`
	Errors        []string `json:"errors"`
}

// Sync reconciles a client-held message batch into the server copy. Batch
// items without a server counterpart are appended as new; matched pairs are
// merged in place. Item-level problems are collected into the result's
// Errors list instead of aborting the batch.
func (e *Engine) Sync(ctx context.Context, conversationID int64, batch []domain.Message) (SyncResult, error) {
	unlock := e.locks.lock(conversationID)
	defer unlock()

	msgs, err := e.loadMessages(ctx, conversationID)
	if err != nil {
		return SyncResult{}, err
	}

	result := SyncResult{Errors: []string{}}
	for _, client := range batch {
		if client.ConversationID != 0 && client.ConversationID != conversationID {
			result.Errors = append(result.Errors,
				fmt.Sprintf("message %s belongs to conversation %d", client.ID, client.ConversationID))
			continue
		}

		idx := findCounterpart(msgs, client)
		if idx < 0 {
			client.ConversationID = conversationID
			if client.CreatedAt.IsZero() {
				client.CreatedAt = e.now()
			}
			if client.UpdatedAt.IsZero() {
				client.UpdatedAt = client.CreatedAt
			}
			msgs = append(msgs, client)
			result.SyncedCount++
			e.log.Infow("added client message to server",
				"conversation_id", conversationID,
				"message_id", client.ID,
				"temp_id", client.TempID,
			)
			continue
		}

		msgs[idx] = e.mergeMessage(msgs[idx], client)
		e.log.Infow("merged client message into server copy",
			"conversation_id", conversationID,
			"message_id", msgs[idx].ID,
			"temp_id", client.TempID,
		)
	}

	if err := e.saveMessages(ctx, conversationID, msgs); err != nil {
		return SyncResult{}, err
	}
	if len(msgs) > e.maxMessages {
		msgs = msgs[len(msgs)-e.maxMessages:]
	}
	if len(msgs) > 0 {
		if err := e.registerRoom(ctx, conversationID); err != nil {
			return SyncResult{}, err
		}
	}

	result.TotalMessages = len(msgs)
	e.log.Infow("client batch reconciled",
		"conversation_id", conversationID,
		"synced_count", result.SyncedCount,
		"total_messages", result.TotalMessages,
	)
	return result, nil
}

// findCounterpart locates the server message matching a client message,
// temp id first (covers messages sent just before going offline), then id.
func findCounterpart(msgs []domain.Message, client domain.Message) int {
	for i := range msgs {
		if client.TempID != "" && msgs[i].TempID != "" && msgs[i].TempID == client.TempID {
			return i
		}
		if client.ID != "" && msgs[i].ID == client.ID {
			return i
		}
	}
	return -1
}

// mergeMessage combines independently evolved copies of the same message.
// Reactions and read receipts are unioned, delivery status takes the higher
// of the two (a client-observed status is never downgraded by a stale server
// copy), and for the remaining fields the client value wins when present.
// Identity stays with the server record.
func (e *Engine) mergeMessage(server, client domain.Message) domain.Message {
	merged := server

	merged.Reactions = mergeReactions(server.Reactions, client.Reactions)
	merged.ReadBy = mergeReadBy(server.ReadBy, client.ReadBy)

	if client.DeliveryStatus.Priority() >= server.DeliveryStatus.Priority() {
		merged.DeliveryStatus = client.DeliveryStatus
	} else {
		e.log.Warnw("client carried a lower delivery status than server, keeping server",
			"message_id", server.ID,
			"client_status", client.DeliveryStatus,
			"server_status", server.DeliveryStatus,
		)
	}

	if client.SenderID != 0 {
		merged.SenderID = client.SenderID
	}
	if client.SenderName != "" {
		merged.SenderName = client.SenderName
	}
	if client.Body != "" {
		merged.Body = client.Body
	}
	if client.Type != "" {
		merged.Type = client.Type
	}
	if client.MediaURL != "" {
		merged.MediaURL = client.MediaURL
	}
	if client.ReplyToID != "" {
		merged.ReplyToID = client.ReplyToID
	}
	if client.ReplyToBody != "" {
		merged.ReplyToBody = client.ReplyToBody
	}
	if client.ReplyToSender != "" {
		merged.ReplyToSender = client.ReplyToSender
	}
	if client.TempID != "" {
		merged.TempID = client.TempID
	}

	merged.UpdatedAt = e.now()

	// Once the server id is durable the correlation handle has done its job.
	if merged.HasDurableID() {
		merged.TempID = ""
	}
	return merged
}

func mergeReactions(server, client []domain.Reaction) []domain.Reaction {
	merged := append([]domain.Reaction(nil), server...)
	for _, r := range client {
		exists := false
		for _, existing := range merged {
			if existing.UserID == r.UserID && existing.Reaction == r.Reaction {
				exists = true
				break
			}
		}
		if !exists {
			merged = append(merged, r)
		}
	}
	return merged
}

func mergeReadBy(server, client []domain.ReadReceipt) []domain.ReadReceipt {
	merged := append([]domain.ReadReceipt(nil), server...)
	for _, r := range client {
		exists := false
		for _, existing := range merged {
			if existing.UserID == r.UserID {
				exists = true
				break
			}
		}
		if !exists {
			merged = append(merged, r)
		}
	}
	return merged
}
