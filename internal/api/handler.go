package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/docavailable/chat-engine/internal/chat"
	"github.com/docavailable/chat-engine/internal/domain"
	"github.com/docavailable/chat-engine/internal/events"
	"github.com/docavailable/chat-engine/internal/kafka"
)

type Handlers struct {
	engine   *chat.Engine
	pub      *events.Publisher
	producer *kafka.Producer
	log      *zap.SugaredLogger
}

func NewHandlers(engine *chat.Engine, pub *events.Publisher, producer *kafka.Producer, log *zap.SugaredLogger) *Handlers {
	return &Handlers{engine: engine, pub: pub, producer: producer, log: log}
}

func conversationID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("conv_id"), 10, 64)
}

func (h *Handlers) storeMessage(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	var in domain.Message
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	msg, duplicated, err := h.engine.StoreMessage(c.Context(), convID, in)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !duplicated {
		h.notifyStored(convID, msg)
	}
	return c.JSON(fiber.Map{"success": true, "message": msg})
}

func (h *Handlers) storeReply(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	var in chat.ReplyInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	msg, err := h.engine.StoreReply(c.Context(), convID, in)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	h.notifyStored(convID, msg)
	return c.JSON(fiber.Map{"success": true, "message": msg})
}

func (h *Handlers) listMessages(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	msgs, err := h.engine.Messages(c.Context(), convID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"messages": msgs, "count": len(msgs)})
}

func (h *Handlers) getMessage(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	msg, err := h.engine.Message(c.Context(), convID, c.Params("msg_id"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if msg == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "message not found"})
	}
	return c.JSON(msg)
}

func (h *Handlers) clearConversation(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	if err := h.engine.Clear(c.Context(), convID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handlers) syncMessages(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	var req struct {
		Messages []domain.Message `json:"messages"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	result, err := h.engine.Sync(c.Context(), convID, req.Messages)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(result)
}

func (h *Handlers) snapshot(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	snap, err := h.engine.Snapshot(c.Context(), convID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(snap)
}

type reactionReq struct {
	UserID   int64  `json:"user_id"`
	Reaction string `json:"reaction"`
}

func (h *Handlers) addReaction(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	var req reactionReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	reaction, err := h.engine.AddReaction(c.Context(), convID, c.Params("msg_id"), req.UserID, req.Reaction)
	switch {
	case chat.Retryable(err):
		// Expected with offline clients: the message has not synced yet.
		return c.JSON(fiber.Map{"success": false, "should_retry": true, "message": err.Error()})
	case errors.Is(err, chat.ErrDuplicateReaction):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"success": false, "message": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "reaction": reaction})
}

func (h *Handlers) removeReaction(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	var req reactionReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}

	err = h.engine.RemoveReaction(c.Context(), convID, c.Params("msg_id"), req.UserID, req.Reaction)
	switch {
	case errors.Is(err, chat.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": err.Error()})
	case err != nil:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true})
}

func (h *Handlers) markRead(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	var req struct {
		UserID int64     `json:"user_id"`
		ReadAt time.Time `json:"read_at"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	if req.ReadAt.IsZero() {
		req.ReadAt = time.Now()
	}

	marked, err := h.engine.MarkRead(c.Context(), convID, req.UserID, req.ReadAt)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "marked_count": marked})
}

func (h *Handlers) repairStatus(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	fixed, err := h.engine.RepairDeliveryStatus(c.Context(), convID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "fixed_count": fixed})
}

type typingReq struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
}

func (h *Handlers) startTyping(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	var req typingReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	users, err := h.engine.StartTyping(c.Context(), convID, req.UserID, req.UserName)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "typing_users": users})
}

func (h *Handlers) stopTyping(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	var req typingReq
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	users, err := h.engine.StopTyping(c.Context(), convID, req.UserID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"success": true, "typing_users": users})
}

func (h *Handlers) listTyping(c *fiber.Ctx) error {
	convID, err := conversationID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid conversation id"})
	}
	users, err := h.engine.TypingUsers(c.Context(), convID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"typing_users": users})
}

func (h *Handlers) activeRooms(c *fiber.Ctx) error {
	rooms, err := h.engine.ActiveRooms(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"rooms": rooms})
}

// notifyStored feeds downstream consumers (push notifications and friends)
// with freshly stored messages. Delivery problems are logged, not surfaced:
// the message is already durable in the store.
func (h *Handlers) notifyStored(convID int64, msg domain.Message) {
	h.pub.PublishMessageCreated(convID, msg)
	if h.producer != nil {
		b, _ := json.Marshal(msg)
		if err := h.producer.Publish(context.Background(), strconv.FormatInt(convID, 10), b); err != nil {
			h.log.Warnf("kafka publish message %s: %v", msg.ID, err)
		}
	}
}
