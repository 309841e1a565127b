package events

import (
	"encoding/json"
	"log"

	"github.com/nats-io/nats.go"

	"github.com/docavailable/chat-engine/internal/domain"
)

type MessageCreatedEvent struct {
	ConversationID int64          `json:"conversation_id"`
	Message        domain.Message `json:"message"`
}

type Publisher struct {
	nc *nats.Conn
}

func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc}, nil
}

func (p *Publisher) PublishMessageCreated(conversationID int64, msg domain.Message) {
	if p == nil || p.nc == nil {
		return
	}
	ev := MessageCreatedEvent{ConversationID: conversationID, Message: msg}
	b, _ := json.Marshal(ev)
	if err := p.nc.Publish("chat.message.created", b); err != nil {
		log.Println("publish chat.message.created:", err)
	}
}

func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}
