package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docavailable/chat-engine/internal/domain"
)

func TestContentWindowDedupText(t *testing.T) {
	e, clock := newTestEngine()
	ctx := context.Background()

	_, duplicated, err := e.StoreMessage(ctx, 7, textMessage(1, "hi"))
	require.NoError(t, err)
	require.False(t, duplicated)

	// Same sender, body and type 10s later: a client retry, not a new message.
	clock.Advance(10 * time.Second)
	_, duplicated, err = e.StoreMessage(ctx, 7, textMessage(1, "hi"))
	require.NoError(t, err)
	require.True(t, duplicated)

	msgs, err := e.Messages(ctx, 7)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	// Window elapsed: someone saying "hi" again is a genuinely new message.
	clock.Advance(30 * time.Second)
	_, duplicated, err = e.StoreMessage(ctx, 7, textMessage(1, "hi"))
	require.NoError(t, err)
	require.False(t, duplicated)

	msgs, err = e.Messages(ctx, 7)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
}

func TestContentWindowDifferentSender(t *testing.T) {
	e, clock := newTestEngine()
	ctx := context.Background()

	_, _, err := e.StoreMessage(ctx, 7, textMessage(1, "hi"))
	require.NoError(t, err)

	clock.Advance(5 * time.Second)
	_, duplicated, err := e.StoreMessage(ctx, 7, textMessage(2, "hi"))
	require.NoError(t, err)
	require.False(t, duplicated)
}

func TestVoiceWindowWiderThanText(t *testing.T) {
	e, clock := newTestEngine()
	ctx := context.Background()

	voice := domain.Message{
		SenderID: 1,
		Body:     "Voice message",
		Type:     domain.TypeVoice,
		MediaURL: "https://cdn.example.com/voice/a.m4a",
	}
	_, _, err := e.StoreMessage(ctx, 7, voice)
	require.NoError(t, err)

	// 45s is past the text window but inside the voice window.
	clock.Advance(45 * time.Second)
	_, duplicated, err := e.StoreMessage(ctx, 7, voice)
	require.NoError(t, err)
	require.True(t, duplicated)

	clock.Advance(61 * time.Second)
	_, duplicated, err = e.StoreMessage(ctx, 7, voice)
	require.NoError(t, err)
	require.False(t, duplicated)
}

func TestVoiceDifferentMediaURLNotDuplicate(t *testing.T) {
	e, clock := newTestEngine()
	ctx := context.Background()

	first := domain.Message{
		SenderID: 1,
		Body:     "Voice message",
		Type:     domain.TypeVoice,
		MediaURL: "https://cdn.example.com/voice/a.m4a",
	}
	_, _, err := e.StoreMessage(ctx, 7, first)
	require.NoError(t, err)

	second := first
	second.MediaURL = "https://cdn.example.com/voice/b.m4a"
	clock.Advance(2 * time.Second)
	_, duplicated, err := e.StoreMessage(ctx, 7, second)
	require.NoError(t, err)
	require.False(t, duplicated)
}

func TestImageDifferentTempIDNotDuplicate(t *testing.T) {
	e, clock := newTestEngine()
	ctx := context.Background()

	first := domain.Message{
		SenderID: 1,
		TempID:   "msg_img_1",
		Body:     "Image",
		Type:     domain.TypeImage,
		MediaURL: "https://cdn.example.com/img/x.jpg",
	}
	_, _, err := e.StoreMessage(ctx, 7, first)
	require.NoError(t, err)

	second := first
	second.TempID = "msg_img_2"
	clock.Advance(2 * time.Second)
	_, duplicated, err := e.StoreMessage(ctx, 7, second)
	require.NoError(t, err)
	require.False(t, duplicated)
}
