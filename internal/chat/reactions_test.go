package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docavailable/chat-engine/internal/domain"
)

func TestAddReactionToUnsyncedMessageIsRetryable(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	_, err := e.AddReaction(ctx, 7, "not-there-yet", 1, "👍")
	require.ErrorIs(t, err, ErrMessageNotSynced)
	require.True(t, Retryable(err))
}

func TestAddReactionDuplicatePair(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	msg := textMessage(1, "hello")
	msg.ID = "m1"
	_, _, err := e.StoreMessage(ctx, 7, msg)
	require.NoError(t, err)

	added, err := e.AddReaction(ctx, 7, "m1", 2, "👍")
	require.NoError(t, err)
	require.Equal(t, "👍", added.Reaction)
	require.Equal(t, int64(2), added.UserID)

	_, err = e.AddReaction(ctx, 7, "m1", 2, "👍")
	require.ErrorIs(t, err, ErrDuplicateReaction)
	require.False(t, Retryable(err))

	// A different emoji from the same user is fine.
	_, err = e.AddReaction(ctx, 7, "m1", 2, "❤️")
	require.NoError(t, err)

	got, err := e.Message(ctx, 7, "m1")
	require.NoError(t, err)
	require.Len(t, got.Reactions, 2)
}

func TestRemoveReactionIdempotent(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	msg := textMessage(1, "hello")
	msg.ID = "m1"
	_, _, err := e.StoreMessage(ctx, 7, msg)
	require.NoError(t, err)

	_, err = e.AddReaction(ctx, 7, "m1", 2, "👍")
	require.NoError(t, err)

	require.NoError(t, e.RemoveReaction(ctx, 7, "m1", 2, "👍"))
	require.NoError(t, e.RemoveReaction(ctx, 7, "m1", 2, "👍"))

	got, err := e.Message(ctx, 7, "m1")
	require.NoError(t, err)
	require.Empty(t, got.Reactions)
}

func TestRemoveReactionMissingMessage(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	err := e.RemoveReaction(ctx, 7, "absent", 2, "👍")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestMarkReadSkipsOwnAndIsIdempotent(t *testing.T) {
	e, clock := newTestEngine()
	ctx := context.Background()

	for _, m := range []domain.Message{
		textMessage(1, "from doctor"),
		textMessage(1, "another from doctor"),
		textMessage(2, "from patient"),
	} {
		_, _, err := e.StoreMessage(ctx, 7, m)
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	marked, err := e.MarkRead(ctx, 7, 2, clock.Now())
	require.NoError(t, err)
	require.Equal(t, 2, marked)

	// Second pass adds nothing.
	marked, err = e.MarkRead(ctx, 7, 2, clock.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, 0, marked)

	msgs, err := e.Messages(ctx, 7)
	require.NoError(t, err)
	for _, m := range msgs {
		if m.SenderID == 2 {
			require.Empty(t, m.ReadBy, "own message must never carry own receipt")
			continue
		}
		require.Len(t, m.ReadBy, 1)
		require.Equal(t, int64(2), m.ReadBy[0].UserID)
		require.Equal(t, domain.StatusRead, m.DeliveryStatus)
	}
}

func TestMarkReadAdvancesButNeverLowersStatus(t *testing.T) {
	e, clock := newTestEngine()
	ctx := context.Background()

	msg := textMessage(1, "hello")
	msg.ID = "m1"
	msg.DeliveryStatus = domain.StatusDelivered
	_, _, err := e.StoreMessage(ctx, 7, msg)
	require.NoError(t, err)

	_, err = e.MarkRead(ctx, 7, 2, clock.Now())
	require.NoError(t, err)

	got, err := e.Message(ctx, 7, "m1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRead, got.DeliveryStatus)

	// Nothing ever moves it back down.
	require.False(t, got.AdvanceStatus(domain.StatusSent))
	require.Equal(t, domain.StatusRead, got.DeliveryStatus)
}

func TestRepairDeliveryStatus(t *testing.T) {
	e, clock := newTestEngine()
	ctx := context.Background()

	// A message whose receipt landed but whose status write was lost.
	stale := textMessage(1, "raced")
	stale.ID = "m1"
	stale.ReadBy = []domain.ReadReceipt{{UserID: 2, ReadAt: clock.Now()}}
	stale.DeliveryStatus = domain.StatusSent
	_, _, err := e.StoreMessage(ctx, 7, stale)
	require.NoError(t, err)

	healthy := textMessage(1, "fine")
	healthy.ID = "m2"
	_, _, err = e.StoreMessage(ctx, 7, healthy)
	require.NoError(t, err)

	fixed, err := e.RepairDeliveryStatus(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 1, fixed)

	got, err := e.Message(ctx, 7, "m1")
	require.NoError(t, err)
	require.Equal(t, domain.StatusRead, got.DeliveryStatus)

	// Repair is idempotent.
	fixed, err = e.RepairDeliveryStatus(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 0, fixed)
}
