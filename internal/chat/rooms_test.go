package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestActiveRoomsListsConversationsWithMessages(t *testing.T) {
	e, clock := newTestEngine()
	ctx := context.Background()

	_, _, err := e.StoreMessage(ctx, 7, textMessage(1, "first in 7"))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, _, err = e.StoreMessage(ctx, 7, textMessage(2, "second in 7"))
	require.NoError(t, err)
	clock.Advance(time.Minute)
	_, _, err = e.StoreMessage(ctx, 9, textMessage(3, "only in 9"))
	require.NoError(t, err)

	rooms, err := e.ActiveRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	byID := make(map[int64]int, len(rooms))
	for i, r := range rooms {
		byID[r.ConversationID] = i
	}
	r7 := rooms[byID[7]]
	require.Equal(t, 2, r7.MessageCount)
	require.NotNil(t, r7.LastMessage)
	require.Equal(t, "second in 7", r7.LastMessage.Body)
	require.Equal(t, r7.LastMessage.UpdatedAt, r7.LastActivity)

	r9 := rooms[byID[9]]
	require.Equal(t, 1, r9.MessageCount)
}

func TestRegisterRoomIdempotent(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	require.NoError(t, e.registerRoom(ctx, 7))
	require.NoError(t, e.registerRoom(ctx, 7))
	require.NoError(t, e.registerRoom(ctx, 9))

	ids, err := e.loadRooms(ctx)
	require.NoError(t, err)
	require.Equal(t, []int64{7, 9}, ids)
}

func TestActiveRoomsSkipsEmptiedConversations(t *testing.T) {
	e, _ := newTestEngine()
	ctx := context.Background()

	_, _, err := e.StoreMessage(ctx, 7, textMessage(1, "hello"))
	require.NoError(t, err)
	_, _, err = e.StoreMessage(ctx, 9, textMessage(2, "there"))
	require.NoError(t, err)

	require.NoError(t, e.Clear(ctx, 9))

	rooms, err := e.ActiveRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	require.Equal(t, int64(7), rooms[0].ConversationID)
}
