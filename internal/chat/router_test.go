package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/talkroom/chat-service/internal/domain"

	"github.com/stretchr/testify/require"
)

type fakeBroadcaster struct {
	mu        sync.Mutex
	published []domain.Message
}

func (b *fakeBroadcaster) Publish(_ string, msg domain.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, msg)
}

func (b *fakeBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func TestRouter_Send(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	reg := NewRegistry(fs)
	bc := &fakeBroadcaster{}
	rt := NewRouter(reg, bc)

	_, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)

	msg, err := rt.Send(ctx, "general", "alice", "hello")
	require.NoError(t, err)
	require.Equal(t, "alice", msg.Sender)
	require.False(t, msg.Timestamp.IsZero())

	// рассылается ровно то сообщение, что легло в лог
	require.Equal(t, 1, bc.count())
	require.Equal(t, msg, bc.published[0])

	msgs, err := reg.Snapshot(ctx, "general")
	require.NoError(t, err)
	require.Equal(t, []domain.Message{msg}, msgs)
}

func TestRouter_Send_EmptyContentAllowed(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(newFakeStore())
	rt := NewRouter(reg, &fakeBroadcaster{})

	_, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)

	msg, err := rt.Send(ctx, "general", "alice", "")
	require.NoError(t, err)
	require.Empty(t, msg.Content)
}

func TestRouter_Send_RoomNotFound(t *testing.T) {
	fs := newFakeStore()
	bc := &fakeBroadcaster{}
	rt := NewRouter(NewRegistry(fs), bc)

	_, err := rt.Send(context.Background(), "nope", "alice", "hello")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
	require.Zero(t, bc.count())
	require.Zero(t, fs.saveCount())
}

func TestRouter_Send_EmptySender(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	reg := NewRegistry(fs)
	bc := &fakeBroadcaster{}
	rt := NewRouter(reg, bc)

	_, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)

	_, err = rt.Send(ctx, "general", "   ", "hello")
	require.ErrorIs(t, err, ErrEmptySender)
	require.Zero(t, bc.count())
}

func TestRouter_Send_NoBroadcastOnPersistFailure(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	reg := NewRegistry(fs)
	bc := &fakeBroadcaster{}
	rt := NewRouter(reg, bc)

	_, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)

	fs.setFailSave(true)
	_, err = rt.Send(ctx, "general", "alice", "lost")
	require.Error(t, err)
	require.Zero(t, bc.count())

	// и последующий fetch сообщения не видит
	fs.setFailSave(false)
	msgs, err := reg.Snapshot(ctx, "general")
	require.NoError(t, err)
	require.Empty(t, msgs)
}
