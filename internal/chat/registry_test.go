package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/talkroom/chat-service/internal/domain"

	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store down")

// fakeStore — in-memory реализация Store для тестов ядра.
type fakeStore struct {
	mu       sync.Mutex
	rooms    map[string]*domain.Room
	saves    int
	failSave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{rooms: make(map[string]*domain.Room)}
}

func (s *fakeStore) SaveRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failSave {
		return errStoreDown
	}
	s.saves++
	cp := *room
	cp.Messages = append([]domain.Message(nil), room.Messages...)
	s.rooms[room.RoomID] = &cp
	return nil
}

func (s *fakeStore) FindRoomByID(_ context.Context, roomID string) (*domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rooms[roomID]
	if !ok {
		return nil, nil
	}
	cp := *r
	cp.Messages = append([]domain.Message(nil), r.Messages...)
	return &cp, nil
}

func (s *fakeStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *fakeStore) setFailSave(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failSave = v
}

func (s *fakeStore) persisted(roomID string) *domain.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[roomID]
}

func TestRegistry_CreateRoom(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	reg := NewRegistry(fs)

	room, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)
	require.Equal(t, "general", room.RoomID)
	require.False(t, room.CreatedAt.IsZero())
	require.NotNil(t, fs.persisted("general"))

	_, err = reg.CreateRoom(ctx, "general")
	require.ErrorIs(t, err, domain.ErrRoomAlreadyExists)
}

func TestRegistry_CreateRoom_DuplicateKeepsLog(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	reg := NewRegistry(fs)

	_, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)
	_, err = reg.AppendMessage(ctx, "general", domain.Message{Sender: "alice", Content: "hi"})
	require.NoError(t, err)

	_, err = reg.CreateRoom(ctx, "general")
	require.ErrorIs(t, err, domain.ErrRoomAlreadyExists)

	msgs, err := reg.Snapshot(ctx, "general")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, "hi", msgs[0].Content)
}

func TestRegistry_CreateRoom_PersistedDuplicate(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fs.rooms["old"] = &domain.Room{RoomID: "old"}

	reg := NewRegistry(fs)
	_, err := reg.CreateRoom(ctx, "old")
	require.ErrorIs(t, err, domain.ErrRoomAlreadyExists)
}

func TestRegistry_CreateRoom_PersistFailure(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	fs.setFailSave(true)
	reg := NewRegistry(fs)

	_, err := reg.CreateRoom(ctx, "general")
	require.Error(t, err)

	// неудачное создание не должно оставить комнату в реестре
	_, err = reg.GetRoom(ctx, "general")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRegistry_GetRoom_NotFound(t *testing.T) {
	reg := NewRegistry(newFakeStore())
	_, err := reg.GetRoom(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRegistry_AppendMessage(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	reg := NewRegistry(fs)

	_, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)

	msg, err := reg.AppendMessage(ctx, "general", domain.Message{Sender: "alice", Content: "hello"})
	require.NoError(t, err)
	require.False(t, msg.Timestamp.IsZero(), "timestamp must be server-assigned")

	msgs, err := reg.Snapshot(ctx, "general")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	require.Equal(t, msg, msgs[0])

	// сообщение дошло до store
	require.Len(t, fs.persisted("general").Messages, 1)
}

func TestRegistry_AppendMessage_NotFound(t *testing.T) {
	fs := newFakeStore()
	reg := NewRegistry(fs)

	_, err := reg.AppendMessage(context.Background(), "nope", domain.Message{Sender: "a"})
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
	require.Zero(t, fs.saveCount())
}

func TestRegistry_AppendMessage_PersistFailure(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	reg := NewRegistry(fs)

	_, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)

	fs.setFailSave(true)
	_, err = reg.AppendMessage(ctx, "general", domain.Message{Sender: "alice", Content: "lost"})
	require.Error(t, err)

	// ни в логе, ни в store следов нет
	msgs, err := reg.Snapshot(ctx, "general")
	require.NoError(t, err)
	require.Empty(t, msgs)
	require.Empty(t, fs.persisted("general").Messages)
}

// gatedStore задерживает первый SaveRoom, пока тест не отдаст ему
// результат; остальные вызовы идут в обычный fakeStore.
type gatedStore struct {
	*fakeStore
	gateOnce sync.Once
	started  chan struct{}
	release  chan error
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		fakeStore: newFakeStore(),
		started:   make(chan struct{}),
		release:   make(chan error),
	}
}

func (s *gatedStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	var gated bool
	s.gateOnce.Do(func() { gated = true })
	if gated {
		close(s.started)
		if err := <-s.release; err != nil {
			return err
		}
	}
	return s.fakeStore.SaveRoom(ctx, room)
}

func TestRegistry_AppendDoesNotResurrectFailedCreate(t *testing.T) {
	ctx := context.Background()
	gs := newGatedStore()
	reg := NewRegistry(gs)

	createErr := make(chan error, 1)
	go func() {
		_, err := reg.CreateRoom(ctx, "general")
		createErr <- err
	}()
	// создание дошло до store и держит блокировку комнаты
	<-gs.started

	appendErr := make(chan error, 1)
	go func() {
		_, err := reg.AppendMessage(ctx, "general", domain.Message{Sender: "alice", Content: "ghost"})
		appendErr <- err
	}()
	// даём append-у найти состояние и встать на блокировку комнаты
	time.Sleep(50 * time.Millisecond)

	// создание падает и откатывает комнату из реестра
	gs.release <- errStoreDown
	require.Error(t, <-createErr)

	// append не должен ни пройти, ни воскресить комнату в store
	require.ErrorIs(t, <-appendErr, domain.ErrRoomNotFound)
	require.Nil(t, gs.persisted("general"))
	require.Zero(t, gs.saveCount())
}

func TestRegistry_HydrateFromStore(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	reg := NewRegistry(fs)

	_, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)
	for _, text := range []string{"one", "two", "three"} {
		_, err = reg.AppendMessage(ctx, "general", domain.Message{Sender: "alice", Content: text})
		require.NoError(t, err)
	}

	// «рестарт»: новый реестр поверх того же store
	reg2 := NewRegistry(fs)
	msgs, err := reg2.Snapshot(ctx, "general")
	require.NoError(t, err)
	require.Equal(t, []string{"one", "two", "three"}, contents(msgs))

	_, err = reg2.AppendMessage(ctx, "general", domain.Message{Sender: "bob", Content: "four"})
	require.NoError(t, err)
	require.Len(t, fs.persisted("general").Messages, 4)
}

func TestRegistry_ConcurrentAppends(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	reg := NewRegistry(fs)

	_, err := reg.CreateRoom(ctx, "general")
	require.NoError(t, err)

	const n = 64
	errCh := make(chan error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := reg.AppendMessage(ctx, "general", domain.Message{Sender: "u", Content: "x"})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}

	msgs, err := reg.Snapshot(ctx, "general")
	require.NoError(t, err)
	require.Len(t, msgs, n)
	for i := 1; i < len(msgs); i++ {
		require.False(t, msgs[i].Timestamp.Before(msgs[i-1].Timestamp),
			"timestamps must be non-decreasing along the log")
	}
	require.Len(t, fs.persisted("general").Messages, n)
}
