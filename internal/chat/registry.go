package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/talkroom/chat-service/internal/domain"
)

// roomState — комната в рантайме. mu сериализует append (включая поход
// в store), лог при этом читается без ожидания идущей записи.
type roomState struct {
	mu   sync.Mutex
	room domain.Room
	log  *messageLog
}

// Registry — единственный владелец отображения roomID → лог. Создание и
// append идут через него; взаимное исключение на уровне комнаты, никогда
// не глобально (разные комнаты пишутся параллельно).
type Registry struct {
	store Store

	mu    sync.RWMutex
	rooms map[string]*roomState
}

func NewRegistry(store Store) *Registry {
	return &Registry{
		store: store,
		rooms: make(map[string]*roomState),
	}
}

// CreateRoom создаёт пустую комнату. Дубликат roomID — и в памяти, и в
// store — отклоняется, существующая комната не перезаписывается.
func (r *Registry) CreateRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	if roomID == "" {
		return nil, errors.New("empty room id")
	}

	r.mu.RLock()
	_, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return nil, domain.ErrRoomAlreadyExists
	}

	// комната могла пережить рестарт процесса
	persisted, err := r.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("store.FindRoomByID: %w", err)
	}
	if persisted != nil {
		r.hydrate(persisted)
		return nil, domain.ErrRoomAlreadyExists
	}

	room := domain.Room{RoomID: roomID, CreatedAt: time.Now()}

	// клеймим id под блокировкой карты, персистим уже под блокировкой комнаты
	st := &roomState{room: room, log: newMessageLog(nil)}
	r.mu.Lock()
	if _, ok := r.rooms[roomID]; ok {
		r.mu.Unlock()
		return nil, domain.ErrRoomAlreadyExists
	}
	st.mu.Lock()
	r.rooms[roomID] = st
	r.mu.Unlock()
	defer st.mu.Unlock()

	if err := r.store.SaveRoom(ctx, &room); err != nil {
		r.mu.Lock()
		delete(r.rooms, roomID)
		r.mu.Unlock()
		return nil, fmt.Errorf("store.SaveRoom: %w", err)
	}

	return &room, nil
}

// GetRoom возвращает метаданные комнаты; историю отдаёт Snapshot.
func (r *Registry) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	st, err := r.lookup(ctx, roomID)
	if err != nil {
		return nil, err
	}

	rm := st.room
	return &rm, nil
}

// AppendMessage — единственный путь мутации лога комнаты. Под блокировкой
// комнаты: серверный timestamp, персист кандидата, и только после
// успешного персиста — коммит в лог. Упавший store не оставляет следов
// ни в логе, ни у подписчиков.
func (r *Registry) AppendMessage(ctx context.Context, roomID string, msg domain.Message) (domain.Message, error) {
	st, err := r.lookup(ctx, roomID)
	if err != nil {
		return domain.Message{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	// создание могло откатиться, пока мы ждали блокировку комнаты;
	// осиротевшее состояние не должно воскресить комнату в store
	if !r.registered(roomID, st) {
		return domain.Message{}, domain.ErrRoomNotFound
	}

	// серверное время; не даём уйти назад относительно хвоста лога
	msg.Timestamp = time.Now()
	if last, ok := st.log.last(); ok && msg.Timestamp.Before(last.Timestamp) {
		msg.Timestamp = last.Timestamp
	}

	candidate := st.room
	candidate.Messages = append(st.log.snapshot(), msg)
	if err := r.store.SaveRoom(ctx, &candidate); err != nil {
		return domain.Message{}, fmt.Errorf("store.SaveRoom: %w", err)
	}
	st.log.append(msg)

	return msg, nil
}

// Snapshot — консистентный срез истории комнаты для движка пагинации.
// Не ждёт завершения идущего append: читатель видит состояние либо до,
// либо после него.
func (r *Registry) Snapshot(ctx context.Context, roomID string) ([]domain.Message, error) {
	st, err := r.lookup(ctx, roomID)
	if err != nil {
		return nil, err
	}

	return st.log.snapshot(), nil
}

// registered сообщает, что st всё ещё является текущим состоянием
// комнаты roomID.
func (r *Registry) registered(roomID string, st *roomState) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.rooms[roomID] == st
}

// lookup находит комнату в памяти, при промахе пробует store.
func (r *Registry) lookup(ctx context.Context, roomID string) (*roomState, error) {
	r.mu.RLock()
	st, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return st, nil
	}

	room, err := r.store.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("store.FindRoomByID: %w", err)
	}
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	return r.hydrate(room), nil
}

// hydrate регистрирует комнату, поднятую из store. Если её успели
// зарегистрировать параллельно — выигрывает уже существующее состояние.
func (r *Registry) hydrate(room *domain.Room) *roomState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if st, ok := r.rooms[room.RoomID]; ok {
		return st
	}

	meta := domain.Room{RoomID: room.RoomID, CreatedAt: room.CreatedAt}
	st := &roomState{room: meta, log: newMessageLog(room.Messages)}
	r.rooms[room.RoomID] = st
	return st
}
