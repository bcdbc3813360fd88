package chat

import (
	"context"

	"github.com/talkroom/chat-service/internal/domain"
)

// Store — durable-хранилище комнат. Реестр трактует его как синхронный
// внешний вызов, который может упасть; ретраев внутри ядра нет.
type Store interface {
	// SaveRoom персистит комнату вместе с её логом. Повторный вызов с тем
	// же состоянием должен быть идемпотентным.
	SaveRoom(ctx context.Context, room *domain.Room) error
	// FindRoomByID возвращает (nil, nil), если комнаты нет.
	FindRoomByID(ctx context.Context, roomID string) (*domain.Room, error)
}
