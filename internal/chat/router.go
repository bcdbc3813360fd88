package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/talkroom/chat-service/internal/domain"
)

var ErrEmptySender = errors.New("empty sender")

// Broadcaster — realtime-канал доставки в комнату. Публикация
// best-effort и at-most-once: отвалившийся или медленный подписчик
// просто не получает сообщение, очереди для офлайна нет — догоняют
// историю через пагинацию.
type Broadcaster interface {
	Publish(roomID string, msg domain.Message)
}

// Router проводит входящий send по пути комната → лог → подписчики.
type Router struct {
	registry *Registry
	bc       Broadcaster
}

func NewRouter(registry *Registry, bc Broadcaster) *Router {
	return &Router{registry: registry, bc: bc}
}

// Send сохраняет сообщение и рассылает его подписчикам комнаты.
// Фан-аут строго после персиста: переподключившийся клиент обязан
// увидеть сообщение в истории. Упавший персист — никакой рассылки.
func (rt *Router) Send(ctx context.Context, roomID, sender, content string) (domain.Message, error) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return domain.Message{}, ErrEmptySender
	}

	msg, err := rt.registry.AppendMessage(ctx, roomID, domain.Message{
		Sender:  sender,
		Content: content,
	})
	if err != nil {
		return domain.Message{}, err
	}

	rt.bc.Publish(roomID, msg)

	return msg, nil
}
