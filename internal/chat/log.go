package chat

import (
	"sync"

	"github.com/talkroom/chat-service/internal/domain"
)

// messageLog — append-only лог одной комнаты. Сообщения неизменяемы,
// append только наращивает хвост, поэтому snapshot может отдавать
// копию заголовка слайса: читатель никогда не увидит «рваное» сообщение.
type messageLog struct {
	mu   sync.RWMutex
	msgs []domain.Message
}

func newMessageLog(msgs []domain.Message) *messageLog {
	return &messageLog{msgs: msgs}
}

func (l *messageLog) append(msg domain.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.msgs = append(l.msgs, msg)
}

// snapshot — консистентный срез лога на момент вызова.
func (l *messageLog) snapshot() []domain.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.msgs
}

func (l *messageLog) last() (domain.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.msgs) == 0 {
		return domain.Message{}, false
	}
	return l.msgs[len(l.msgs)-1], true
}
