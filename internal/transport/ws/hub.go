package ws

import (
	"sync"

	"github.com/talkroom/chat-service/internal/domain"
)

type Conn interface {
	// Send ставит кадр в исходящую очередь соединения; false — очередь
	// переполнена, кадр отброшен.
	Send(f Frame) bool
	Close() error
	RoomID() string
}

// Hub держит подписки roomID → соединения и реализует chat.Broadcaster.
// Доставка best-effort: переполненная очередь подписчика не блокирует
// ни остальных подписчиков, ни вызывающий send.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[Conn]struct{} // roomID -> set of connections
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[Conn]struct{})}
}

func (h *Hub) Add(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rs, ok := h.rooms[c.RoomID()]
	if !ok {
		rs = make(map[Conn]struct{})
		h.rooms[c.RoomID()] = rs
	}
	rs[c] = struct{}{}
}

func (h *Hub) Remove(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if rs, ok := h.rooms[c.RoomID()]; ok {
		delete(rs, c)
		if len(rs) == 0 {
			delete(h.rooms, c.RoomID())
		}
	}
}

// Publish рассылает сообщение всем текущим подписчикам комнаты.
// Подписавшиеся позже ничего из прошлого не получают — replay-а нет.
func (h *Hub) Publish(roomID string, msg domain.Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if rs, ok := h.rooms[roomID]; ok {
		f := chatFrame(roomID, msg)
		for c := range rs {
			_ = c.Send(f) // best-effort
		}
	}
}
