package domain

import "time"

// Room — именованная комната с упорядоченной историей сообщений.
// Messages заполняется при обмене с durable store; в рантайме логом
// комнаты владеет реестр.
type Room struct {
	RoomID    string    `db:"room_id"`
	CreatedAt time.Time `db:"created_at"`
	Messages  []Message
}
