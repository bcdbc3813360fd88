package domain

import "time"

// Message — неизменяемое сообщение комнаты. Timestamp назначается
// сервером в момент добавления в лог; клиентское время не принимается.
type Message struct {
	Sender    string    `db:"sender"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"created_at"`
}
