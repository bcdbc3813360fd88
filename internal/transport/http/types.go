package http

import "time"

type CreateRoomRequest struct {
	RoomID string `json:"room_id"`
}

type RoomItem struct {
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type MessageItem struct {
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
