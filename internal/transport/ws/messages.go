package ws

import "github.com/talkroom/chat-service/internal/domain"

// Типы кадров, которые ходят по сокету
const (
	TypeChat    = "chat"     // сообщение комнаты
	TypeChatAck = "chat_ack" // подтверждение отправителю (НЕ сообщение)
	TypeError   = "error"    // ошибка обработки входящего кадра
)

type Frame struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ChatPayload struct {
	RoomID  string `json:"room_id"`
	Sender  string `json:"sender"`
	Content string `json:"content"`
	TSUnix  int64  `json:"ts_unix,omitempty"`
}

type ChatAckPayload struct {
	TSUnix int64 `json:"ts_unix"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

func chatFrame(roomID string, msg domain.Message) Frame {
	return Frame{
		Type: TypeChat,
		Payload: ChatPayload{
			RoomID:  roomID,
			Sender:  msg.Sender,
			Content: msg.Content,
			TSUnix:  msg.Timestamp.Unix(),
		},
	}
}
