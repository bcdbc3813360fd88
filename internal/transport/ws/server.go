package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/talkroom/chat-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

type RoomSvc interface {
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
}

type ChatSvc interface {
	Send(ctx context.Context, roomID, sender, content string) (domain.Message, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	roomSvc  RoomSvc
	chatSvc  ChatSvc

	pingEvery    time.Duration
	writeTimeout time.Duration
}

func NewServer(hub *Hub, room RoomSvc, chat ChatSvc) *Server {
	return &Server{
		hub:     hub,
		roomSvc: room,
		chatSvc: chat,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery:    15 * time.Second,
		writeTimeout: 5 * time.Second,
	}
}

// WS endpoint: GET /ws/rooms/{roomId}?sender=...
// Подписка начинается с апгрейда; сообщения, отправленные до неё, по
// сокету не доезжают — за ними ходят в историю.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	sender := strings.TrimSpace(r.URL.Query().Get("sender"))
	if sender == "" {
		http.Error(w, "missing sender", http.StatusBadRequest)
		return
	}
	roomID := chi.URLParam(r, "roomId")
	if roomID == "" {
		http.Error(w, "missing room id", http.StatusBadRequest)
		return
	}

	if _, err := s.roomSvc.GetRoom(r.Context(), roomID); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		slog.Error("ws room lookup failed", "room", roomID, "err", err)
		http.Error(w, "room lookup failed", http.StatusInternalServerError)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWSConn(conn, roomID, sender)
	s.hub.Add(c)

	go s.writeLoop(c)
	s.readLoop(r.Context(), c)

	s.hub.Remove(c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "room", roomID, "sender", sender, "err", err)
	}
}

func (s *Server) readLoop(ctx context.Context, c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		var f Frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}

		switch f.Type {
		case TypeChat:
			var p ChatPayload
			if decode(f.Payload, &p) != nil {
				continue
			}
			sender := c.Sender()
			if v := strings.TrimSpace(p.Sender); v != "" {
				sender = v
			}

			// персист и фан-аут делает Router; здесь только ack отправителю
			msg, err := s.chatSvc.Send(ctx, c.roomID, sender, p.Content)
			if err != nil {
				slog.Warn("ws chat send failed", "room", c.roomID, "sender", sender, "err", err)
				_ = c.Send(Frame{Type: TypeError, Payload: ErrorPayload{Error: "send failed"}})
				continue
			}
			_ = c.Send(Frame{Type: TypeChatAck, Payload: ChatAckPayload{TSUnix: msg.Timestamp.Unix()}})
		default:
			// ignore
		}
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case f := <-c.out:
			if err := c.writeFrame(f, s.writeTimeout); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.writeTimeout))
		case <-c.closed:
			return
		}
	}
}

// --- helpers ---

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, dst)
}
