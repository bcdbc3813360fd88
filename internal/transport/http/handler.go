package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/talkroom/chat-service/internal/chat"
	"github.com/talkroom/chat-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
)

const (
	defaultPage = 0
	defaultSize = 20
)

type Handler struct {
	registry *chat.Registry
	router   *chat.Router
}

func NewHandler(registry *chat.Registry, router *chat.Router) *Handler {
	return &Handler{
		registry: registry,
		router:   router,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// POST /api/v1/rooms
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}
	if strings.TrimSpace(req.RoomID) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing room_id"})
		return
	}

	room, err := h.registry.CreateRoom(r.Context(), req.RoomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomAlreadyExists) {
			writeJSON(w, http.StatusConflict, ErrorResponse{Error: "room already exists"})
			return
		}
		slog.Error("handler.CreateRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, RoomItem{
		RoomID:    room.RoomID,
		CreatedAt: room.CreatedAt,
	})
}

// GET /api/v1/rooms/{roomId}
func (h *Handler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	room, err := h.registry.GetRoom(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetRoom:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, RoomItem{
		RoomID:    room.RoomID,
		CreatedAt: room.CreatedAt,
	})
}

// GET /api/v1/rooms/{roomId}/messages?page=&size=
// page 0 — самые свежие size сообщений; страница за пределами истории —
// обычный пустой ответ, не ошибка.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")
	page := queryInt(r, "page", defaultPage)
	size := queryInt(r, "size", defaultSize)

	msgs, err := h.registry.Snapshot(r.Context(), roomID)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
			return
		}
		slog.Error("handler.GetMessages:", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	items := lo.Map(chat.Page(msgs, page, size), func(m domain.Message, _ int) MessageItem {
		return MessageItem{
			Sender:    m.Sender,
			Content:   m.Content,
			Timestamp: m.Timestamp.Truncate(time.Millisecond),
		}
	})
	if items == nil {
		items = []MessageItem{}
	}

	writeJSON(w, http.StatusOK, items)
}

// POST /api/v1/rooms/{roomId}/messages — send для клиентов без сокета
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomId")

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
		return
	}

	msg, err := h.router.Send(r.Context(), roomID, req.Sender, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptySender):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "missing sender"})
		case errors.Is(err, domain.ErrRoomNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
		default:
			slog.Error("handler.SendMessage:", slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusCreated, MessageItem{
		Sender:    msg.Sender,
		Content:   msg.Content,
		Timestamp: msg.Timestamp.Truncate(time.Millisecond),
	})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
