package postgres

import (
	"context"
	"errors"

	"github.com/talkroom/chat-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RoomStore реализует chat.Store поверх Postgres. Комната хранится
// «документом»: строка rooms плюс упорядоченные по seq строки
// room_messages. SaveRoom идемпотентен — дописываются только сообщения
// с ещё не сохранённым seq.
type RoomStore struct {
	db *pgxpool.Pool
}

func NewRoomStore(db *pgxpool.Pool) *RoomStore {
	return &RoomStore{db: db}
}

func (s *RoomStore) SaveRoom(ctx context.Context, room *domain.Room) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO rooms (room_id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (room_id) DO NOTHING
	`, room.RoomID, room.CreatedAt); err != nil {
		return err
	}

	var next int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq)+1, 0) FROM room_messages WHERE room_id=$1`,
		room.RoomID).Scan(&next); err != nil {
		return err
	}

	for i := next; i < len(room.Messages); i++ {
		m := room.Messages[i]
		if _, err := tx.Exec(ctx, `
			INSERT INTO room_messages (room_id, seq, sender, content, created_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (room_id, seq) DO NOTHING
		`, room.RoomID, i, m.Sender, m.Content, m.Timestamp); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *RoomStore) FindRoomByID(ctx context.Context, roomID string) (*domain.Room, error) {
	var rm domain.Room
	err := s.db.QueryRow(ctx,
		`SELECT room_id, created_at FROM rooms WHERE room_id=$1`,
		roomID).Scan(&rm.RoomID, &rm.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT sender, content, created_at
		FROM room_messages
		WHERE room_id=$1
		ORDER BY seq
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.Sender, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		rm.Messages = append(rm.Messages, m)
	}

	return &rm, rows.Err()
}
