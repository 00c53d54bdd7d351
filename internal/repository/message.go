package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/messagely/messagely-go/internal/model"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageRepository handles message persistence operations.
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message and sets the generated ID and sent_at on the
// message struct.
func (r *MessageRepository) Create(ctx context.Context, msg *model.Message) error {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (from_username, to_username, body) VALUES (?, ?, ?)`,
		msg.FromUsername, msg.ToUsername, msg.Body)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	msg.ID = id

	return r.db.QueryRowContext(ctx,
		`SELECT sent_at FROM messages WHERE id = ?`, id,
	).Scan(&msg.SentAt)
}

// GetByID retrieves a message with joined sender and recipient summaries.
func (r *MessageRepository) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	query := `SELECT m.id, m.from_username, m.to_username, m.body, m.sent_at, m.read_at,
			f.first_name, f.last_name, f.phone,
			t.first_name, t.last_name, t.phone
		FROM messages m
		JOIN users f ON m.from_username = f.username
		JOIN users t ON m.to_username = t.username
		WHERE m.id = ?`

	msg := &model.Message{FromUser: &model.UserSummary{}, ToUser: &model.UserSummary{}}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID, &msg.FromUsername, &msg.ToUsername, &msg.Body, &msg.SentAt, &msg.ReadAt,
		&msg.FromUser.FirstName, &msg.FromUser.LastName, &msg.FromUser.Phone,
		&msg.ToUser.FirstName, &msg.ToUser.LastName, &msg.ToUser.Phone,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	msg.FromUser.Username = msg.FromUsername
	msg.ToUser.Username = msg.ToUsername

	return msg, nil
}

// MarkRead stamps a message's read_at and returns the updated message.
func (r *MessageRepository) MarkRead(ctx context.Context, id int64) (*model.Message, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE messages SET read_at = CURRENT_TIMESTAMP WHERE id = ? AND read_at IS NULL`, id)
	if err != nil {
		return nil, err
	}
	if _, err := result.RowsAffected(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// ListFrom retrieves all messages sent by a user, newest first, with
// recipient summaries.
func (r *MessageRepository) ListFrom(ctx context.Context, username string) ([]model.Message, error) {
	query := `SELECT m.id, m.from_username, m.to_username, m.body, m.sent_at, m.read_at,
			t.first_name, t.last_name, t.phone
		FROM messages m
		JOIN users t ON m.to_username = t.username
		WHERE m.from_username = ?
		ORDER BY m.sent_at DESC, m.id DESC`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		m := model.Message{ToUser: &model.UserSummary{}}
		if err := rows.Scan(
			&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &m.ReadAt,
			&m.ToUser.FirstName, &m.ToUser.LastName, &m.ToUser.Phone,
		); err != nil {
			return nil, err
		}
		m.ToUser.Username = m.ToUsername
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// ListTo retrieves all messages received by a user, newest first, with
// sender summaries.
func (r *MessageRepository) ListTo(ctx context.Context, username string) ([]model.Message, error) {
	query := `SELECT m.id, m.from_username, m.to_username, m.body, m.sent_at, m.read_at,
			f.first_name, f.last_name, f.phone
		FROM messages m
		JOIN users f ON m.from_username = f.username
		WHERE m.to_username = ?
		ORDER BY m.sent_at DESC, m.id DESC`

	rows, err := r.db.QueryContext(ctx, query, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		m := model.Message{FromUser: &model.UserSummary{}}
		if err := rows.Scan(
			&m.ID, &m.FromUsername, &m.ToUsername, &m.Body, &m.SentAt, &m.ReadAt,
			&m.FromUser.FirstName, &m.FromUser.LastName, &m.FromUser.Phone,
		); err != nil {
			return nil, err
		}
		m.FromUser.Username = m.FromUsername
		messages = append(messages, m)
	}

	return messages, rows.Err()
}
