package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/messagely/messagely-go/internal/model"
)

var ErrNoResetCode = errors.New("no reset code on file")

// ResetCodeRepository handles password-reset-code persistence operations.
type ResetCodeRepository struct {
	db *sql.DB
}

// NewResetCodeRepository creates a new ResetCodeRepository.
func NewResetCodeRepository(db *sql.DB) *ResetCodeRepository {
	return &ResetCodeRepository{db: db}
}

// Create inserts a reset code for a user. Earlier codes are left untouched;
// freshness is decided at read time via MostRecent.
func (r *ResetCodeRepository) Create(ctx context.Context, username string, code int) (*model.ResetCode, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_codes (username, code) VALUES (?, ?)`,
		username, code)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	rc := &model.ResetCode{ID: id, Username: username, Code: code}
	err = r.db.QueryRowContext(ctx,
		`SELECT created_at FROM password_reset_codes WHERE id = ?`, id,
	).Scan(&rc.CreatedAt)
	if err != nil {
		return nil, err
	}

	return rc, nil
}

// MostRecent retrieves the most recently created reset code for a user,
// consumed or not. Validation always looks at the newest code only.
func (r *ResetCodeRepository) MostRecent(ctx context.Context, username string) (*model.ResetCode, error) {
	query := `SELECT id, username, code, created_at, consumed_at
		FROM password_reset_codes
		WHERE username = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	rc := &model.ResetCode{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&rc.ID, &rc.Username, &rc.Code, &rc.CreatedAt, &rc.ConsumedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoResetCode
		}
		return nil, err
	}

	return rc, nil
}

// Consume marks a reset code as used and replaces the owner's password hash
// in a single transaction, so an accepted code can never be replayed against
// a half-updated password. Returns ErrNoResetCode if the code was consumed
// concurrently.
func (r *ResetCodeRepository) Consume(ctx context.Context, username string, codeID int64, newHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE password_reset_codes SET consumed_at = CURRENT_TIMESTAMP(6)
		WHERE id = ? AND username = ? AND consumed_at IS NULL`,
		codeID, username)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNoResetCode
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE username = ?`, newHash, username)
	if err != nil {
		return err
	}
	n, err = result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("consuming reset code %d: %w", codeID, ErrUserNotFound)
	}

	return tx.Commit()
}
