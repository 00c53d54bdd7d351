package service

import (
	"context"

	"github.com/messagely/messagely-go/internal/model"
)

// The services depend on narrow store interfaces rather than the concrete
// repositories so flows can be exercised against in-memory fakes. The
// repository structs satisfy these.

// UserStore persists user records.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdatePassword(ctx context.Context, username, newHash string) error
	TouchLastLogin(ctx context.Context, username string) error
}

// ResetCodeStore persists password-reset codes.
type ResetCodeStore interface {
	Create(ctx context.Context, username string, code int) (*model.ResetCode, error)
	MostRecent(ctx context.Context, username string) (*model.ResetCode, error)
	Consume(ctx context.Context, username string, codeID int64, newHash string) error
}

// MessageStore persists messages.
type MessageStore interface {
	Create(ctx context.Context, msg *model.Message) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	MarkRead(ctx context.Context, id int64) (*model.Message, error)
	ListFrom(ctx context.Context, username string) ([]model.Message, error)
	ListTo(ctx context.Context, username string) ([]model.Message, error)
}
