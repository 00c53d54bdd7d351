package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/messagely/messagely-go/internal/model"
	"github.com/messagely/messagely-go/internal/repository"
	"github.com/messagely/messagely-go/internal/sms"
)

var (
	ErrRecipientRequired = errors.New("to_username is required")
	ErrBodyRequired      = errors.New("body is required")
	ErrMessageNotFound   = errors.New("message not found")
	ErrForbidden         = errors.New("not allowed to access this message")
)

// MessageService handles message business logic, including the ownership
// checks deciding who may see or mark a message.
type MessageService struct {
	messages MessageStore
	users    UserStore
	sender   sms.Sender
}

// NewMessageService creates a new MessageService.
func NewMessageService(messages MessageStore, users UserStore, sender sms.Sender) *MessageService {
	return &MessageService{messages: messages, users: users, sender: sender}
}

// Send persists a message from the authenticated caller and notifies the
// recipient's phone asynchronously.
func (s *MessageService) Send(ctx context.Context, fromUsername string, req model.SendMessageRequest) (model.MessageResponse, error) {
	if req.ToUsername == "" {
		return model.MessageResponse{}, ErrRecipientRequired
	}
	if req.Body == "" {
		return model.MessageResponse{}, ErrBodyRequired
	}

	recipient, err := s.users.GetByUsername(ctx, req.ToUsername)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.MessageResponse{}, ErrUserNotFound
		}
		return model.MessageResponse{}, err
	}

	msg := &model.Message{
		FromUsername: fromUsername,
		ToUsername:   req.ToUsername,
		Body:         req.Body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return model.MessageResponse{}, err
	}

	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if _, err := s.sender.Send(sendCtx, recipient.Phone, "You've got a new message."); err != nil {
			slog.Error("new-message notification delivery failed",
				"to", recipient.Username, "error", err)
		}
	}()

	return toMessageResponse(msg), nil
}

// Get retrieves a message for the caller. Only the sender or the recipient
// may read a message.
func (s *MessageService) Get(ctx context.Context, callerUsername string, id int64) (model.MessageResponse, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return model.MessageResponse{}, ErrMessageNotFound
		}
		return model.MessageResponse{}, err
	}

	if !canAccessMessage(callerUsername, msg) {
		return model.MessageResponse{}, ErrForbidden
	}

	return toMessageResponse(msg), nil
}

// MarkRead stamps a message as read. Only the recipient may do this.
func (s *MessageService) MarkRead(ctx context.Context, callerUsername string, id int64) (model.MessageResponse, error) {
	msg, err := s.messages.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrMessageNotFound) {
			return model.MessageResponse{}, ErrMessageNotFound
		}
		return model.MessageResponse{}, err
	}

	if !canMarkMessageRead(callerUsername, msg) {
		return model.MessageResponse{}, ErrForbidden
	}

	updated, err := s.messages.MarkRead(ctx, id)
	if err != nil {
		return model.MessageResponse{}, err
	}

	return toMessageResponse(updated), nil
}

// Inbox returns all messages received by the caller.
func (s *MessageService) Inbox(ctx context.Context, username string) ([]model.MessageResponse, error) {
	messages, err := s.messages.ListTo(ctx, username)
	if err != nil {
		return nil, err
	}
	return messagesToResponse(messages), nil
}

// Outbox returns all messages sent by the caller.
func (s *MessageService) Outbox(ctx context.Context, username string) ([]model.MessageResponse, error) {
	messages, err := s.messages.ListFrom(ctx, username)
	if err != nil {
		return nil, err
	}
	return messagesToResponse(messages), nil
}

// canAccessMessage reports whether a user may see a message: only its
// sender or its recipient.
func canAccessMessage(username string, msg *model.Message) bool {
	return username == msg.FromUsername || username == msg.ToUsername
}

// canMarkMessageRead reports whether a user may mark a message read: only
// its recipient.
func canMarkMessageRead(username string, msg *model.Message) bool {
	return username == msg.ToUsername
}

func toMessageResponse(m *model.Message) model.MessageResponse {
	return model.MessageResponse{
		ID:       m.ID,
		Body:     m.Body,
		SentAt:   m.SentAt,
		ReadAt:   m.ReadAt,
		FromUser: m.FromUser,
		ToUser:   m.ToUser,
	}
}

func messagesToResponse(messages []model.Message) []model.MessageResponse {
	result := make([]model.MessageResponse, len(messages))
	for i := range messages {
		result[i] = toMessageResponse(&messages[i])
	}
	return result
}
