package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/messagely/messagely-go/internal/crypto"
	"github.com/messagely/messagely-go/internal/model"
	"github.com/messagely/messagely-go/internal/repository"
	"github.com/messagely/messagely-go/internal/sms"
)

var ErrInvalidResetCode = errors.New("invalid reset code")

const deliveryTimeout = 30 * time.Second

// ResetService manages the password-reset code lifecycle: generation,
// delivery handoff, validation, and single-use consumption.
type ResetService struct {
	users      UserStore
	codes      ResetCodeStore
	sender     sms.Sender
	codeTTL    time.Duration
	bcryptCost int
}

// NewResetService creates a new ResetService. A codeTTL of zero disables
// expiry, matching the historical behavior.
func NewResetService(users UserStore, codes ResetCodeStore, sender sms.Sender, codeTTL time.Duration, bcryptCost int) *ResetService {
	return &ResetService{
		users:      users,
		codes:      codes,
		sender:     sender,
		codeTTL:    codeTTL,
		bcryptCost: bcryptCost,
	}
}

// RequestReset generates a reset code for the user and hands it to the SMS
// channel. Delivery runs asynchronously; a send failure is logged but does
// not fail the request.
func (s *ResetService) RequestReset(ctx context.Context, username string) (model.ResetRequestResponse, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.ResetRequestResponse{}, ErrUserNotFound
		}
		return model.ResetRequestResponse{}, err
	}

	code, err := crypto.GenerateResetCode()
	if err != nil {
		return model.ResetRequestResponse{}, err
	}

	if _, err := s.codes.Create(ctx, username, code); err != nil {
		return model.ResetRequestResponse{}, err
	}

	body := fmt.Sprintf("Your password reset code is %d.", code)
	go func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		id, err := s.sender.Send(sendCtx, user.Phone, body)
		if err != nil {
			slog.Error("reset code delivery failed", "username", username, "error", err)
			return
		}
		slog.Info("reset code delivered", "username", username, "delivery_id", id)
	}()

	return model.ResetRequestResponse{
		Message: "a reset code has been sent to your phone",
	}, nil
}

// ConfirmReset changes the user's password if the submitted code matches
// the most recently generated, unconsumed, unexpired code. On success the
// code is marked consumed in the same transaction that updates the
// password, so it can never authorize a second change.
func (s *ResetService) ConfirmReset(ctx context.Context, username, submittedCode, newPassword string) error {
	if newPassword == "" {
		return ErrPasswordRequired
	}

	rc, err := s.codes.MostRecent(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNoResetCode) {
			return ErrInvalidResetCode
		}
		return err
	}

	if !matchCode(submittedCode, rc.Code) {
		return ErrInvalidResetCode
	}
	if rc.Consumed() {
		return ErrInvalidResetCode
	}
	if s.codeTTL > 0 && time.Since(rc.CreatedAt) > s.codeTTL {
		return ErrInvalidResetCode
	}

	hash, err := crypto.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	if err := s.codes.Consume(ctx, username, rc.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNoResetCode) {
			return ErrInvalidResetCode
		}
		return err
	}

	return nil
}

// matchCode compares a submitted code against the stored integer. The
// submission must be a plain decimal with no leading zeros, so "012345"
// never matches a stored 12345.
func matchCode(submitted string, stored int) bool {
	if len(submitted) == 0 || submitted[0] == '0' {
		return false
	}
	n, err := strconv.Atoi(submitted)
	if err != nil {
		return false
	}
	return n == stored
}
