package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/messagely/messagely-go/internal/crypto"
	"github.com/messagely/messagely-go/internal/model"

	"golang.org/x/crypto/bcrypt"
)

type resetFixture struct {
	auth   *AuthService
	reset  *ResetService
	users  *fakeUserStore
	codes  *fakeResetStore
	sender *fakeSender
}

func newResetFixture(t *testing.T, codeTTL time.Duration) *resetFixture {
	t.Helper()
	users := newFakeUserStore()
	codes := newFakeResetStore(users)
	sender := newFakeSender()

	f := &resetFixture{
		auth:   newTestAuthService(users),
		reset:  NewResetService(users, codes, sender, codeTTL, bcrypt.MinCost),
		users:  users,
		codes:  codes,
		sender: sender,
	}
	registerAlice(t, f.auth)
	return f
}

// latestCode reads back the code the service just generated for a user.
func (f *resetFixture) latestCode(t *testing.T, username string) *model.ResetCode {
	t.Helper()
	rc, err := f.codes.MostRecent(context.Background(), username)
	if err != nil {
		t.Fatalf("MostRecent() unexpected error: %v", err)
	}
	return rc
}

func TestRequestReset_GeneratesAndDeliversCode(t *testing.T) {
	f := newResetFixture(t, 15*time.Minute)

	resp, err := f.reset.RequestReset(context.Background(), "alice")
	if err != nil {
		t.Fatalf("RequestReset() unexpected error: %v", err)
	}
	if resp.Message == "" {
		t.Error("RequestReset() returned empty confirmation")
	}

	rc := f.latestCode(t, "alice")
	if rc.Code < crypto.ResetCodeMin || rc.Code > crypto.ResetCodeMax {
		t.Errorf("generated code %d out of range", rc.Code)
	}

	sent := f.sender.waitForSend(t)
	if sent.To != "+15551234567" {
		t.Errorf("SMS sent to %q, want stored phone", sent.To)
	}
	if !strings.Contains(sent.Body, strconv.Itoa(rc.Code)) {
		t.Errorf("SMS body %q does not contain code %d", sent.Body, rc.Code)
	}
}

func TestRequestReset_UnknownUser(t *testing.T) {
	f := newResetFixture(t, 15*time.Minute)

	_, err := f.reset.RequestReset(context.Background(), "nobody")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestConfirmReset_ChangesPassword(t *testing.T) {
	f := newResetFixture(t, 15*time.Minute)

	if _, err := f.reset.RequestReset(context.Background(), "alice"); err != nil {
		t.Fatalf("RequestReset() unexpected error: %v", err)
	}
	f.sender.waitForSend(t)
	code := f.latestCode(t, "alice")

	err := f.reset.ConfirmReset(context.Background(), "alice", strconv.Itoa(code.Code), "newPass1")
	if err != nil {
		t.Fatalf("ConfirmReset() unexpected error: %v", err)
	}

	// New password works, old one does not.
	if _, err := f.auth.Login(context.Background(), model.LoginRequest{
		Username: "alice", Password: "newPass1",
	}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, err := f.auth.Login(context.Background(), model.LoginRequest{
		Username: "alice", Password: "secret-pass",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("login with old password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestConfirmReset_CodeIsSingleUse(t *testing.T) {
	f := newResetFixture(t, 15*time.Minute)

	if _, err := f.reset.RequestReset(context.Background(), "alice"); err != nil {
		t.Fatalf("RequestReset() unexpected error: %v", err)
	}
	f.sender.waitForSend(t)
	code := strconv.Itoa(f.latestCode(t, "alice").Code)

	if err := f.reset.ConfirmReset(context.Background(), "alice", code, "newPass1"); err != nil {
		t.Fatalf("ConfirmReset() unexpected error: %v", err)
	}

	err := f.reset.ConfirmReset(context.Background(), "alice", code, "newPass2")
	if !errors.Is(err, ErrInvalidResetCode) {
		t.Errorf("reused code: expected ErrInvalidResetCode, got %v", err)
	}

	// The first reset stuck; the second did not.
	if _, err := f.auth.Login(context.Background(), model.LoginRequest{
		Username: "alice", Password: "newPass1",
	}); err != nil {
		t.Errorf("login after rejected reuse failed: %v", err)
	}
}

func TestConfirmReset_WrongCode(t *testing.T) {
	f := newResetFixture(t, 15*time.Minute)

	if _, err := f.reset.RequestReset(context.Background(), "alice"); err != nil {
		t.Fatalf("RequestReset() unexpected error: %v", err)
	}
	f.sender.waitForSend(t)

	err := f.reset.ConfirmReset(context.Background(), "alice", "000000", "newPass1")
	if !errors.Is(err, ErrInvalidResetCode) {
		t.Errorf("expected ErrInvalidResetCode, got %v", err)
	}
}

func TestConfirmReset_NoCodeOnFile(t *testing.T) {
	f := newResetFixture(t, 15*time.Minute)

	err := f.reset.ConfirmReset(context.Background(), "alice", "123456", "newPass1")
	if !errors.Is(err, ErrInvalidResetCode) {
		t.Errorf("expected ErrInvalidResetCode, got %v", err)
	}
}

func TestConfirmReset_OnlyNewestCodeCounts(t *testing.T) {
	f := newResetFixture(t, 15*time.Minute)

	if _, err := f.reset.RequestReset(context.Background(), "alice"); err != nil {
		t.Fatalf("RequestReset() unexpected error: %v", err)
	}
	f.sender.waitForSend(t)
	first := f.latestCode(t, "alice").Code

	// Force a second, different code.
	second := first
	for second == first {
		if _, err := f.reset.RequestReset(context.Background(), "alice"); err != nil {
			t.Fatalf("RequestReset() unexpected error: %v", err)
		}
		f.sender.waitForSend(t)
		second = f.latestCode(t, "alice").Code
	}

	if err := f.reset.ConfirmReset(context.Background(), "alice", strconv.Itoa(first), "newPass1"); !errors.Is(err, ErrInvalidResetCode) {
		t.Errorf("older code: expected ErrInvalidResetCode, got %v", err)
	}
	if err := f.reset.ConfirmReset(context.Background(), "alice", strconv.Itoa(second), "newPass1"); err != nil {
		t.Errorf("newest code: unexpected error %v", err)
	}
}

func TestConfirmReset_ExpiredCode(t *testing.T) {
	f := newResetFixture(t, 15*time.Minute)

	if _, err := f.reset.RequestReset(context.Background(), "alice"); err != nil {
		t.Fatalf("RequestReset() unexpected error: %v", err)
	}
	f.sender.waitForSend(t)
	code := strconv.Itoa(f.latestCode(t, "alice").Code)

	f.codes.backdate(time.Hour)

	err := f.reset.ConfirmReset(context.Background(), "alice", code, "newPass1")
	if !errors.Is(err, ErrInvalidResetCode) {
		t.Errorf("expired code: expected ErrInvalidResetCode, got %v", err)
	}
}

func TestConfirmReset_ZeroTTLDisablesExpiry(t *testing.T) {
	f := newResetFixture(t, 0)

	if _, err := f.reset.RequestReset(context.Background(), "alice"); err != nil {
		t.Fatalf("RequestReset() unexpected error: %v", err)
	}
	f.sender.waitForSend(t)
	code := strconv.Itoa(f.latestCode(t, "alice").Code)

	f.codes.backdate(24 * time.Hour)

	if err := f.reset.ConfirmReset(context.Background(), "alice", code, "newPass1"); err != nil {
		t.Errorf("zero TTL: unexpected error %v", err)
	}
}

func TestConfirmReset_EmptyPassword(t *testing.T) {
	f := newResetFixture(t, 15*time.Minute)

	err := f.reset.ConfirmReset(context.Background(), "alice", "123456", "")
	if !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("expected ErrPasswordRequired, got %v", err)
	}
}

func TestMatchCode(t *testing.T) {
	if !matchCode("482913", 482913) {
		t.Error("matchCode() rejected an exact match")
	}
	if matchCode("012345", 12345) {
		t.Error("matchCode() accepted a leading-zero submission")
	}
	if !matchCode("12345", 12345) {
		t.Error("matchCode() rejected plain decimal match")
	}
	if matchCode("", 482913) {
		t.Error("matchCode() accepted an empty submission")
	}
	if matchCode("48291x", 482913) {
		t.Error("matchCode() accepted a non-numeric submission")
	}
	if matchCode("482914", 482913) {
		t.Error("matchCode() accepted a near-miss")
	}
}
