// Package sms delivers out-of-band notifications to users' phones. The
// calling flows treat delivery as fire-and-forget: a send failure is logged
// but never fails the flow that triggered it.
package sms

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Sender delivers a text message and returns a provider delivery ID.
type Sender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// LogSender writes messages to the log instead of a provider. Used in
// development when no SMS credentials are configured.
type LogSender struct {
	seq atomic.Int64
}

// NewLogSender creates a new LogSender.
func NewLogSender() *LogSender {
	return &LogSender{}
}

// Send logs the message and returns a synthetic delivery ID.
func (s *LogSender) Send(_ context.Context, to, body string) (string, error) {
	id := fmt.Sprintf("log-%d", s.seq.Add(1))
	slog.Info("sms (not sent — log sender)", "to", to, "body", body, "delivery_id", id)
	return id, nil
}
