package auth

import "context"

// LogMailer writes outgoing notifications to the logger instead of a real
// delivery channel. Useful in development and as a safe default.
type LogMailer struct {
	Logger Logger
}

// NewLogMailer creates a LogMailer, falling back to the package logger.
func NewLogMailer(logger Logger) *LogMailer {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogMailer{Logger: logger}
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, secret string) error {
	m.Logger.Info("password reset notification for %s: /password/reset/%s", email, secret)
	return nil
}

func (m *LogMailer) SendEmailVerification(ctx context.Context, email, secret string) error {
	m.Logger.Info("email verification notification for %s: /verify/%s", email, secret)
	return nil
}

// NoopMailer drops every notification. Intended for tests.
type NoopMailer struct{}

func (NoopMailer) SendPasswordReset(context.Context, string, string) error     { return nil }
func (NoopMailer) SendEmailVerification(context.Context, string, string) error { return nil }
