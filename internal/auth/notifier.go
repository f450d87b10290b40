package auth

import (
	"context"
	"log/slog"
)

// VerificationNotifier delivers email-verification links. Mail delivery lives
// outside this service; implementations hand the token to that collaborator.
type VerificationNotifier interface {
	NotifyVerification(ctx context.Context, user *User, token string) error
}

// LogNotifier records that a verification mail is due without sending it.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyVerification logs the pending notification. The token is not logged.
func (n *LogNotifier) NotifyVerification(_ context.Context, user *User, _ string) error {
	n.logger.Info("email verification pending", "user_id", user.ID, "email", user.Email)
	return nil
}
