package service

import (
	"context"
	"time"
)

// PasswordResetRequestedEvent asks a downstream mailer to deliver a reset link.
type PasswordResetRequestedEvent struct {
	RequestID  string    `json:"request_id,omitempty"` // For distributed tracing
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishPasswordResetRequested hands a reset token to the delivery pipeline
	PublishPasswordResetRequested(ctx context.Context, event *PasswordResetRequestedEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
