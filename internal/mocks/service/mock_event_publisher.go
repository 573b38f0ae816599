// Package service holds testify mocks of the domain service interfaces.
package service

import (
	"context"

	"accounts/internal/domain/service"

	"github.com/stretchr/testify/mock"
)

// MockEventPublisher is a testify mock of service.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

// NewMockEventPublisher creates a mock that asserts its expectations on cleanup.
func NewMockEventPublisher(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockEventPublisher {
	m := &MockEventPublisher{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// PublishPasswordResetRequested records the call.
func (m *MockEventPublisher) PublishPasswordResetRequested(ctx context.Context, event *service.PasswordResetRequestedEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}

// Close records the call.
func (m *MockEventPublisher) Close() error {
	args := m.Called()

	return args.Error(0)
}
