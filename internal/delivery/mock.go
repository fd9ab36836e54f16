package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// MockAdapter simulates the delivery channel for local development
type MockAdapter struct {
	logger *slog.Logger
}

// NewMockAdapter creates a new MockAdapter
func NewMockAdapter(logger *slog.Logger) *MockAdapter {
	return &MockAdapter{logger: logger}
}

var _ Adapter = (*MockAdapter)(nil)

// Send simulates a successful delivery
func (m *MockAdapter) Send(ctx context.Context, chatRef string, content Content) Result {
	ref := fmt.Sprintf("MOCK-MSG-%d", time.Now().UnixNano())
	m.logger.Info("mock delivery", "chatRef", chatRef, "text", content.Text, "messageRef", ref)
	return Result{Status: StatusDelivered, MessageRef: ref}
}

// Edit simulates a successful message edit
func (m *MockAdapter) Edit(ctx context.Context, chatRef, messageRef string, content Content) (bool, error) {
	m.logger.Info("mock edit", "chatRef", chatRef, "messageRef", messageRef, "text", content.Text)
	return true, nil
}
