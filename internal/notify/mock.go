package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// MockNotifier implements Notifier by logging alerts. Used in development
// when no email provider is configured.
type MockNotifier struct{}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) Publish(ctx context.Context, alert Alert) error {
	log.Info().
		Str("business", alert.BusinessName).
		Int("rating", alert.Rating).
		Str("comment", alert.Comment).
		Msg("[mock] low rating alert")
	return nil
}
