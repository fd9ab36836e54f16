package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
)

// SubscriberService manages the recipient roster
type SubscriberService struct {
	subscribers repositories.SubscriberRepository
	logger      *slog.Logger

	now func() time.Time
}

// NewSubscriberService creates a new SubscriberService
func NewSubscriberService(subscribers repositories.SubscriberRepository, logger *slog.Logger) *SubscriberService {
	return &SubscriberService{
		subscribers: subscribers,
		logger:      logger,
		now:         time.Now,
	}
}

// Register subscribes a chat to campaign announcements. Re-registering a
// known chat resubscribes it instead of creating a second roster entry.
func (s *SubscriberService) Register(ctx context.Context, chatRef, displayName string) (*models.Subscriber, error) {
	existing, err := s.subscribers.FindByChatRef(ctx, chatRef)
	if err != nil {
		return nil, fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if existing != nil {
		if !existing.Subscribed {
			if err := s.subscribers.Resubscribe(ctx, chatRef, s.now()); err != nil {
				return nil, fmt.Errorf("failed to resubscribe: %w", err)
			}
			existing.Subscribed = true
			s.logger.Info("subscriber rejoined", "chatRef", maskChatRef(chatRef))
		}
		return existing, nil
	}

	sub := &models.Subscriber{
		ChatRef:      chatRef,
		DisplayName:  displayName,
		Subscribed:   true,
		SubscribedAt: s.now(),
	}
	if err := s.subscribers.Create(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscriber: %w", err)
	}
	s.logger.Info("subscriber registered", "chatRef", maskChatRef(chatRef))
	return sub, nil
}

// Unsubscribe removes a chat from announcement fan-outs
func (s *SubscriberService) Unsubscribe(ctx context.Context, chatRef string) error {
	existing, err := s.subscribers.FindByChatRef(ctx, chatRef)
	if err != nil {
		return fmt.Errorf("failed to look up subscriber: %w", err)
	}
	if existing == nil {
		return ErrSubscriberNotFound
	}
	if err := s.subscribers.Unsubscribe(ctx, chatRef, s.now()); err != nil {
		return fmt.Errorf("failed to unsubscribe: %w", err)
	}
	s.logger.Info("subscriber left", "chatRef", maskChatRef(chatRef))
	return nil
}

// Count reports the roster size
func (s *SubscriberService) Count(ctx context.Context) (int64, error) {
	return s.subscribers.Count(ctx)
}
