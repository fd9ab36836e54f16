package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/promoloop/campaigns-backend/internal/models"
)

// drawGameSession is one in-flight roll. The sessions table exists so that a
// subscriber can have at most one roll resolving at a time: an entry is
// created when the guess is accepted and removed once the roll is resolved,
// whatever the outcome.
type drawGameSession struct {
	instanceKey string
	guess       int
	startedAt   time.Time
}

// GuessResult reports a resolved draw-game roll
type GuessResult struct {
	Roll   int  `json:"roll"`
	Win    bool `json:"win"`
	Ticket int  `json:"ticket,omitempty"`
}

// DrawGameService runs the guess-the-roll campaign kind on top of the
// participation state machine: a guess engages the attempt, the roll is
// delivered, and after a fixed settle delay the attempt auto-resolves —
// approved with a ticket on a match, denied otherwise.
type DrawGameService struct {
	parts  *ParticipationService
	settle time.Duration
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]drawGameSession

	roll  func() int
	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewDrawGameService creates a new DrawGameService
func NewDrawGameService(parts *ParticipationService, settle time.Duration, logger *slog.Logger) *DrawGameService {
	return &DrawGameService{
		parts:    parts,
		settle:   settle,
		logger:   logger,
		sessions: make(map[string]drawGameSession),
		roll:     func() int { return rand.Intn(6) + 1 },
		sleep:    sleepFor,
		now:      time.Now,
	}
}

func sleepFor(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Guess accepts a subscriber's guess, rolls, and resolves the attempt
func (s *DrawGameService) Guess(ctx context.Context, instanceKey, chatRef string, guess int) (*GuessResult, error) {
	if guess < 1 || guess > 6 {
		return nil, ErrInvalidGuess
	}

	s.mu.Lock()
	if _, busy := s.sessions[chatRef]; busy {
		s.mu.Unlock()
		return nil, ErrRollInProgress
	}
	s.sessions[chatRef] = drawGameSession{
		instanceKey: instanceKey,
		guess:       guess,
		startedAt:   s.now(),
	}
	s.mu.Unlock()
	defer s.clearSession(chatRef)

	// First interaction engages the attempt; a subscriber who engaged
	// earlier but never rolled continues from Engaged.
	if _, err := s.parts.Engage(ctx, models.KindDrawGame, instanceKey, chatRef); err != nil {
		if !errors.Is(err, ErrAlreadyEngaged) {
			return nil, err
		}
	}

	rolled := s.roll()
	s.parts.notifyChat(ctx, chatRef, fmt.Sprintf("The die is cast... it shows %d!", rolled))

	// Let the channel-side animation settle before resolving
	if err := s.sleep(ctx, s.settle); err != nil {
		return nil, err
	}

	score := 0
	if rolled == guess {
		score = 1
	}
	rec, err := s.parts.submitScored(ctx, models.KindDrawGame, instanceKey, chatRef, strconv.Itoa(guess), score)
	if err != nil {
		return nil, err
	}

	result := &GuessResult{Roll: rolled, Win: rolled == guess}
	if result.Win {
		ticket, err := s.parts.Approve(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		result.Ticket = ticket
	} else {
		if err := s.parts.Deny(ctx, rec.ID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("draw game roll resolved",
		"instanceKey", instanceKey, "chatRef", maskChatRef(chatRef),
		"guess", guess, "roll", rolled, "win", result.Win)
	return result, nil
}

func (s *DrawGameService) clearSession(chatRef string) {
	s.mu.Lock()
	delete(s.sessions, chatRef)
	s.mu.Unlock()
}

// ActiveSessions reports the number of rolls currently resolving
func (s *DrawGameService) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
