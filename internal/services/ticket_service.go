package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/promoloop/campaigns-backend/internal/config"
	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
)

// Alerter raises operator-visible alerts for conditions that need manual
// remediation (duplicate tickets above all)
type Alerter interface {
	Alert(ctx context.Context, message string)
}

// TicketService issues globally unique, monotonically increasing ticket
// numbers per sequence scope. Serialization happens under a per-scope mutex:
// the maximum is recomputed from durable storage and the winning record's
// ticket is written before the lock is released, so concurrent approvals and
// process restarts can never hand out the same number twice.
type TicketService struct {
	participants repositories.ParticipantRepository
	sequence     config.SequenceConfig
	alerter      Alerter
	logger       *slog.Logger

	mu     sync.Mutex
	scopes map[string]*sync.Mutex
}

// NewTicketService creates a new TicketService
func NewTicketService(participants repositories.ParticipantRepository, sequence config.SequenceConfig, alerter Alerter, logger *slog.Logger) *TicketService {
	return &TicketService{
		participants: participants,
		sequence:     sequence,
		alerter:      alerter,
		logger:       logger,
		scopes:       make(map[string]*sync.Mutex),
	}
}

func (s *TicketService) scopeLock(scope string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.scopes[scope]
	if !ok {
		l = &sync.Mutex{}
		s.scopes[scope] = l
	}
	return l
}

func (s *TicketService) floor(scope string) int {
	if f, ok := s.sequence.Floors[scope]; ok {
		return f
	}
	return 0
}

// IssueNext assigns the next ticket number in the record's sequence scope.
// The record must already be approved; a record that already holds a ticket
// is an integrity violation and is surfaced, not silently renumbered.
func (s *TicketService) IssueNext(ctx context.Context, record *models.ParticipantRecord) (int, error) {
	scope := record.SequenceScope
	if scope == "" {
		scope = s.sequence.DefaultScope
	}

	lock := s.scopeLock(scope)
	lock.Lock()
	defer lock.Unlock()

	max, ok, err := s.participants.MaxTicketNumber(ctx, scope)
	if err != nil {
		return 0, fmt.Errorf("failed to read ticket ledger for scope %q: %w", scope, err)
	}
	if !ok {
		max = s.floor(scope)
	}
	next := max + 1

	assigned, err := s.participants.SetTicketNumber(ctx, record.ID, next)
	if err != nil {
		return 0, fmt.Errorf("failed to write ticket %d in scope %q: %w", next, scope, err)
	}
	if !assigned {
		return 0, fmt.Errorf("ticket assignment refused for participant %s: record is not approved or already holds a ticket", record.ID.Hex())
	}

	record.TicketNumber = next
	s.logger.Info("ticket issued", "scope", scope, "ticket", next, "participant", record.ID.Hex())
	return next, nil
}

// AuditDuplicates scans every scope for ticket numbers held more than once.
// Duplicates are reported to the operator and logged; the system keeps
// running with the duplicate flagged for manual remediation.
func (s *TicketService) AuditDuplicates(ctx context.Context) ([]models.DuplicateTicket, error) {
	duplicates, err := s.participants.FindDuplicateTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("duplicate ticket audit failed: %w", err)
	}
	for _, d := range duplicates {
		s.logger.Warn("duplicate ticket detected",
			"scope", d.SequenceScope, "ticket", d.TicketNumber, "holders", d.Count)
		if s.alerter != nil {
			s.alerter.Alert(ctx, fmt.Sprintf(
				"Duplicate ticket %d in scope %q held by %d participants — manual remediation required",
				d.TicketNumber, d.SequenceScope, d.Count))
		}
	}
	return duplicates, nil
}
