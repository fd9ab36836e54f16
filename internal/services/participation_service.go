package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/promoloop/campaigns-backend/internal/clock"
	"github.com/promoloop/campaigns-backend/internal/config"
	"github.com/promoloop/campaigns-backend/internal/delivery"
	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ParticipationService owns the per-subscriber attempt lifecycle:
// Invited -> Engaged -> Answered -> Resolved{Approved|Denied|TimedOut}.
// Single-attempt and single-answer invariants are enforced by conditional
// repository updates; deadline comparison is authoritative over timer firing
// order, so an answer arriving at or after the deadline is rejected even if
// the timeout callback has not run yet.
type ParticipationService struct {
	campaigns    repositories.CampaignRepository
	participants repositories.ParticipantRepository
	subscribers  repositories.SubscriberRepository
	definitions  repositories.DefinitionRepository
	deliveryLogs repositories.DeliveryLogRepository
	courier      *delivery.Courier
	tickets      *TicketService
	timeouts     *TimeoutSupervisor
	clk          *clock.Resolver
	cfg          *config.CampaignsConfig
	logger       *slog.Logger

	now  func() time.Time
	pick func(n int) int
}

// NewParticipationService creates a new ParticipationService
func NewParticipationService(
	campaigns repositories.CampaignRepository,
	participants repositories.ParticipantRepository,
	subscribers repositories.SubscriberRepository,
	definitions repositories.DefinitionRepository,
	deliveryLogs repositories.DeliveryLogRepository,
	courier *delivery.Courier,
	tickets *TicketService,
	timeouts *TimeoutSupervisor,
	clk *clock.Resolver,
	cfg *config.CampaignsConfig,
	logger *slog.Logger,
) *ParticipationService {
	return &ParticipationService{
		campaigns:    campaigns,
		participants: participants,
		subscribers:  subscribers,
		definitions:  definitions,
		deliveryLogs: deliveryLogs,
		courier:      courier,
		tickets:      tickets,
		timeouts:     timeouts,
		clk:          clk,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		pick:         rand.Intn,
	}
}

// Announce fans the campaign invitation out to every subscribed recipient.
// Scheduled (automatic) firings resend to already-announced subscribers so
// the campaign truly starts for everyone even after a partial restart;
// manual reruns skip them so an operator catch-up never spams.
func (s *ParticipationService) Announce(ctx context.Context, kind models.CampaignKind, instanceKey string, manual bool) error {
	inst, def, err := s.ensureInstance(ctx, kind, instanceKey)
	if err != nil {
		return err
	}
	if !inst.IsActive {
		return ErrCampaignInactive
	}

	subs, err := s.subscribers.FindSubscribed(ctx)
	if err != nil {
		return fmt.Errorf("failed to load subscribers for announce: %w", err)
	}

	content := s.inviteContent(def)
	delivered := 0
	skipped := 0
	for _, sub := range subs {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		rec, err := s.participants.FindBySubscriberAndCampaign(ctx, sub.ID, inst.ID)
		if err != nil {
			s.logger.Error("failed to load participant record",
				"chatRef", maskChatRef(sub.ChatRef), "error", err)
			continue
		}
		if rec == nil {
			rec = &models.ParticipantRecord{
				SubscriberID:  sub.ID,
				CampaignID:    inst.ID,
				State:         models.StateInvited,
				Outcome:       models.OutcomeUnresolved,
				SequenceScope: s.cfg.Sequence.DefaultScope,
			}
			if err := s.participants.Create(ctx, rec); err != nil {
				s.logger.Error("failed to create participant record",
					"chatRef", maskChatRef(sub.ChatRef), "error", err)
				continue
			}
		}
		if manual && !rec.AnnouncedAt.IsZero() {
			skipped++
			continue
		}

		res := s.courier.Deliver(ctx, sub.ChatRef, content)
		s.logDelivery(ctx, sub.ID, inst.ID, models.JobAnnounce, res)
		switch res.Status {
		case delivery.StatusDelivered:
			if err := s.participants.MarkAnnounced(ctx, rec.ID, s.now(), res.MessageRef); err != nil {
				s.logger.Error("failed to mark participant announced",
					"participant", rec.ID.Hex(), "error", err)
			}
			delivered++
		case delivery.StatusBlocked, delivery.StatusPermanentFailure:
			s.dropSubscriber(ctx, sub.ChatRef, res)
		default:
			s.logger.Warn("announce delivery failed",
				"chatRef", maskChatRef(sub.ChatRef), "status", res.Status, "error", res.Err)
		}
		s.courier.Pace(ctx)
	}

	s.logger.Info("announce fan-out complete",
		"kind", kind, "instanceKey", instanceKey, "manual", manual,
		"delivered", delivered, "skipped", skipped, "total", len(subs))
	return nil
}

// Remind nudges announced subscribers who have not yet engaged
func (s *ParticipationService) Remind(ctx context.Context, kind models.CampaignKind, instanceKey string) error {
	inst, err := s.findInstance(ctx, kind, instanceKey)
	if err != nil {
		return err
	}
	if !inst.IsActive {
		return ErrCampaignInactive
	}

	records, err := s.participants.FindByCampaignAndState(ctx, inst.ID, models.StateInvited)
	if err != nil {
		return fmt.Errorf("failed to load invited participants: %w", err)
	}

	text := fmt.Sprintf("Reminder: %q is still open — join before the window closes!", inst.Title)
	reminded := 0
	for _, rec := range records {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if rec.AnnouncedAt.IsZero() {
			continue
		}
		sub, err := s.subscribers.FindByID(ctx, rec.SubscriberID)
		if err != nil || sub == nil || !sub.Subscribed {
			continue
		}
		res := s.courier.Deliver(ctx, sub.ChatRef, delivery.Content{Text: text})
		s.logDelivery(ctx, sub.ID, inst.ID, models.JobRemind, res)
		switch res.Status {
		case delivery.StatusDelivered:
			reminded++
		case delivery.StatusBlocked, delivery.StatusPermanentFailure:
			s.dropSubscriber(ctx, sub.ChatRef, res)
		}
		s.courier.Pace(ctx)
	}

	s.logger.Info("reminder fan-out complete",
		"kind", kind, "instanceKey", instanceKey, "reminded", reminded)
	return nil
}

// Close deactivates a campaign instance and expires any attempt still
// waiting on an answer. Closing an already-stopped instance is a no-op.
func (s *ParticipationService) Close(ctx context.Context, kind models.CampaignKind, instanceKey string) error {
	inst, err := s.findInstance(ctx, kind, instanceKey)
	if err != nil {
		return err
	}

	stopped, err := s.campaigns.MarkStopped(ctx, inst.ID, s.now())
	if err != nil {
		return fmt.Errorf("failed to stop campaign instance: %w", err)
	}
	if !stopped {
		s.logger.Info("campaign already stopped", "kind", kind, "instanceKey", instanceKey)
		return nil
	}

	engaged, err := s.participants.FindByCampaignAndState(ctx, inst.ID, models.StateEngaged)
	if err != nil {
		return fmt.Errorf("failed to load engaged participants at close: %w", err)
	}
	for _, rec := range engaged {
		s.timeouts.Disarm(rec.ID.Hex())
		if _, err := s.participants.ResolveTimeout(ctx, rec.ID); err != nil {
			s.logger.Error("failed to expire attempt at close",
				"participant", rec.ID.Hex(), "error", err)
		}
	}

	// Quiz rounds record non-participation: whoever never engaged is
	// resolved as timed out when the round closes
	var nonParticipants int64
	if kind == models.KindQuiz {
		nonParticipants, err = s.participants.ExpireNonParticipants(ctx, inst.ID)
		if err != nil {
			return fmt.Errorf("failed to expire non-participants at close: %w", err)
		}
	}

	s.logger.Info("campaign closed",
		"kind", kind, "instanceKey", instanceKey,
		"expired", len(engaged), "nonParticipants", nonParticipants)
	return nil
}

// Engage moves a subscriber from Invited to Engaged within the participation
// window, assigns a content item and arms the answer-deadline timer. The
// returned view is what the channel side sees and carries no answer key.
func (s *ParticipationService) Engage(ctx context.Context, kind models.CampaignKind, instanceKey, chatRef string) (*models.AssignedContent, error) {
	sub, inst, rec, err := s.lookupAttempt(ctx, kind, instanceKey, chatRef)
	if err != nil {
		return nil, err
	}
	if !inst.IsActive {
		return nil, ErrCampaignInactive
	}
	if rec.AnnouncedAt.IsZero() {
		return nil, ErrNotInvited
	}

	now := s.now()
	windows := s.cfg.Windows(string(kind))
	if !now.Before(rec.AnnouncedAt.Add(windows.ParticipationWindow)) {
		return nil, ErrWindowClosed
	}

	def, err := s.definitions.FindByKindAndKey(ctx, kind, instanceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign definition: %w", err)
	}
	if def == nil || len(def.Content) == 0 {
		return nil, ErrDefinitionNotFound
	}
	item := def.Content[s.pick(len(def.Content))]

	engaged, err := s.participants.Engage(ctx, rec.ID, item.ContentID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to engage participant: %w", err)
	}
	if !engaged {
		// Lost the transition: the record already left Invited
		return nil, ErrAlreadyEngaged
	}

	deadline := now.Add(windows.AnswerWindow)
	recID := rec.ID
	s.timeouts.Arm(recID.Hex(), deadline, func() { s.handleTimeout(recID) })

	s.logger.Info("participant engaged",
		"kind", kind, "instanceKey", instanceKey, "chatRef", maskChatRef(sub.ChatRef),
		"contentId", item.ContentID, "deadline", deadline)
	return item.View(), nil
}

// SubmitAnswer records a subscriber's single answer. Quiz attempts resolve
// automatically from the score; raffle attempts await an operator decision.
func (s *ParticipationService) SubmitAnswer(ctx context.Context, kind models.CampaignKind, instanceKey, chatRef, answer string) (*models.ParticipantRecord, error) {
	return s.submitScored(ctx, kind, instanceKey, chatRef, answer, -1)
}

// submitScored implements SubmitAnswer. forcedScore >= 0 bypasses
// definition-based scoring (used by the draw game, which scores on the roll).
func (s *ParticipationService) submitScored(ctx context.Context, kind models.CampaignKind, instanceKey, chatRef, answer string, forcedScore int) (*models.ParticipantRecord, error) {
	_, inst, rec, err := s.lookupAttempt(ctx, kind, instanceKey, chatRef)
	if err != nil {
		return nil, err
	}

	switch rec.State {
	case models.StateAnswered:
		return nil, ErrAlreadyAnswered
	case models.StateResolved:
		if rec.Outcome == models.OutcomeTimedOut {
			return nil, ErrAnswerDeadline
		}
		return nil, ErrAlreadyResolved
	case models.StateInvited:
		return nil, ErrNotEngaged
	}

	now := s.now()
	windows := s.cfg.Windows(string(kind))
	deadline := rec.EngagedAt.Add(windows.AnswerWindow)
	if !now.Before(deadline) {
		// The deadline comparison decides, not whether the timer fired first
		return nil, ErrAnswerDeadline
	}

	correct := forcedScore
	if correct < 0 {
		correct, err = s.scoreAnswer(ctx, kind, instanceKey, rec.AssignedContentID, answer)
		if err != nil {
			return nil, err
		}
	}

	accepted, err := s.participants.SubmitAnswer(ctx, rec.ID, answer, correct, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record answer: %w", err)
	}
	if !accepted {
		return nil, ErrAlreadyAnswered
	}
	s.timeouts.Disarm(rec.ID.Hex())

	rec.State = models.StateAnswered
	rec.AnswerText = answer
	rec.CorrectCount = correct
	rec.AnsweredAt = now

	s.logger.Info("answer recorded",
		"kind", kind, "instanceKey", inst.InstanceKey,
		"participant", rec.ID.Hex(), "correct", correct)

	if kind == models.KindQuiz {
		if correct >= s.cfg.QuizMinCorrect {
			if _, err := s.Approve(ctx, rec.ID); err != nil && !errors.Is(err, ErrAlreadyResolved) {
				return rec, err
			}
		} else {
			if err := s.Deny(ctx, rec.ID); err != nil && !errors.Is(err, ErrAlreadyResolved) {
				return rec, err
			}
		}
		reloaded, err := s.participants.FindByID(ctx, rec.ID)
		if err == nil && reloaded != nil {
			rec = reloaded
		}
	}
	return rec, nil
}

// scoreAnswer compares an answer against the assigned content item
func (s *ParticipationService) scoreAnswer(ctx context.Context, kind models.CampaignKind, instanceKey, contentID, answer string) (int, error) {
	def, err := s.definitions.FindByKindAndKey(ctx, kind, instanceKey)
	if err != nil {
		return 0, fmt.Errorf("failed to load campaign definition: %w", err)
	}
	if def == nil {
		return 0, ErrDefinitionNotFound
	}
	for _, item := range def.Content {
		if item.ContentID != contentID {
			continue
		}
		if len(item.Options) == 0 || item.CorrectOption < 0 || item.CorrectOption >= len(item.Options) {
			// Free-text prompt: scoring is the operator's job
			return 0, nil
		}
		if strings.EqualFold(strings.TrimSpace(answer), item.Options[item.CorrectOption]) {
			return 1, nil
		}
		return 0, nil
	}
	return 0, nil
}

// Approve resolves an answered attempt in the participant's favor and issues
// the next ticket number in their sequence scope
func (s *ParticipationService) Approve(ctx context.Context, participantID primitive.ObjectID) (int, error) {
	rec, err := s.participants.FindByID(ctx, participantID)
	if err != nil {
		return 0, fmt.Errorf("failed to load participant: %w", err)
	}
	if rec == nil {
		return 0, ErrParticipantNotFound
	}

	resolved, err := s.participants.Resolve(ctx, participantID, models.OutcomeApproved)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve participant: %w", err)
	}
	if !resolved {
		if rec.State == models.StateResolved {
			return 0, ErrAlreadyResolved
		}
		return 0, ErrNotAnswered
	}
	s.timeouts.Disarm(participantID.Hex())
	rec.State = models.StateResolved
	rec.Outcome = models.OutcomeApproved

	ticket, err := s.tickets.IssueNext(ctx, rec)
	if err != nil {
		// The approval stands; the missing ticket needs operator attention
		s.logger.Error("approved attempt has no ticket",
			"participant", participantID.Hex(), "error", err)
		return 0, err
	}

	if sub, err := s.subscribers.FindByID(ctx, rec.SubscriberID); err == nil && sub != nil {
		s.notifyChat(ctx, sub.ChatRef,
			fmt.Sprintf("Congratulations! Your answer was approved — your ticket number is %d.", ticket))
	}
	return ticket, nil
}

// Deny resolves an answered attempt against the participant
func (s *ParticipationService) Deny(ctx context.Context, participantID primitive.ObjectID) error {
	rec, err := s.participants.FindByID(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to load participant: %w", err)
	}
	if rec == nil {
		return ErrParticipantNotFound
	}

	resolved, err := s.participants.Resolve(ctx, participantID, models.OutcomeDenied)
	if err != nil {
		return fmt.Errorf("failed to resolve participant: %w", err)
	}
	if !resolved {
		if rec.State == models.StateResolved {
			return ErrAlreadyResolved
		}
		return ErrNotAnswered
	}
	s.timeouts.Disarm(participantID.Hex())

	if sub, err := s.subscribers.FindByID(ctx, rec.SubscriberID); err == nil && sub != nil {
		s.notifyChat(ctx, sub.ChatRef, "Unfortunately your answer was not accepted this time.")
	}
	return nil
}

// RemoveTicket revokes an assigned ticket number (explicit operator action;
// reopen never does this implicitly)
func (s *ParticipationService) RemoveTicket(ctx context.Context, participantID primitive.ObjectID) error {
	rec, err := s.participants.FindByID(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to load participant: %w", err)
	}
	if rec == nil {
		return ErrParticipantNotFound
	}
	cleared, err := s.participants.ClearTicketNumber(ctx, participantID)
	if err != nil {
		return fmt.Errorf("failed to clear ticket: %w", err)
	}
	if !cleared {
		return ErrNoTicket
	}
	s.logger.Info("ticket removed",
		"participant", participantID.Hex(), "ticket", rec.TicketNumber)
	return nil
}

// StopAndReopen resets every participant of an instance back to Invited and
// reactivates the instance. Already-issued ticket numbers are untouched.
func (s *ParticipationService) StopAndReopen(ctx context.Context, kind models.CampaignKind, instanceKey string) error {
	inst, err := s.findInstance(ctx, kind, instanceKey)
	if err != nil {
		return err
	}

	records, err := s.participants.FindByCampaign(ctx, inst.ID)
	if err != nil {
		return fmt.Errorf("failed to load participants for reopen: %w", err)
	}
	for _, rec := range records {
		s.timeouts.Disarm(rec.ID.Hex())
	}

	reset, err := s.participants.ResetForReopen(ctx, inst.ID)
	if err != nil {
		return fmt.Errorf("failed to reset participants: %w", err)
	}
	if err := s.campaigns.Reactivate(ctx, inst.ID); err != nil {
		return fmt.Errorf("failed to reactivate campaign: %w", err)
	}

	s.logger.Info("campaign reopened",
		"kind", kind, "instanceKey", instanceKey, "reset", reset)
	return nil
}

// Outstanding lists answered attempts still awaiting an operator decision
func (s *ParticipationService) Outstanding(ctx context.Context, kind models.CampaignKind, instanceKey string) ([]*models.ParticipantRecord, error) {
	inst, err := s.findInstance(ctx, kind, instanceKey)
	if err != nil {
		return nil, err
	}
	return s.participants.FindOutstanding(ctx, inst.ID)
}

// Stats summarises a campaign instance's participant states
func (s *ParticipationService) Stats(ctx context.Context, kind models.CampaignKind, instanceKey string) (*models.ParticipantStats, error) {
	inst, err := s.findInstance(ctx, kind, instanceKey)
	if err != nil {
		return nil, err
	}
	return s.participants.Stats(ctx, inst.ID)
}

// Instances lists all known campaign instances
func (s *ParticipationService) Instances(ctx context.Context) ([]*models.CampaignInstance, error) {
	return s.campaigns.FindAll(ctx)
}

// RecoverDeadlines rebuilds answer-deadline timers after a restart. Engaged
// attempts already past their deadline are expired immediately; the rest get
// their timers re-armed from the stored engagement time.
func (s *ParticipationService) RecoverDeadlines(ctx context.Context) error {
	instances, err := s.campaigns.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load campaign instances for recovery: %w", err)
	}

	armed, expired := 0, 0
	for _, inst := range instances {
		records, err := s.participants.FindByCampaignAndState(ctx, inst.ID, models.StateEngaged)
		if err != nil {
			s.logger.Error("failed to load engaged participants for recovery",
				"kind", inst.Kind, "instanceKey", inst.InstanceKey, "error", err)
			continue
		}
		windows := s.cfg.Windows(string(inst.Kind))
		for _, rec := range records {
			deadline := rec.EngagedAt.Add(windows.AnswerWindow)
			if !s.now().Before(deadline) {
				if ok, err := s.participants.ResolveTimeout(ctx, rec.ID); err != nil {
					s.logger.Error("failed to expire overdue attempt",
						"participant", rec.ID.Hex(), "error", err)
				} else if ok {
					expired++
				}
				continue
			}
			recID := rec.ID
			s.timeouts.Arm(recID.Hex(), deadline, func() { s.handleTimeout(recID) })
			armed++
		}
	}

	s.logger.Info("answer deadlines recovered", "armed", armed, "expired", expired)
	return nil
}

// handleTimeout is the armed deadline callback. It re-checks record state
// through the conditional update, so an attempt that already left Engaged is
// untouched no matter how the timer raced.
func (s *ParticipationService) handleTimeout(participantID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := s.participants.ResolveTimeout(ctx, participantID)
	if err != nil {
		s.logger.Error("failed to expire attempt", "participant", participantID.Hex(), "error", err)
		return
	}
	if !expired {
		return
	}
	s.logger.Info("attempt timed out", "participant", participantID.Hex())

	rec, err := s.participants.FindByID(ctx, participantID)
	if err != nil || rec == nil {
		return
	}
	if sub, err := s.subscribers.FindByID(ctx, rec.SubscriberID); err == nil && sub != nil {
		s.notifyChat(ctx, sub.ChatRef, "Time is up — the answer window for this round has closed.")
	}
}

// ensureInstance loads a definition and lazily creates its campaign instance
func (s *ParticipationService) ensureInstance(ctx context.Context, kind models.CampaignKind, instanceKey string) (*models.CampaignInstance, *models.CampaignDefinition, error) {
	def, err := s.definitions.FindByKindAndKey(ctx, kind, instanceKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load campaign definition: %w", err)
	}
	if def == nil {
		return nil, nil, ErrDefinitionNotFound
	}

	inst, err := s.campaigns.FindByKindAndKey(ctx, kind, instanceKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load campaign instance: %w", err)
	}
	if inst != nil {
		return inst, def, nil
	}

	startAt, err := s.clk.ResolveLocal(def.StartLocal)
	if err != nil {
		// Definitions are validated at create/edit time; reaching this means
		// the stored definition was corrupted out of band
		return nil, nil, fmt.Errorf("stored definition has invalid start time: %w", err)
	}
	seq, err := s.campaigns.NextSequenceNumber(ctx, kind)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compute sequence number: %w", err)
	}
	inst = &models.CampaignInstance{
		Kind:           kind,
		InstanceKey:    instanceKey,
		Title:          def.Title,
		StartAt:        startAt,
		SequenceNumber: seq,
		IsActive:       true,
	}
	if err := s.campaigns.Create(ctx, inst); err != nil {
		return nil, nil, fmt.Errorf("failed to create campaign instance: %w", err)
	}
	s.logger.Info("campaign instance created",
		"kind", kind, "instanceKey", instanceKey, "sequenceNumber", seq)
	return inst, def, nil
}

func (s *ParticipationService) findInstance(ctx context.Context, kind models.CampaignKind, instanceKey string) (*models.CampaignInstance, error) {
	inst, err := s.campaigns.FindByKindAndKey(ctx, kind, instanceKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign instance: %w", err)
	}
	if inst == nil {
		return nil, ErrCampaignNotFound
	}
	return inst, nil
}

// lookupAttempt resolves the (subscriber, instance, record) triple for a
// channel-side interaction
func (s *ParticipationService) lookupAttempt(ctx context.Context, kind models.CampaignKind, instanceKey, chatRef string) (*models.Subscriber, *models.CampaignInstance, *models.ParticipantRecord, error) {
	sub, err := s.subscribers.FindByChatRef(ctx, chatRef)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load subscriber: %w", err)
	}
	if sub == nil {
		return nil, nil, nil, ErrSubscriberNotFound
	}
	inst, err := s.findInstance(ctx, kind, instanceKey)
	if err != nil {
		return nil, nil, nil, err
	}
	rec, err := s.participants.FindBySubscriberAndCampaign(ctx, sub.ID, inst.ID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load participant record: %w", err)
	}
	if rec == nil {
		return nil, nil, nil, ErrNotInvited
	}
	return sub, inst, rec, nil
}

func (s *ParticipationService) inviteContent(def *models.CampaignDefinition) delivery.Content {
	return delivery.Content{
		Text: fmt.Sprintf("%s has started — tap below to take part!", def.Title),
		Buttons: []delivery.Button{
			{Label: "Participate", Data: fmt.Sprintf("engage:%s:%s", def.Kind, def.InstanceKey)},
		},
	}
}

func (s *ParticipationService) notifyChat(ctx context.Context, chatRef, text string) {
	res := s.courier.Deliver(ctx, chatRef, delivery.Content{Text: text})
	if res.Status != delivery.StatusDelivered {
		s.logger.Warn("notification delivery failed",
			"chatRef", maskChatRef(chatRef), "status", res.Status, "error", res.Err)
	}
}

func (s *ParticipationService) dropSubscriber(ctx context.Context, chatRef string, res delivery.Result) {
	s.logger.Warn("subscriber unreachable, unsubscribing",
		"chatRef", maskChatRef(chatRef), "status", res.Status)
	if err := s.subscribers.Unsubscribe(ctx, chatRef, s.now()); err != nil {
		s.logger.Error("failed to unsubscribe", "chatRef", maskChatRef(chatRef), "error", err)
	}
}

func (s *ParticipationService) logDelivery(ctx context.Context, subscriberID, campaignID primitive.ObjectID, job models.JobKind, res delivery.Result) {
	entry := &models.DeliveryLog{
		SubscriberID: subscriberID,
		CampaignID:   campaignID,
		JobKind:      job,
		Status:       string(res.Status),
		MessageRef:   res.MessageRef,
	}
	if res.Err != nil {
		entry.Error = res.Err.Error()
	}
	if err := s.deliveryLogs.Create(ctx, entry); err != nil {
		s.logger.Error("failed to write delivery log", "error", err)
	}
}

// maskChatRef hides most of a channel identifier in logs
func maskChatRef(chatRef string) string {
	return delivery.MaskChatRef(chatRef)
}
