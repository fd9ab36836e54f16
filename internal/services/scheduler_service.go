package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/promoloop/campaigns-backend/internal/clock"
	"github.com/promoloop/campaigns-backend/internal/config"
	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
)

// jobKey identifies a scheduled job. Removal and replacement happen by this
// identity, never by searching timers, which is what makes rematerialization
// idempotent: the same (kind, instanceKey, jobKind) can hold only one timer.
type jobKey struct {
	kind        models.CampaignKind
	instanceKey string
	job         models.JobKind
}

type scheduledJob struct {
	timer   *time.Timer
	firesAt time.Time
	runID   string
}

// ScheduledJobView is the diagnostic snapshot of one pending job
type ScheduledJobView struct {
	Kind        models.CampaignKind `json:"kind"`
	InstanceKey string              `json:"instanceKey"`
	Job         models.JobKind      `json:"job"`
	FiresAt     time.Time           `json:"firesAt"`
	RunID       string              `json:"runId"`
}

// SchedulerService maintains the in-memory job set for every defined
// campaign instance: up to announce/remind/close per instance, each firing
// once. Jobs are never persisted — they are recomputed from the definition
// store at process start and on every edit, which is what makes restarts
// safe. Instants already in the past are not auto-fired; operators catch up
// through RunNow.
type SchedulerService struct {
	definitions repositories.DefinitionRepository
	parts       *ParticipationService
	clk         *clock.Resolver
	cfg         *config.CampaignsConfig
	logger      *slog.Logger

	mu      sync.Mutex
	jobs    map[jobKey]*scheduledJob
	stopped bool

	now func() time.Time
}

// NewSchedulerService creates a new SchedulerService
func NewSchedulerService(
	definitions repositories.DefinitionRepository,
	parts *ParticipationService,
	clk *clock.Resolver,
	cfg *config.CampaignsConfig,
	logger *slog.Logger,
) *SchedulerService {
	return &SchedulerService{
		definitions: definitions,
		parts:       parts,
		clk:         clk,
		cfg:         cfg,
		logger:      logger,
		jobs:        make(map[jobKey]*scheduledJob),
		now:         time.Now,
	}
}

// RematerializeAll rebuilds jobs for every defined campaign instance.
// Failures on individual instances are logged and do not abort the rest.
func (s *SchedulerService) RematerializeAll(ctx context.Context) error {
	for _, kind := range []models.CampaignKind{models.KindRaffle, models.KindQuiz, models.KindDrawGame} {
		keys, err := s.definitions.ListInstanceKeys(ctx, kind)
		if err != nil {
			return fmt.Errorf("failed to list %s instances: %w", kind, err)
		}
		for _, key := range keys {
			if err := s.Rematerialize(ctx, kind, key); err != nil {
				s.logger.Error("failed to materialize jobs",
					"kind", kind, "instanceKey", key, "error", err)
			}
		}
	}
	return nil
}

// Rematerialize recomputes the jobs of one instance from its stored
// definition: previously scheduled jobs are removed by identity, the
// definition is re-read (never cached), and only future instants are armed.
func (s *SchedulerService) Rematerialize(ctx context.Context, kind models.CampaignKind, instanceKey string) error {
	def, err := s.definitions.FindByKindAndKey(ctx, kind, instanceKey)
	if err != nil {
		return fmt.Errorf("failed to read definition: %w", err)
	}
	if def == nil {
		s.removeJobs(kind, instanceKey)
		return ErrDefinitionNotFound
	}

	startAt, err := s.clk.ResolveLocal(def.StartLocal)
	if err != nil {
		// Start strings are validated at create/edit; a bad one here means
		// the stored definition was edited out of band
		s.removeJobs(kind, instanceKey)
		return err
	}
	instants := s.jobInstants(kind, instanceKey, startAt)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}

	for _, job := range []models.JobKind{models.JobAnnounce, models.JobRemind, models.JobClose} {
		key := jobKey{kind: kind, instanceKey: instanceKey, job: job}
		if sj, ok := s.jobs[key]; ok {
			sj.timer.Stop()
			delete(s.jobs, key)
		}
	}

	now := s.now()
	for job, at := range instants {
		if !at.After(now) {
			s.logger.Info("job instant already passed, not auto-firing",
				"kind", kind, "instanceKey", instanceKey, "job", job, "firesAt", at)
			continue
		}
		key := jobKey{kind: kind, instanceKey: instanceKey, job: job}
		sj := &scheduledJob{firesAt: at, runID: uuid.NewString()}
		runID := sj.runID
		sj.timer = time.AfterFunc(at.Sub(now), func() { s.fire(key, runID) })
		s.jobs[key] = sj
		s.logger.Info("job scheduled",
			"kind", kind, "instanceKey", instanceKey, "job", job,
			"firesAt", at, "runId", sj.runID)
	}
	return nil
}

// jobInstants computes the fire instants for one instance. Draw games only
// announce; date-keyed raffles close at end of day campaign-local, everything
// else closes when its participation window ends.
func (s *SchedulerService) jobInstants(kind models.CampaignKind, instanceKey string, startAt time.Time) map[models.JobKind]time.Time {
	instants := map[models.JobKind]time.Time{
		models.JobAnnounce: startAt,
	}
	if kind == models.KindDrawGame {
		return instants
	}

	windows := s.cfg.Windows(string(kind))
	instants[models.JobRemind] = startAt.Add(windows.RemindOffset)

	if kind == models.KindRaffle && s.clk.IsDateKey(instanceKey) {
		if eod, err := s.clk.EndOfDay(instanceKey); err == nil {
			instants[models.JobClose] = eod
			return instants
		}
	}
	instants[models.JobClose] = startAt.Add(windows.ParticipationWindow)
	return instants
}

// fire runs one scheduled job. The runID check makes a timer from a
// superseded materialization a no-op even if it was mid-flight during the
// reschedule.
func (s *SchedulerService) fire(key jobKey, runID string) {
	s.mu.Lock()
	sj, ok := s.jobs[key]
	if !ok || sj.runID != runID {
		s.mu.Unlock()
		return
	}
	delete(s.jobs, key)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()
	s.run(ctx, key.kind, key.instanceKey, key.job, false)
}

func (s *SchedulerService) run(ctx context.Context, kind models.CampaignKind, instanceKey string, job models.JobKind, manual bool) error {
	var err error
	switch job {
	case models.JobAnnounce:
		err = s.parts.Announce(ctx, kind, instanceKey, manual)
	case models.JobRemind:
		err = s.parts.Remind(ctx, kind, instanceKey)
	case models.JobClose:
		err = s.parts.Close(ctx, kind, instanceKey)
	default:
		err = fmt.Errorf("unknown job kind %q", job)
	}
	if err != nil {
		s.logger.Error("job run failed",
			"kind", kind, "instanceKey", instanceKey, "job", job,
			"manual", manual, "error", err)
		return err
	}
	s.logger.Info("job run complete",
		"kind", kind, "instanceKey", instanceKey, "job", job, "manual", manual)
	return nil
}

// RunNow triggers a job immediately on the manual path. A manual announce
// skips subscribers who were already announced to.
func (s *SchedulerService) RunNow(ctx context.Context, kind models.CampaignKind, instanceKey string, job models.JobKind) error {
	return s.run(ctx, kind, instanceKey, job, true)
}

// Jobs returns a snapshot of pending jobs sorted by next fire instant
func (s *SchedulerService) Jobs() []ScheduledJobView {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]ScheduledJobView, 0, len(s.jobs))
	for key, sj := range s.jobs {
		views = append(views, ScheduledJobView{
			Kind:        key.kind,
			InstanceKey: key.instanceKey,
			Job:         key.job,
			FiresAt:     sj.firesAt,
			RunID:       sj.runID,
		})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].FiresAt.Before(views[j].FiresAt) })
	return views
}

func (s *SchedulerService) removeJobs(kind models.CampaignKind, instanceKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range []models.JobKind{models.JobAnnounce, models.JobRemind, models.JobClose} {
		key := jobKey{kind: kind, instanceKey: instanceKey, job: job}
		if sj, ok := s.jobs[key]; ok {
			sj.timer.Stop()
			delete(s.jobs, key)
		}
	}
}

// Stop cancels every pending job; used at shutdown
func (s *SchedulerService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for key, sj := range s.jobs {
		sj.timer.Stop()
		delete(s.jobs, key)
	}
}
