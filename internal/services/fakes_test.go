package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/promoloop/campaigns-backend/internal/clock"
	"github.com/promoloop/campaigns-backend/internal/config"
	"github.com/promoloop/campaigns-backend/internal/delivery"
	"github.com/promoloop/campaigns-backend/internal/models"
	"github.com/promoloop/campaigns-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ---- in-memory repositories ----
// These emulate the conditional-update semantics of the real storage layer:
// every mutator checks the expected current state under the fake's lock and
// reports whether the caller won the transition.

type fakeCampaignRepo struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.CampaignInstance
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{byID: make(map[primitive.ObjectID]*models.CampaignInstance)}
}

var _ repositories.CampaignRepository = (*fakeCampaignRepo)(nil)

func (r *fakeCampaignRepo) Create(ctx context.Context, inst *models.CampaignInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst.ID = primitive.NewObjectID()
	inst.CreatedAt = time.Now()
	r.byID[inst.ID] = inst
	return nil
}

func (r *fakeCampaignRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.CampaignInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *fakeCampaignRepo) FindByKindAndKey(ctx context.Context, kind models.CampaignKind, instanceKey string) (*models.CampaignInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range r.byID {
		if inst.Kind == kind && inst.InstanceKey == instanceKey {
			return inst, nil
		}
	}
	return nil, nil
}

func (r *fakeCampaignRepo) FindAll(ctx context.Context) ([]*models.CampaignInstance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.CampaignInstance{}
	for _, inst := range r.byID {
		out = append(out, inst)
	}
	return out, nil
}

func (r *fakeCampaignRepo) Update(ctx context.Context, inst *models.CampaignInstance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[inst.ID] = inst
	return nil
}

func (r *fakeCampaignRepo) MarkStopped(ctx context.Context, id primitive.ObjectID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.byID[id]
	if !ok || !inst.IsActive {
		return false, nil
	}
	inst.IsActive = false
	inst.StoppedAt = at
	return true, nil
}

func (r *fakeCampaignRepo) Reactivate(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inst, ok := r.byID[id]; ok {
		inst.IsActive = true
		inst.StoppedAt = time.Time{}
	}
	return nil
}

func (r *fakeCampaignRepo) NextSequenceNumber(ctx context.Context, kind models.CampaignKind) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max := 0
	for _, inst := range r.byID {
		if inst.Kind == kind && inst.SequenceNumber > max {
			max = inst.SequenceNumber
		}
	}
	return max + 1, nil
}

type fakeParticipantRepo struct {
	mu   sync.Mutex
	byID map[primitive.ObjectID]*models.ParticipantRecord
}

func newFakeParticipantRepo() *fakeParticipantRepo {
	return &fakeParticipantRepo{byID: make(map[primitive.ObjectID]*models.ParticipantRecord)}
}

var _ repositories.ParticipantRepository = (*fakeParticipantRepo)(nil)

func (r *fakeParticipantRepo) Create(ctx context.Context, rec *models.ParticipantRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = primitive.NewObjectID()
	rec.CreatedAt = time.Now()
	r.byID[rec.ID] = rec
	return nil
}

func (r *fakeParticipantRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.ParticipantRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		cp := *rec
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeParticipantRepo) FindBySubscriberAndCampaign(ctx context.Context, subscriberID, campaignID primitive.ObjectID) (*models.ParticipantRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.byID {
		if rec.SubscriberID == subscriberID && rec.CampaignID == campaignID {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeParticipantRepo) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID) ([]*models.ParticipantRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.ParticipantRecord{}
	for _, rec := range r.byID {
		if rec.CampaignID == campaignID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) FindByCampaignAndState(ctx context.Context, campaignID primitive.ObjectID, state models.AttemptState) ([]*models.ParticipantRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.ParticipantRecord{}
	for _, rec := range r.byID {
		if rec.CampaignID == campaignID && rec.State == state {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) FindOutstanding(ctx context.Context, campaignID primitive.ObjectID) ([]*models.ParticipantRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.ParticipantRecord{}
	for _, rec := range r.byID {
		if rec.CampaignID == campaignID && rec.State == models.StateAnswered && rec.Outcome == models.OutcomeUnresolved {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) MarkAnnounced(ctx context.Context, id primitive.ObjectID, at time.Time, messageRef string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		rec.AnnouncedAt = at
		rec.MessageRef = messageRef
	}
	return nil
}

func (r *fakeParticipantRepo) Engage(ctx context.Context, id primitive.ObjectID, contentID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.State != models.StateInvited {
		return false, nil
	}
	rec.State = models.StateEngaged
	rec.AssignedContentID = contentID
	rec.EngagedAt = at
	return true, nil
}

func (r *fakeParticipantRepo) SubmitAnswer(ctx context.Context, id primitive.ObjectID, answer string, correctCount int, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.State != models.StateEngaged || rec.AnswerText != "" {
		return false, nil
	}
	rec.State = models.StateAnswered
	rec.AnswerText = answer
	rec.CorrectCount = correctCount
	rec.AnsweredAt = at
	return true, nil
}

func (r *fakeParticipantRepo) Resolve(ctx context.Context, id primitive.ObjectID, outcome models.Outcome) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.State != models.StateAnswered || rec.Outcome != models.OutcomeUnresolved {
		return false, nil
	}
	rec.State = models.StateResolved
	rec.Outcome = outcome
	return true, nil
}

func (r *fakeParticipantRepo) ResolveTimeout(ctx context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.State != models.StateEngaged {
		return false, nil
	}
	rec.State = models.StateResolved
	rec.Outcome = models.OutcomeTimedOut
	return true, nil
}

func (r *fakeParticipantRepo) ExpireNonParticipants(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.byID {
		if rec.CampaignID == campaignID && rec.State == models.StateInvited {
			rec.State = models.StateResolved
			rec.Outcome = models.OutcomeTimedOut
			n++
		}
	}
	return n, nil
}

func (r *fakeParticipantRepo) SetTicketNumber(ctx context.Context, id primitive.ObjectID, ticketNumber int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.Outcome != models.OutcomeApproved || rec.TicketNumber != 0 {
		return false, nil
	}
	rec.TicketNumber = ticketNumber
	return true, nil
}

func (r *fakeParticipantRepo) ClearTicketNumber(ctx context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.byID[id]
	if !ok || rec.TicketNumber == 0 {
		return false, nil
	}
	rec.TicketNumber = 0
	return true, nil
}

func (r *fakeParticipantRepo) MaxTicketNumber(ctx context.Context, sequenceScope string) (int, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	max, found := 0, false
	for _, rec := range r.byID {
		if rec.SequenceScope == sequenceScope && rec.TicketNumber > 0 {
			found = true
			if rec.TicketNumber > max {
				max = rec.TicketNumber
			}
		}
	}
	return max, found, nil
}

func (r *fakeParticipantRepo) FindDuplicateTickets(ctx context.Context) ([]models.DuplicateTicket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	type key struct {
		scope  string
		ticket int
	}
	counts := map[key]int{}
	for _, rec := range r.byID {
		if rec.TicketNumber > 0 {
			counts[key{rec.SequenceScope, rec.TicketNumber}]++
		}
	}
	out := []models.DuplicateTicket{}
	for k, n := range counts {
		if n > 1 {
			out = append(out, models.DuplicateTicket{SequenceScope: k.scope, TicketNumber: k.ticket, Count: n})
		}
	}
	return out, nil
}

func (r *fakeParticipantRepo) ResetForReopen(ctx context.Context, campaignID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, rec := range r.byID {
		if rec.CampaignID != campaignID {
			continue
		}
		rec.State = models.StateInvited
		rec.Outcome = models.OutcomeUnresolved
		rec.AssignedContentID = ""
		rec.AnswerText = ""
		rec.CorrectCount = 0
		rec.EngagedAt = time.Time{}
		rec.AnsweredAt = time.Time{}
		n++
	}
	return n, nil
}

func (r *fakeParticipantRepo) Stats(ctx context.Context, campaignID primitive.ObjectID) (*models.ParticipantStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &models.ParticipantStats{}
	for _, rec := range r.byID {
		if rec.CampaignID != campaignID {
			continue
		}
		stats.Total++
		switch rec.State {
		case models.StateInvited:
			stats.Invited++
		case models.StateEngaged:
			stats.Engaged++
		case models.StateAnswered:
			stats.Answered++
		}
		switch rec.Outcome {
		case models.OutcomeApproved:
			stats.Approved++
		case models.OutcomeDenied:
			stats.Denied++
		case models.OutcomeTimedOut:
			stats.TimedOut++
		case models.OutcomeUnresolved:
			stats.Unresolved++
		}
	}
	return stats, nil
}

// mutate applies fn to the stored record under the fake's lock (test setup)
func (r *fakeParticipantRepo) mutate(id primitive.ObjectID, fn func(*models.ParticipantRecord)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.byID[id]; ok {
		fn(rec)
	}
}

type fakeSubscriberRepo struct {
	mu     sync.Mutex
	byID   map[primitive.ObjectID]*models.Subscriber
	byChat map[string]*models.Subscriber
}

func newFakeSubscriberRepo() *fakeSubscriberRepo {
	return &fakeSubscriberRepo{
		byID:   make(map[primitive.ObjectID]*models.Subscriber),
		byChat: make(map[string]*models.Subscriber),
	}
}

var _ repositories.SubscriberRepository = (*fakeSubscriberRepo)(nil)

func (r *fakeSubscriberRepo) Create(ctx context.Context, sub *models.Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub.ID = primitive.NewObjectID()
	r.byID[sub.ID] = sub
	r.byChat[sub.ChatRef] = sub
	return nil
}

func (r *fakeSubscriberRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[id], nil
}

func (r *fakeSubscriberRepo) FindByChatRef(ctx context.Context, chatRef string) (*models.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byChat[chatRef], nil
}

func (r *fakeSubscriberRepo) FindSubscribed(ctx context.Context) ([]*models.Subscriber, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.Subscriber{}
	for _, sub := range r.byID {
		if sub.Subscribed {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r *fakeSubscriberRepo) Resubscribe(ctx context.Context, chatRef string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.byChat[chatRef]; ok {
		sub.Subscribed = true
		sub.SubscribedAt = at
	}
	return nil
}

func (r *fakeSubscriberRepo) Unsubscribe(ctx context.Context, chatRef string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.byChat[chatRef]; ok {
		sub.Subscribed = false
		sub.UnsubscribedAt = at
	}
	return nil
}

func (r *fakeSubscriberRepo) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.byID)), nil
}

type fakeDefinitionRepo struct {
	mu   sync.Mutex
	defs []*models.CampaignDefinition
}

func newFakeDefinitionRepo() *fakeDefinitionRepo { return &fakeDefinitionRepo{} }

var _ repositories.DefinitionRepository = (*fakeDefinitionRepo)(nil)

func (r *fakeDefinitionRepo) Upsert(ctx context.Context, def *models.CampaignDefinition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, d := range r.defs {
		if d.Kind == def.Kind && d.InstanceKey == def.InstanceKey {
			r.defs[i] = def
			return nil
		}
	}
	r.defs = append(r.defs, def)
	return nil
}

func (r *fakeDefinitionRepo) FindByKindAndKey(ctx context.Context, kind models.CampaignKind, instanceKey string) (*models.CampaignDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.defs {
		if d.Kind == kind && d.InstanceKey == instanceKey {
			return d, nil
		}
	}
	return nil, nil
}

func (r *fakeDefinitionRepo) ListInstanceKeys(ctx context.Context, kind models.CampaignKind) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := []string{}
	for _, d := range r.defs {
		if d.Kind == kind {
			keys = append(keys, d.InstanceKey)
		}
	}
	return keys, nil
}

func (r *fakeDefinitionRepo) FindAll(ctx context.Context) ([]*models.CampaignDefinition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*models.CampaignDefinition{}, r.defs...), nil
}

type fakeDeliveryLogRepo struct {
	mu      sync.Mutex
	entries []*models.DeliveryLog
}

func newFakeDeliveryLogRepo() *fakeDeliveryLogRepo { return &fakeDeliveryLogRepo{} }

var _ repositories.DeliveryLogRepository = (*fakeDeliveryLogRepo)(nil)

func (r *fakeDeliveryLogRepo) Create(ctx context.Context, log *models.DeliveryLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, log)
	return nil
}

func (r *fakeDeliveryLogRepo) FindByCampaign(ctx context.Context, campaignID primitive.ObjectID, page, limit int) ([]*models.DeliveryLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.DeliveryLog{}
	for _, e := range r.entries {
		if e.CampaignID == campaignID {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---- fake delivery adapter ----

type sentMessage struct {
	chatRef string
	content delivery.Content
}

// fakeAdapter records every send and can be scripted per chatRef
type fakeAdapter struct {
	mu     sync.Mutex
	sends  []sentMessage
	script map[string][]delivery.Result
	seq    int
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{script: make(map[string][]delivery.Result)}
}

var _ delivery.Adapter = (*fakeAdapter)(nil)

func (a *fakeAdapter) Send(ctx context.Context, chatRef string, content delivery.Content) delivery.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sends = append(a.sends, sentMessage{chatRef: chatRef, content: content})
	if queue, ok := a.script[chatRef]; ok && len(queue) > 0 {
		res := queue[0]
		a.script[chatRef] = queue[1:]
		return res
	}
	a.seq++
	return delivery.Result{Status: delivery.StatusDelivered, MessageRef: "ref-" + primitive.NewObjectID().Hex()[:8]}
}

func (a *fakeAdapter) Edit(ctx context.Context, chatRef, messageRef string, content delivery.Content) (bool, error) {
	return true, nil
}

func (a *fakeAdapter) sentTo(chatRef string) []sentMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []sentMessage{}
	for _, m := range a.sends {
		if m.chatRef == chatRef {
			out = append(out, m)
		}
	}
	return out
}

func (a *fakeAdapter) sendCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sends)
}

// ---- test environment ----

type testEnv struct {
	campaigns    *fakeCampaignRepo
	participants *fakeParticipantRepo
	subscribers  *fakeSubscriberRepo
	definitions  *fakeDefinitionRepo
	logs         *fakeDeliveryLogRepo
	adapter      *fakeAdapter
	timeouts     *TimeoutSupervisor
	tickets      *TicketService
	parts        *ParticipationService
	cfg          *config.CampaignsConfig

	mu  sync.Mutex
	now time.Time
}

func (e *testEnv) setNow(t time.Time) {
	e.mu.Lock()
	e.now = t
	e.mu.Unlock()
}

func (e *testEnv) getNow() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now
}

func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.CampaignsConfig{
		Timezone: "Europe/Moscow",
		Raffle: config.KindWindows{
			ParticipationWindow: 2 * time.Hour,
			RemindOffset:        1 * time.Hour,
			AnswerWindow:        15 * time.Minute,
		},
		Quiz: config.KindWindows{
			ParticipationWindow: 6 * time.Hour,
			RemindOffset:        3 * time.Hour,
			AnswerWindow:        15 * time.Minute,
		},
		QuizMinCorrect: 1,
		Sequence: config.SequenceConfig{
			DefaultScope: "main",
			Floors:       map[string]int{"main": 100},
		},
	}
	clk, err := clock.NewResolver(cfg.Timezone)
	if err != nil {
		panic(err)
	}

	env := &testEnv{
		campaigns:    newFakeCampaignRepo(),
		participants: newFakeParticipantRepo(),
		subscribers:  newFakeSubscriberRepo(),
		definitions:  newFakeDefinitionRepo(),
		logs:         newFakeDeliveryLogRepo(),
		adapter:      newFakeAdapter(),
		timeouts:     NewTimeoutSupervisor(),
		cfg:          cfg,
		now:          time.Now(),
	}
	courier := delivery.NewCourier(env.adapter, 3, time.Millisecond, 10*time.Millisecond, 0, logger)
	env.tickets = NewTicketService(env.participants, cfg.Sequence, nil, logger)
	env.parts = NewParticipationService(
		env.campaigns, env.participants, env.subscribers, env.definitions,
		env.logs, courier, env.tickets, env.timeouts, clk, cfg, logger,
	)
	env.parts.now = env.getNow
	env.parts.pick = func(n int) int { return 0 }
	return env
}

func (e *testEnv) addSubscriber(chatRef string) *models.Subscriber {
	sub := &models.Subscriber{ChatRef: chatRef, Subscribed: true, SubscribedAt: e.getNow()}
	_ = e.subscribers.Create(context.Background(), sub)
	return sub
}

func (e *testEnv) addDefinition(kind models.CampaignKind, key, startLocal, title string, items ...models.ContentItem) *models.CampaignDefinition {
	def := &models.CampaignDefinition{
		Kind:        kind,
		InstanceKey: key,
		StartLocal:  startLocal,
		Title:       title,
		Content:     items,
	}
	_ = e.definitions.Upsert(context.Background(), def)
	return def
}

func (e *testEnv) record(subID primitive.ObjectID, kind models.CampaignKind, key string) *models.ParticipantRecord {
	inst, _ := e.campaigns.FindByKindAndKey(context.Background(), kind, key)
	if inst == nil {
		return nil
	}
	rec, _ := e.participants.FindBySubscriberAndCampaign(context.Background(), subID, inst.ID)
	return rec
}
