package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/clearledger/taxintake/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memRepo is an in-memory EngagementRepository with real compare-and-swap
// semantics, so the mutation retry paths are exercised for real.
type memRepo struct {
	mu      sync.Mutex
	records map[string]*domain.Engagement

	// conflictNextUpdates fails that many Update calls with a version
	// conflict before letting writes through.
	conflictNextUpdates int
	updateCalls         int
}

func newMemRepo() *memRepo {
	return &memRepo{records: map[string]*domain.Engagement{}}
}

func copyEngagement(e *domain.Engagement) *domain.Engagement {
	raw, err := json.Marshal(e)
	if err != nil {
		panic(fmt.Sprintf("copy engagement: %v", err))
	}
	var out domain.Engagement
	if err := json.Unmarshal(raw, &out); err != nil {
		panic(fmt.Sprintf("copy engagement: %v", err))
	}
	out.Version = e.Version
	return &out
}

func (r *memRepo) Create(_ context.Context, e *domain.Engagement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.Version = 1
	r.records[e.ID] = copyEngagement(e)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*domain.Engagement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrEngagementNotFound, "memrepo.get", fmt.Errorf("engagement %s", id))
	}
	return copyEngagement(stored), nil
}

func (r *memRepo) Update(_ context.Context, e *domain.Engagement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++

	stored, ok := r.records[e.ID]
	if !ok {
		return domain.WrapError(domain.ErrEngagementNotFound, "memrepo.update", fmt.Errorf("engagement %s", e.ID))
	}
	if r.conflictNextUpdates > 0 {
		r.conflictNextUpdates--
		return domain.WrapError(domain.ErrVersionConflict, "memrepo.update", errors.New("simulated concurrent writer"))
	}
	if stored.Version != e.Version {
		return domain.WrapError(domain.ErrVersionConflict, "memrepo.update", fmt.Errorf("version %d != %d", e.Version, stored.Version))
	}
	e.Version++
	r.records[e.ID] = copyEngagement(e)
	return nil
}

func (r *memRepo) ListByStatus(_ context.Context, statuses ...domain.EngagementStatus) ([]domain.Engagement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Engagement
	for _, stored := range r.records {
		for _, s := range statuses {
			if stored.Status == s {
				out = append(out, *copyEngagement(stored))
				break
			}
		}
	}
	return out, nil
}

func (r *memRepo) mustGet(id string) *domain.Engagement {
	e, err := r.GetByID(context.Background(), id)
	if err != nil {
		panic(err)
	}
	return e
}

type recordingBus struct {
	mu        sync.Mutex
	published []domain.Event
	publishFn func(domain.Event) error
}

func (b *recordingBus) Publish(_ context.Context, ev domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.publishFn != nil {
		if err := b.publishFn(ev); err != nil {
			return err
		}
	}
	b.published = append(b.published, ev)
	return nil
}

func (b *recordingBus) Subscribe(context.Context, func(context.Context, domain.Event) error) error {
	return nil
}

func (b *recordingBus) eventsOfType(t domain.EventType) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for _, ev := range b.published {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fakeProvider struct {
	pages     []domain.SyncPage
	syncCalls int
	syncErrs  []error
	payloads  map[string]domain.FilePayload
	downloads []string
}

func (p *fakeProvider) Sync(_ context.Context, _ string, _ *string) (domain.SyncPage, error) {
	call := p.syncCalls
	p.syncCalls++
	if call < len(p.syncErrs) && p.syncErrs[call] != nil {
		return domain.SyncPage{}, p.syncErrs[call]
	}
	if len(p.pages) == 0 {
		return domain.SyncPage{}, nil
	}
	if call >= len(p.pages) {
		return p.pages[len(p.pages)-1], nil
	}
	return p.pages[call], nil
}

func (p *fakeProvider) Download(_ context.Context, fileID string) (domain.FilePayload, error) {
	p.downloads = append(p.downloads, fileID)
	payload, ok := p.payloads[fileID]
	if !ok {
		return domain.FilePayload{}, fmt.Errorf("no payload for %s", fileID)
	}
	return payload, nil
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, string, string, []byte) (string, error) {
	return f.text, f.err
}

type fakeClassifier struct {
	result domain.ClassificationResult
	err    error
	calls  int
	years  []int
}

func (f *fakeClassifier) Classify(_ context.Context, _, _ string, expectedTaxYear int) (domain.ClassificationResult, error) {
	f.calls++
	f.years = append(f.years, expectedTaxYear)
	if f.err != nil {
		return domain.ClassificationResult{}, f.err
	}
	return f.result, nil
}

type fakeGenerator struct {
	items []domain.ChecklistItem
	err   error
}

func (f *fakeGenerator) Generate(context.Context, *domain.Engagement) ([]domain.ChecklistItem, error) {
	return f.items, f.err
}

type recordingNotifier struct {
	checklistReady []string
	issues         []string
	ready          []string
	reminders      []string
}

func (n *recordingNotifier) NotifyChecklistReady(_ context.Context, e *domain.Engagement) error {
	n.checklistReady = append(n.checklistReady, e.ID)
	return nil
}

func (n *recordingNotifier) NotifyIssues(_ context.Context, e *domain.Engagement, _ *domain.Document) error {
	n.issues = append(n.issues, e.ID)
	return nil
}

func (n *recordingNotifier) NotifyReady(_ context.Context, e *domain.Engagement) error {
	n.ready = append(n.ready, e.ID)
	return nil
}

func (n *recordingNotifier) NotifyReminder(_ context.Context, e *domain.Engagement) error {
	n.reminders = append(n.reminders, e.ID)
	return nil
}

func seedEngagement(repo *memRepo, e *domain.Engagement) {
	if e.Checklist == nil {
		e.Checklist = []domain.ChecklistItem{}
	}
	if e.Documents == nil {
		e.Documents = []domain.Document{}
	}
	if e.Activity == nil {
		e.Activity = []domain.AuditEntry{}
	}
	if err := repo.Create(context.Background(), e); err != nil {
		panic(err)
	}
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
