package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/core/ports"
)

// Dispatcher is the orchestration spine. It routes typed events to their
// handlers and chains follow-up events synchronously, so one dispatch chain
// executes strictly sequentially.
type Dispatcher struct {
	repo      ports.EngagementRepository
	assess    *AssessDocumentUseCase
	reconcile *ReconcileUseCase
	checklist ports.ChecklistGenerator
	notifier  ports.Notifier
	log       *slog.Logger
	now       func() time.Time
}

func NewDispatcher(
	repo ports.EngagementRepository,
	assess *AssessDocumentUseCase,
	reconcile *ReconcileUseCase,
	checklist ports.ChecklistGenerator,
	notifier ports.Notifier,
	log *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		assess:    assess,
		reconcile: reconcile,
		checklist: checklist,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// Dispatch routes one event. Unknown event types and missing records are
// logged and ignored; business-level failures never cross this boundary as
// errors.
func (d *Dispatcher) Dispatch(ctx context.Context, ev domain.Event) error {
	var (
		agent   string
		outcome string
		err     error
	)

	switch ev.Type {
	case domain.EventEngagementCreated:
		agent = "intake"
		outcome, err = d.handleEngagementCreated(ctx, ev)
	case domain.EventIntakeComplete:
		agent = "outreach"
		outcome, err = d.handleIntakeComplete(ctx, ev)
	case domain.EventDocumentUploaded:
		agent = "assessment"
		outcome, err = d.handleDocumentUploaded(ctx, ev)
	case domain.EventDocumentAssessed:
		agent = "reconciliation"
		outcome, err = d.handleDocumentAssessed(ctx, ev)
	case domain.EventCheckCompletion:
		agent = "reconciliation"
		outcome, err = d.handleCheckCompletion(ctx, ev)
	case domain.EventStaleEngagement:
		agent = "outreach"
		outcome, err = d.handleStaleEngagement(ctx, ev)
	default:
		d.log.Warn("unknown_event_type", "type", string(ev.Type), "engagement_id", ev.EngagementID)
		return nil
	}

	if err != nil {
		if domain.IsKind(err, domain.ErrEngagementNotFound) || domain.IsKind(err, domain.ErrDocumentNotFound) {
			d.log.Warn("dispatch_target_missing",
				"type", string(ev.Type),
				"engagement_id", ev.EngagementID,
				"document_id", ev.DocumentID,
				"error", err,
			)
			return nil
		}
		return fmt.Errorf("dispatch %s: %w", ev.Type, err)
	}

	d.recordActivity(ctx, ev, agent, outcome)
	return nil
}

func (d *Dispatcher) handleEngagementCreated(ctx context.Context, ev domain.Event) (string, error) {
	e, err := d.repo.GetByID(ctx, ev.EngagementID)
	if err != nil {
		return "", err
	}

	items, err := d.checklist.Generate(ctx, e)
	if err != nil {
		// Collaborator failure: the engagement stays PENDING until the next
		// manual or scheduled retry.
		d.log.Warn("checklist_generation_failed", "engagement_id", ev.EngagementID, "error", err)
		return "checklist_generation_failed", nil
	}

	if _, err := mutateEngagement(ctx, d.repo, ev.EngagementID, func(e *domain.Engagement) error {
		e.Checklist = items
		e.AdvanceStatus(domain.EngagementIntakeDone, d.now().UTC())
		return nil
	}); err != nil {
		return "", err
	}

	if err := d.Dispatch(ctx, domain.Event{
		Type:         domain.EventIntakeComplete,
		EngagementID: ev.EngagementID,
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("checklist generated with %d items", len(items)), nil
}

func (d *Dispatcher) handleIntakeComplete(ctx context.Context, ev domain.Event) (string, error) {
	e, err := d.repo.GetByID(ctx, ev.EngagementID)
	if err != nil {
		return "", err
	}
	if err := d.notifier.NotifyChecklistReady(ctx, e); err != nil {
		d.log.Warn("notify_checklist_failed", "engagement_id", ev.EngagementID, "error", err)
		return "checklist notification failed", nil
	}
	return "checklist sent to client", nil
}

// handleDocumentUploaded runs the assessment and always synthesizes a
// document_assessed event with the outcome, whatever path assessment took.
func (d *Dispatcher) handleDocumentUploaded(ctx context.Context, ev domain.Event) (string, error) {
	outcome, err := d.assess.Assess(ctx, ev.EngagementID, ev.DocumentID)
	if err != nil {
		return "", err
	}

	if err := d.Dispatch(ctx, domain.Event{
		Type:         domain.EventDocumentAssessed,
		EngagementID: ev.EngagementID,
		DocumentID:   outcome.DocumentID,
		DocumentType: outcome.DocumentType,
		HasIssues:    outcome.HasIssues,
	}); err != nil {
		return "", err
	}
	return fmt.Sprintf("assessed as %s", outcome.DocumentType), nil
}

// handleDocumentAssessed routes by issue presence: issues go to outreach and
// skip reconciliation; clean documents trigger reconciliation and, when the
// engagement is ready, the completion notification.
func (d *Dispatcher) handleDocumentAssessed(ctx context.Context, ev domain.Event) (string, error) {
	if ev.HasIssues {
		e, err := d.repo.GetByID(ctx, ev.EngagementID)
		if err != nil {
			return "", err
		}
		doc := e.DocumentByID(ev.DocumentID)
		if doc == nil {
			return "", domain.WrapError(domain.ErrDocumentNotFound, "notify issues", fmt.Errorf("document %s", ev.DocumentID))
		}
		if err := d.notifier.NotifyIssues(ctx, e, doc); err != nil {
			d.log.Warn("notify_issues_failed", "engagement_id", ev.EngagementID, "error", err)
		}
		return "issues routed to outreach", nil
	}

	return d.reconcileAndNotify(ctx, ev.EngagementID)
}

func (d *Dispatcher) handleCheckCompletion(ctx context.Context, ev domain.Event) (string, error) {
	return d.reconcileAndNotify(ctx, ev.EngagementID)
}

func (d *Dispatcher) reconcileAndNotify(ctx context.Context, engagementID string) (string, error) {
	e, ready, err := d.reconcile.Run(ctx, engagementID)
	if err != nil {
		return "", err
	}
	if !ready {
		return "reconciled, not ready", nil
	}
	if err := d.notifier.NotifyReady(ctx, e); err != nil {
		d.log.Warn("notify_ready_failed", "engagement_id", engagementID, "error", err)
	}
	return "reconciled, engagement ready", nil
}

func (d *Dispatcher) handleStaleEngagement(ctx context.Context, ev domain.Event) (string, error) {
	e, err := mutateEngagement(ctx, d.repo, ev.EngagementID, func(e *domain.Engagement) error {
		e.ReminderCount++
		return nil
	})
	if err != nil {
		return "", err
	}
	if err := d.notifier.NotifyReminder(ctx, e); err != nil {
		d.log.Warn("notify_reminder_failed", "engagement_id", ev.EngagementID, "error", err)
		return "reminder send failed", nil
	}
	return fmt.Sprintf("reminder %d sent", e.ReminderCount), nil
}

// recordActivity appends the audit entry for one dispatch. Best effort: a
// conflicting concurrent writer loses the append, never the dispatch.
func (d *Dispatcher) recordActivity(ctx context.Context, ev domain.Event, agent, outcome string) {
	if _, err := mutateEngagement(ctx, d.repo, ev.EngagementID, func(e *domain.Engagement) error {
		e.RecordActivity(agent, string(ev.Type), outcome, d.now().UTC())
		return nil
	}); err != nil {
		d.log.Warn("audit_append_failed", "engagement_id", ev.EngagementID, "trigger", string(ev.Type), "error", err)
	}
}
