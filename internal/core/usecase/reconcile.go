package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/core/ports"
)

// Reconcile matches classified documents to checklist items and computes the
// weighted completion snapshot. Pure: identical inputs produce identical
// output, in checklist/document order.
func Reconcile(checklist []domain.ChecklistItem, documents []domain.Document, now time.Time) domain.Reconciliation {
	rec := domain.Reconciliation{
		ItemStatuses: make([]domain.ItemReconciliation, 0, len(checklist)),
		Issues:       []string{},
		RanAt:        now,
	}

	var totalWeight, contribution float64
	highIncomplete := []string{}

	for _, item := range checklist {
		matches := matchDocuments(item, documents)
		status := deriveItemStatus(matches)

		ids := make([]string, 0, len(matches))
		for _, doc := range matches {
			ids = append(ids, doc.ID)
		}
		rec.ItemStatuses = append(rec.ItemStatuses, domain.ItemReconciliation{
			ItemID:      item.ID,
			Status:      status,
			DocumentIDs: ids,
		})

		weight := item.Priority.Weight()
		totalWeight += weight
		switch status {
		case domain.ItemComplete:
			contribution += weight
		case domain.ItemReceived:
			contribution += weight / 2
		}

		if item.Priority == domain.PriorityHigh && status != domain.ItemComplete {
			highIncomplete = append(highIncomplete, item.Title)
		}
	}

	if totalWeight > 0 {
		pct := int(math.Round(100 * contribution / totalWeight))
		rec.CompletionPercentage = &pct
	}

	unresolved := 0
	for i := range documents {
		if documents[i].HasUnresolvedIssues() {
			unresolved++
			rec.Issues = append(rec.Issues, fmt.Sprintf(
				"%s has %d unresolved issue(s)", documents[i].FileName, len(documents[i].Issues)))
		}
	}

	// An empty checklist can never be ready; readiness means the checklist
	// was meaningfully satisfied, not vacuously so.
	fullCompletion := rec.CompletionPercentage != nil && *rec.CompletionPercentage == 100
	highSatisfied := len(checklist) > 0 && len(highIncomplete) == 0 && unresolved == 0
	rec.Ready = fullCompletion || highSatisfied

	if !rec.Ready {
		for _, title := range highIncomplete {
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("high-priority item %q is not complete", title))
		}
		if unresolved > 0 {
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("%d document(s) have unresolved issues", unresolved))
		}
		if rec.CompletionPercentage != nil {
			rec.Reasons = append(rec.Reasons, fmt.Sprintf("completion at %d%%", *rec.CompletionPercentage))
		}
	}

	return rec
}

// matchDocuments returns every classified document whose type exactly equals
// the item's expected type, in document order. An item without an expected
// type never matches.
func matchDocuments(item domain.ChecklistItem, documents []domain.Document) []*domain.Document {
	if item.ExpectedDocumentType == "" {
		return nil
	}
	var matches []*domain.Document
	for i := range documents {
		doc := &documents[i]
		if doc.IsClassified() && doc.DocumentType == item.ExpectedDocumentType {
			matches = append(matches, doc)
		}
	}
	return matches
}

func deriveItemStatus(matches []*domain.Document) domain.ItemStatus {
	if len(matches) == 0 {
		return domain.ItemPending
	}
	for _, doc := range matches {
		if len(doc.Issues) == 0 || doc.IsApproved() {
			return domain.ItemComplete
		}
	}
	return domain.ItemReceived
}

// ReconcileUseCase recomputes the snapshot on the freshest record, persists
// it, and advances the engagement to READY when the predicate holds.
type ReconcileUseCase struct {
	repo ports.EngagementRepository
	log  *slog.Logger
	now  func() time.Time
}

func NewReconcileUseCase(repo ports.EngagementRepository, log *slog.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{repo: repo, log: log, now: time.Now}
}

// Run returns the updated engagement and whether it is ready.
func (uc *ReconcileUseCase) Run(ctx context.Context, engagementID string) (*domain.Engagement, bool, error) {
	var ready bool
	e, err := mutateEngagement(ctx, uc.repo, engagementID, func(e *domain.Engagement) error {
		rec := Reconcile(e.Checklist, e.Documents, uc.now().UTC())
		e.ApplyReconciliation(rec)
		ready = rec.Ready
		if ready {
			e.AdvanceStatus(domain.EngagementReady, rec.RanAt)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("reconcile engagement %s: %w", engagementID, err)
	}

	pct := -1
	if e.Reconciliation != nil && e.Reconciliation.CompletionPercentage != nil {
		pct = *e.Reconciliation.CompletionPercentage
	}
	uc.log.Info("reconciliation_complete",
		"engagement_id", engagementID,
		"completion_pct", pct,
		"ready", ready,
	)
	return e, ready, nil
}
