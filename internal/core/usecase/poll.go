package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/core/ports"
)

// PollObserver receives discovery and recovery counts, for instrumentation.
type PollObserver interface {
	DocumentsDiscovered(n int)
	SweepResets(n int)
	StaleNotice()
}

// PollUseCase discovers new client files, materializes placeholder documents,
// and emits document_uploaded events. It also runs the stuck/error recovery
// sweep and the stale-engagement scan.
type PollUseCase struct {
	repo           ports.EngagementRepository
	provider       ports.StorageProvider
	bus            ports.EventBus
	limiter        *rate.Limiter
	stuckThreshold time.Duration
	staleAfter     time.Duration
	log            *slog.Logger
	now            func() time.Time
	observer       PollObserver
}

// SetObserver attaches optional instrumentation. Not safe to call after the
// schedules start.
func (uc *PollUseCase) SetObserver(o PollObserver) {
	uc.observer = o
}

func NewPollUseCase(
	repo ports.EngagementRepository,
	provider ports.StorageProvider,
	bus ports.EventBus,
	limiter *rate.Limiter,
	stuckThreshold time.Duration,
	staleAfter time.Duration,
	log *slog.Logger,
) *PollUseCase {
	if stuckThreshold <= 0 {
		stuckThreshold = 5 * time.Minute
	}
	return &PollUseCase{
		repo:           repo,
		provider:       provider,
		bus:            bus,
		limiter:        limiter,
		stuckThreshold: stuckThreshold,
		staleAfter:     staleAfter,
		log:            log,
		now:            time.Now,
	}
}

// PollAll syncs every engagement that is actively collecting. Per-engagement
// failures are logged and do not stop the cycle.
func (uc *PollUseCase) PollAll(ctx context.Context) error {
	engagements, err := uc.repo.ListByStatus(ctx, domain.EngagementIntakeDone, domain.EngagementCollecting)
	if err != nil {
		return fmt.Errorf("list engagements for polling: %w", err)
	}
	for i := range engagements {
		if err := uc.PollEngagement(ctx, engagements[i].ID); err != nil {
			uc.log.Warn("poll_engagement_failed", "engagement_id", engagements[i].ID, "error", err)
		}
	}
	return nil
}

// PollEngagement runs one sync cycle for one engagement. New documents are
// persisted together with the page token before any event is emitted.
func (uc *PollUseCase) PollEngagement(ctx context.Context, engagementID string) error {
	e, err := uc.repo.GetByID(ctx, engagementID)
	if err != nil {
		return err
	}
	if e.Status != domain.EngagementIntakeDone && e.Status != domain.EngagementCollecting {
		return nil
	}

	page, err := uc.sync(ctx, e)
	if err != nil {
		return err
	}

	newFiles := make([]domain.StorageFile, 0, len(page.Files))
	for _, f := range page.Files {
		if f.Deleted || e.HasStorageItem(f.ID) {
			continue
		}
		newFiles = append(newFiles, f)
	}

	if len(newFiles) == 0 {
		// Idempotent no-op path: only the cursor moves.
		if tokenUnchanged(e.StoragePageToken, page.NextPageToken) {
			return nil
		}
		_, err := mutateEngagement(ctx, uc.repo, engagementID, func(e *domain.Engagement) error {
			e.StoragePageToken = &page.NextPageToken
			e.UpdatedAt = uc.now().UTC()
			return nil
		})
		return err
	}

	now := uc.now().UTC()
	created := make([]domain.Document, 0, len(newFiles))
	for _, f := range newFiles {
		created = append(created, domain.NewPlaceholderDocument(uuid.NewString(), f.Name, f.ID, f.MimeType, now))
	}

	var persisted []string
	if _, err := mutateEngagement(ctx, uc.repo, engagementID, func(e *domain.Engagement) error {
		persisted = persisted[:0]
		for _, doc := range created {
			// Re-check against the fresh record: a concurrent poll or webhook
			// may have ingested the same storage item already.
			if e.HasStorageItem(doc.StorageItemID) {
				continue
			}
			e.Documents = append(e.Documents, doc)
			persisted = append(persisted, doc.ID)
		}
		e.StoragePageToken = &page.NextPageToken
		e.AdvanceStatus(domain.EngagementCollecting, now)
		e.UpdatedAt = now
		return nil
	}); err != nil {
		return err
	}

	// Emission strictly follows the durable write.
	for _, id := range persisted {
		if err := uc.bus.Publish(ctx, domain.Event{
			Type:         domain.EventDocumentUploaded,
			EngagementID: engagementID,
			DocumentID:   id,
		}); err != nil {
			uc.log.Warn("publish_document_uploaded_failed",
				"engagement_id", engagementID, "document_id", id, "error", err)
		}
	}

	if uc.observer != nil {
		uc.observer.DocumentsDiscovered(len(persisted))
	}
	uc.log.Info("poll_discovered_documents", "engagement_id", engagementID, "count", len(persisted))
	return nil
}

// sync calls the provider, treating cursor invalidation as a restart from the
// null cursor rather than a failure.
func (uc *PollUseCase) sync(ctx context.Context, e *domain.Engagement) (domain.SyncPage, error) {
	if uc.limiter != nil {
		if err := uc.limiter.Wait(ctx); err != nil {
			return domain.SyncPage{}, err
		}
	}
	page, err := uc.provider.Sync(ctx, e.StorageFolderRef, e.StoragePageToken)
	if err == nil {
		return page, nil
	}
	if !domain.IsKind(err, domain.ErrCursorInvalid) {
		return domain.SyncPage{}, fmt.Errorf("storage sync: %w", err)
	}

	uc.log.Warn("sync_cursor_invalid", "engagement_id", e.ID)
	page, err = uc.provider.Sync(ctx, e.StorageFolderRef, nil)
	if err != nil {
		return domain.SyncPage{}, fmt.Errorf("storage sync from null cursor: %w", err)
	}
	return page, nil
}

// SweepAll resets stuck and failed documents across active engagements and
// re-emits one document_uploaded event per reset document.
func (uc *PollUseCase) SweepAll(ctx context.Context) error {
	engagements, err := uc.repo.ListByStatus(ctx,
		domain.EngagementIntakeDone, domain.EngagementCollecting, domain.EngagementReady)
	if err != nil {
		return fmt.Errorf("list engagements for sweep: %w", err)
	}
	for i := range engagements {
		if err := uc.sweepEngagement(ctx, engagements[i].ID); err != nil {
			uc.log.Warn("sweep_engagement_failed", "engagement_id", engagements[i].ID, "error", err)
		}
	}
	return nil
}

func (uc *PollUseCase) sweepEngagement(ctx context.Context, engagementID string) error {
	var resetIDs []string
	_, err := mutateEngagement(ctx, uc.repo, engagementID, func(e *domain.Engagement) error {
		resetIDs = resetIDs[:0]
		now := uc.now().UTC()
		for i := range e.Documents {
			if e.Documents[i].NeedsRecovery(now, uc.stuckThreshold) {
				e.Documents[i].ResetForReprocessing(now)
				resetIDs = append(resetIDs, e.Documents[i].ID)
			}
		}
		if len(resetIDs) == 0 {
			return errNoChange
		}
		e.UpdatedAt = now
		return nil
	})
	if err != nil {
		return err
	}
	if len(resetIDs) == 0 {
		return nil
	}

	for _, id := range resetIDs {
		if err := uc.bus.Publish(ctx, domain.Event{
			Type:         domain.EventDocumentUploaded,
			EngagementID: engagementID,
			DocumentID:   id,
		}); err != nil {
			uc.log.Warn("publish_recovery_event_failed",
				"engagement_id", engagementID, "document_id", id, "error", err)
		}
	}
	if uc.observer != nil {
		uc.observer.SweepResets(len(resetIDs))
	}
	uc.log.Info("recovery_sweep_reset", "engagement_id", engagementID, "count", len(resetIDs))
	return nil
}

// ScanStale emits stale_engagement events for collecting engagements with no
// recent activity.
func (uc *PollUseCase) ScanStale(ctx context.Context) error {
	if uc.staleAfter <= 0 {
		return nil
	}
	engagements, err := uc.repo.ListByStatus(ctx, domain.EngagementIntakeDone, domain.EngagementCollecting)
	if err != nil {
		return fmt.Errorf("list engagements for stale scan: %w", err)
	}

	cutoff := uc.now().UTC().Add(-uc.staleAfter)
	for i := range engagements {
		e := &engagements[i]
		if !e.LastActivityAt.Before(cutoff) {
			continue
		}
		if err := uc.bus.Publish(ctx, domain.Event{
			Type:         domain.EventStaleEngagement,
			EngagementID: e.ID,
		}); err != nil {
			uc.log.Warn("publish_stale_event_failed", "engagement_id", e.ID, "error", err)
			continue
		}
		if uc.observer != nil {
			uc.observer.StaleNotice()
		}
	}
	return nil
}

func tokenUnchanged(current *string, next string) bool {
	if current == nil {
		return next == ""
	}
	return *current == next
}
