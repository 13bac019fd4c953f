package ports

import (
	"context"

	"github.com/clearledger/taxintake/internal/core/domain"
)

// EngagementRepository persists the engagement aggregate as one unit.
// Update is compare-and-swap on Engagement.Version and returns
// domain.ErrVersionConflict when the record moved underneath the caller.
type EngagementRepository interface {
	Create(ctx context.Context, e *domain.Engagement) error
	GetByID(ctx context.Context, id string) (*domain.Engagement, error)
	Update(ctx context.Context, e *domain.Engagement) error
	ListByStatus(ctx context.Context, statuses ...domain.EngagementStatus) ([]domain.Engagement, error)
}

// StorageProvider lists and fetches client files. Sync must support resumable
// cursors; a cursor-invalidation failure surfaces as domain.ErrCursorInvalid
// and callers restart from a nil token. Download rejects oversized files with
// domain.ErrFileTooLarge.
type StorageProvider interface {
	Sync(ctx context.Context, folderRef string, pageToken *string) (domain.SyncPage, error)
	Download(ctx context.Context, fileID string) (domain.FilePayload, error)
}

// DocumentClassifier classifies extracted text into a document type plus
// encoded issue strings.
type DocumentClassifier interface {
	Classify(ctx context.Context, text, fileName string, expectedTaxYear int) (domain.ClassificationResult, error)
}

// TextExtractor extracts plain text from raw file bytes.
type TextExtractor interface {
	Extract(ctx context.Context, fileName, mimeType string, data []byte) (string, error)
}

// ChecklistGenerator produces the expected-deliverables checklist for a new
// engagement.
type ChecklistGenerator interface {
	Generate(ctx context.Context, e *domain.Engagement) ([]domain.ChecklistItem, error)
}

// Notifier fires human-facing sends. Failures are logged by callers, never
// retried by the core.
type Notifier interface {
	NotifyChecklistReady(ctx context.Context, e *domain.Engagement) error
	NotifyIssues(ctx context.Context, e *domain.Engagement, doc *domain.Document) error
	NotifyReady(ctx context.Context, e *domain.Engagement) error
	NotifyReminder(ctx context.Context, e *domain.Engagement) error
}

// EventBus carries dispatcher events between processes.
type EventBus interface {
	Publish(ctx context.Context, ev domain.Event) error
	Subscribe(ctx context.Context, handler func(context.Context, domain.Event) error) error
}
