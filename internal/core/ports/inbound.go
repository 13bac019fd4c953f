package ports

import (
	"context"

	"github.com/clearledger/taxintake/internal/core/domain"
)

// EventDispatcher routes one event through the orchestration core.
type EventDispatcher interface {
	Dispatch(ctx context.Context, ev domain.Event) error
}

// EngagementIntake opens a new collection job.
type EngagementIntake interface {
	Create(ctx context.Context, params domain.IntakeParams) (*domain.Engagement, error)
}

// EngagementReader is the read model for the review surface.
type EngagementReader interface {
	GetByID(ctx context.Context, id string) (*domain.Engagement, error)
}

// DocumentReviewer applies manual review decisions.
type DocumentReviewer interface {
	Approve(ctx context.Context, engagementID, documentID string, approved bool) (*domain.Engagement, error)
	Reclassify(ctx context.Context, engagementID, documentID, newType, reason string) (*domain.Engagement, error)
}

// PollCoordinator runs the scheduled sweeps.
type PollCoordinator interface {
	PollAll(ctx context.Context) error
	PollEngagement(ctx context.Context, engagementID string) error
	SweepAll(ctx context.Context) error
	ScanStale(ctx context.Context) error
}
