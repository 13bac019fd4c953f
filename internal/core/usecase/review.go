package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/core/ports"
)

// ReviewUseCase applies manual review decisions and re-runs completion
// through the normal event path.
type ReviewUseCase struct {
	repo ports.EngagementRepository
	bus  ports.EventBus
	log  *slog.Logger
	now  func() time.Time
}

func NewReviewUseCase(repo ports.EngagementRepository, bus ports.EventBus, log *slog.Logger) *ReviewUseCase {
	return &ReviewUseCase{repo: repo, bus: bus, log: log, now: time.Now}
}

// Approve sets the tri-state approved flag on a document and queues a
// completion check.
func (uc *ReviewUseCase) Approve(ctx context.Context, engagementID, documentID string, approved bool) (*domain.Engagement, error) {
	e, err := mutateEngagement(ctx, uc.repo, engagementID, func(e *domain.Engagement) error {
		doc := e.DocumentByID(documentID)
		if doc == nil {
			return domain.WrapError(domain.ErrDocumentNotFound, "approve document", fmt.Errorf("document %s", documentID))
		}
		doc.Approved = &approved
		doc.UpdatedAt = uc.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publishCheck(ctx, engagementID)
	uc.log.Info("document_review", "engagement_id", engagementID, "document_id", documentID, "approved", approved)
	return e, nil
}

// Reclassify overrides the classified type. The original type and reason are
// kept on the document; the approved flag is left untouched.
func (uc *ReviewUseCase) Reclassify(ctx context.Context, engagementID, documentID, newType, reason string) (*domain.Engagement, error) {
	if strings.TrimSpace(newType) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "reclassify document", errors.New("document type is required"))
	}

	e, err := mutateEngagement(ctx, uc.repo, engagementID, func(e *domain.Engagement) error {
		doc := e.DocumentByID(documentID)
		if doc == nil {
			return domain.WrapError(domain.ErrDocumentNotFound, "reclassify document", fmt.Errorf("document %s", documentID))
		}
		if !doc.IsClassified() {
			return domain.WrapError(domain.ErrInvalidInput, "reclassify document", errors.New("document is not classified yet"))
		}
		if doc.Override == nil {
			doc.Override = &domain.Override{OriginalType: doc.DocumentType, Reason: reason}
		} else {
			doc.Override.Reason = reason
		}
		doc.DocumentType = newType
		doc.UpdatedAt = uc.now().UTC()
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.publishCheck(ctx, engagementID)
	uc.log.Info("document_reclassified", "engagement_id", engagementID, "document_id", documentID, "new_type", newType)
	return e, nil
}

func (uc *ReviewUseCase) publishCheck(ctx context.Context, engagementID string) {
	if err := uc.bus.Publish(ctx, domain.Event{
		Type:         domain.EventCheckCompletion,
		EngagementID: engagementID,
	}); err != nil {
		uc.log.Warn("publish_check_completion_failed", "engagement_id", engagementID, "error", err)
	}
}
