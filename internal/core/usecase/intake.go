package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/core/ports"
)

// IntakeUseCase opens engagements and kicks off the intake chain.
type IntakeUseCase struct {
	repo ports.EngagementRepository
	bus  ports.EventBus
	log  *slog.Logger
	now  func() time.Time
}

func NewIntakeUseCase(repo ports.EngagementRepository, bus ports.EventBus, log *slog.Logger) *IntakeUseCase {
	return &IntakeUseCase{repo: repo, bus: bus, log: log, now: time.Now}
}

func (uc *IntakeUseCase) Create(ctx context.Context, params domain.IntakeParams) (*domain.Engagement, error) {
	if strings.TrimSpace(params.ClientName) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create engagement", errors.New("client name is required"))
	}
	if params.TaxYear < 2000 || params.TaxYear > 2100 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create engagement", fmt.Errorf("implausible tax year %d", params.TaxYear))
	}

	now := uc.now().UTC()
	e := &domain.Engagement{
		ID:               uuid.NewString(),
		ClientName:       params.ClientName,
		ClientEmail:      params.ClientEmail,
		Status:           domain.EngagementPending,
		TaxYear:          params.TaxYear,
		FilingProfile:    params.FilingProfile,
		Checklist:        []domain.ChecklistItem{},
		Documents:        []domain.Document{},
		Activity:         []domain.AuditEntry{},
		StorageFolderRef: params.StorageFolderRef,
		LastActivityAt:   now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create engagement: %w", err)
	}

	if err := uc.bus.Publish(ctx, domain.Event{
		Type:         domain.EventEngagementCreated,
		EngagementID: e.ID,
	}); err != nil {
		return nil, fmt.Errorf("publish engagement_created: %w", err)
	}

	uc.log.Info("engagement_created", "engagement_id", e.ID, "tax_year", e.TaxYear)
	return e, nil
}
