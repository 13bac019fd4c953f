package usecase

import (
	"context"
	"testing"

	"github.com/clearledger/taxintake/internal/core/domain"
)

func TestIntakeCreatePersistsThenPublishes(t *testing.T) {
	repo := newMemRepo()
	bus := &recordingBus{}
	bus.publishFn = func(ev domain.Event) error {
		if _, err := repo.GetByID(context.Background(), ev.EngagementID); err != nil {
			t.Fatalf("engagement must be durable before engagement_created: %v", err)
		}
		return nil
	}

	uc := NewIntakeUseCase(repo, bus, testLogger())
	e, err := uc.Create(context.Background(), domain.IntakeParams{
		ClientName:       "Dana Wu",
		ClientEmail:      "dana@example.com",
		TaxYear:          2025,
		FilingProfile:    "self_employed",
		StorageFolderRef: "clients/dana",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if e.Status != domain.EngagementPending {
		t.Fatalf("status = %s", e.Status)
	}
	events := bus.eventsOfType(domain.EventEngagementCreated)
	if len(events) != 1 || events[0].EngagementID != e.ID {
		t.Fatalf("events = %+v", events)
	}
}

func TestIntakeCreateValidatesInput(t *testing.T) {
	uc := NewIntakeUseCase(newMemRepo(), &recordingBus{}, testLogger())

	if _, err := uc.Create(context.Background(), domain.IntakeParams{ClientName: "  ", TaxYear: 2025}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input for blank name, got %v", err)
	}
	if _, err := uc.Create(context.Background(), domain.IntakeParams{ClientName: "Dana", TaxYear: 1995}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid-input for implausible year, got %v", err)
	}
}
