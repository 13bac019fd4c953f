package checklist

import (
	"context"
	"log/slog"

	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/core/ports"
)

// FallbackGenerator tries the primary generator and falls back to the
// template library when it fails, so intake never stalls on a model outage.
type FallbackGenerator struct {
	primary  ports.ChecklistGenerator
	fallback ports.ChecklistGenerator
	log      *slog.Logger
}

func NewFallbackGenerator(primary, fallback ports.ChecklistGenerator, log *slog.Logger) *FallbackGenerator {
	return &FallbackGenerator{primary: primary, fallback: fallback, log: log}
}

func (g *FallbackGenerator) Generate(ctx context.Context, e *domain.Engagement) ([]domain.ChecklistItem, error) {
	if g.primary != nil {
		items, err := g.primary.Generate(ctx, e)
		if err == nil {
			return items, nil
		}
		g.log.Warn("primary_checklist_generator_failed", "engagement_id", e.ID, "error", err)
	}
	return g.fallback.Generate(ctx, e)
}
