package usecase

import (
	"context"
	"errors"

	"github.com/clearledger/taxintake/internal/core/domain"
	"github.com/clearledger/taxintake/internal/core/ports"
)

const casAttempts = 3

// errNoChange lets a mutation callback bail out without writing.
var errNoChange = errors.New("no change")

// mutateEngagement runs the read-whole/modify/write-whole discipline with a
// bounded compare-and-swap retry. The callback sees a freshly loaded record
// on every attempt.
func mutateEngagement(
	ctx context.Context,
	repo ports.EngagementRepository,
	id string,
	fn func(*domain.Engagement) error,
) (*domain.Engagement, error) {
	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		e, err := repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := fn(e); err != nil {
			if errors.Is(err, errNoChange) {
				return e, nil
			}
			return nil, err
		}
		err = repo.Update(ctx, e)
		if err == nil {
			return e, nil
		}
		if !domain.IsKind(err, domain.ErrVersionConflict) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}
