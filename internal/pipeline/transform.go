package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/venue-locator-service/internal/domain"
)

// ActivityTransformer implements Transformer by parsing an activity row and
// completing its venue through a place locator.
type ActivityTransformer struct {
	locator domain.PlaceLocator
	logger  *slog.Logger
}

// NewTransformer creates an ActivityTransformer. Pass a nil locator to
// disable enrichment.
func NewTransformer(locator domain.PlaceLocator, logger *slog.Logger) *ActivityTransformer {
	return &ActivityTransformer{
		locator: locator,
		logger:  logger,
	}
}

func (t *ActivityTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.ActivityVenue, error) {
	v, err := domain.ParseActivityVenue(raw)
	if err != nil {
		return domain.ActivityVenue{}, err
	}
	return domain.EnrichActivityVenue(ctx, v, t.locator, t.logger), nil
}
