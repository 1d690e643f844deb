package fetcher

import (
	"context"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// CandidateProducer yields zero or more normalized price records for one
// variant. Values arrive with locale separators already resolved and
// reference dates, when derivable, in calendar-date form.
type CandidateProducer interface {
	Produce(ctx context.Context) ([]market.Record, error)
}

// PageFetcher retrieves a raw page body.
type PageFetcher interface {
	Get(ctx context.Context, url string) ([]byte, error)
}
