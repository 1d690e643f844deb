package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// Widget scrapes a quotation widget presenting a single table whose first
// row holds the latest trading date and price. Unlike the indicator
// producer, a page without the expected markup is an error.
type Widget struct {
	fetcher PageFetcher
	url     string
	tipo    string
	logger  zerolog.Logger
	now     func() time.Time
}

// NewWidget constructs a widget-table producer for one variant.
func NewWidget(fetcher PageFetcher, url, tipo string, logger zerolog.Logger) *Widget {
	return &Widget{
		fetcher: fetcher,
		url:     url,
		tipo:    tipo,
		logger:  logger.With().Str("component", "widget_producer").Str("tipo", tipo).Logger(),
		now:     time.Now,
	}
}

// Produce fetches the widget and returns the single latest record.
func (p *Widget) Produce(ctx context.Context) ([]market.Record, error) {
	body, err := p.fetcher.Get(ctx, p.url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse widget %s: %w", p.url, err)
	}

	tbody := doc.Find("tbody").First()
	if tbody.Length() == 0 {
		return nil, fmt.Errorf("widget %s: no table body found", p.url)
	}
	row := tbody.Find("tr").First()
	if row.Length() == 0 {
		return nil, fmt.Errorf("widget %s: no data row found", p.url)
	}

	var cols []string
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		cols = append(cols, strings.TrimSpace(cell.Text()))
	})
	if len(cols) < 2 {
		return nil, fmt.Errorf("widget %s: unexpected column count %d", p.url, len(cols))
	}

	valor, err := market.ParseBRNumber(cols[1])
	if err != nil {
		return nil, fmt.Errorf("widget %s: %w", p.url, err)
	}

	// An unparseable date column degrades to an undated record: its
	// effective date falls back to the collection day.
	refDate := ""
	if iso, err := market.ParseBRDate(cols[0]); err == nil {
		refDate = iso
	} else {
		p.logger.Warn().Str("raw", cols[0]).Msg("unparseable widget date")
	}

	return []market.Record{{
		Produto:    market.ProductCoffee,
		Tipo:       p.tipo,
		Moeda:      market.CurrencyBRL,
		Valor:      valor.Round(2),
		ReferenteA: refDate,
		FonteURL:   p.url,
		ColetadoEm: market.Timestamp(p.now()),
	}}, nil
}

var _ CandidateProducer = (*Widget)(nil)
