package fetcher

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

var (
	currencyRE = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*,\d{2}`)
	brDateRE   = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
)

// closingValueWindow bounds how far below a closing-date line the
// corresponding value is searched for.
const closingValueWindow = 10

// Indicator scrapes an indicator-history page listing one closing block per
// trading day ("Fechamento: dd/mm/yyyy" followed by the quoted value).
type Indicator struct {
	fetcher PageFetcher
	url     string
	tipo    string
	logger  zerolog.Logger
	now     func() time.Time

	// LastHTML holds the most recently fetched page so a caller can hand
	// it to a fallback extractor when direct parsing comes up short.
	LastHTML []byte
}

// NewIndicator constructs an indicator-page producer for one variant.
func NewIndicator(fetcher PageFetcher, url, tipo string, logger zerolog.Logger) *Indicator {
	return &Indicator{
		fetcher: fetcher,
		url:     url,
		tipo:    tipo,
		logger:  logger.With().Str("component", "indicator_producer").Str("tipo", tipo).Logger(),
		now:     time.Now,
	}
}

// Produce fetches the page and extracts one record per parseable closing
// block. A page with no recognisable blocks yields zero records, not an
// error; only the fetch itself can fail.
func (p *Indicator) Produce(ctx context.Context) ([]market.Record, error) {
	body, err := p.fetcher.Get(ctx, p.url)
	if err != nil {
		return nil, err
	}
	p.LastHTML = body

	records := p.parse(body)
	p.logger.Info().Int("records", len(records)).Msg("indicator page parsed")
	return records, nil
}

func (p *Indicator) parse(body []byte) []market.Record {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		p.logger.Warn().Err(err).Msg("unparseable page")
		return nil
	}

	lines := pageLines(doc)
	collected := market.Timestamp(p.now())

	var records []market.Record
	for i, line := range lines {
		if !strings.HasPrefix(line, "Fechamento:") {
			continue
		}

		refDate := ""
		if m := brDateRE.FindString(line); m != "" {
			if iso, err := market.ParseBRDate(m); err == nil {
				refDate = iso
			}
		}

		valor, ok := firstAmountBelow(lines, i)
		if !ok {
			continue
		}

		records = append(records, market.Record{
			Produto:    market.ProductCoffee,
			Tipo:       p.tipo,
			Moeda:      market.CurrencyBRL,
			Valor:      valor.Round(2),
			ReferenteA: refDate,
			FonteURL:   p.url,
			ColetadoEm: collected,
		})
	}
	return records
}

func firstAmountBelow(lines []string, start int) (decimal.Decimal, bool) {
	for j := start + 1; j < len(lines) && j <= start+closingValueWindow; j++ {
		m := currencyRE.FindString(lines[j])
		if m == "" {
			continue
		}
		d, err := market.ParseBRNumber(m)
		if err != nil {
			continue
		}
		return d, true
	}
	return decimal.Decimal{}, false
}

// pageLines flattens the document into trimmed text lines, one per text
// node, skipping script and style contents.
func pageLines(doc *goquery.Document) []string {
	var lines []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
			return
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, node := range doc.Nodes {
		walk(node)
	}
	return lines
}

var _ CandidateProducer = (*Indicator)(nil)
