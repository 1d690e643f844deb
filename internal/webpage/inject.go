// Package webpage rewrites the price placeholders of the static homepage
// so the current values are served as plain text.
package webpage

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

const (
	arabicaSelector = "#preco-arabica"
	robustaSelector = "#preco-robusta"
)

// Injector updates the placeholder nodes of one HTML document.
type Injector struct {
	path   string
	logger zerolog.Logger
}

// NewInjector wires the target document path.
func NewInjector(path string, logger zerolog.Logger) *Injector {
	return &Injector{path: path, logger: logger.With().Str("component", "webpage").Logger()}
}

// Inject replaces the placeholder texts with currency-formatted values.
// A missing document or missing placeholder is a no-op, never an error;
// nil values leave the corresponding placeholder untouched.
func (i *Injector) Inject(arabica, robusta *decimal.Decimal) error {
	raw, err := os.ReadFile(i.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			i.logger.Debug().Str("path", i.path).Msg("no page to update")
			return nil
		}
		return fmt.Errorf("read page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(raw)))
	if err != nil {
		return fmt.Errorf("parse page: %w", err)
	}

	changed := false
	changed = setPlaceholder(doc, arabicaSelector, arabica) || changed
	changed = setPlaceholder(doc, robustaSelector, robusta) || changed
	if !changed {
		return nil
	}

	rendered, err := doc.Html()
	if err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	if err := os.WriteFile(i.path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write page: %w", err)
	}

	i.logger.Info().Str("path", i.path).Msg("page prices updated")
	return nil
}

func setPlaceholder(doc *goquery.Document, selector string, value *decimal.Decimal) bool {
	if value == nil {
		return false
	}
	sel := doc.Find(selector)
	if sel.Length() == 0 {
		return false
	}
	sel.SetText(market.FormatBRL(*value))
	return true
}
