// Package summary builds the snapshot document the static site renders,
// merging freshly reconciled quotes over the previously published values.
package summary

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/history"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// ProductQuote carries one product's published price and display metadata.
type ProductQuote struct {
	Preco      *decimal.Decimal `json:"preco"`
	ReferenteA string           `json:"referente_a,omitempty"`
	Unidade    string           `json:"unidade"`
	PesoKg     int              `json:"peso_kg"`
	Moeda      string           `json:"moeda"`
}

// UnmarshalJSON accepts both the canonical object form and the legacy form
// where the variant was published as a bare number.
func (q *ProductQuote) UnmarshalJSON(data []byte) error {
	var value decimal.Decimal
	if err := json.Unmarshal(data, &value); err == nil {
		*q = ProductQuote{
			Preco:   &value,
			Unidade: market.Unit,
			PesoKg:  market.SackWeightKg,
			Moeda:   market.CurrencyBRL,
		}
		return nil
	}

	type alias ProductQuote
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*q = ProductQuote(decoded)
	return nil
}

// Coffee nests the per-variant quotes under the document's cafe key.
// Conillon is published under its display name, robusta.
type Coffee struct {
	Date    string        `json:"date,omitempty"`
	Arabica *ProductQuote `json:"arabica,omitempty"`
	Robusta *ProductQuote `json:"robusta,omitempty"`
}

// Document is the published summary. Top-level keys written by other
// producers (cacau and friends) are preserved verbatim in Extra.
type Document struct {
	UltimaAtualizacao string
	DataFormatada     string
	HoraFormatada     string
	PregaoAberto      bool
	Fonte             string
	Cafe              Coffee
	Extra             map[string]json.RawMessage
}

var knownKeys = []string{
	"ultima_atualizacao",
	"data_formatada",
	"hora_formatada",
	"pregao_aberto",
	"fonte",
	"cafe",
}

// MarshalJSON renders the known fields alongside any preserved foreign keys.
func (d Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Extra)+len(knownKeys))
	for k, v := range d.Extra {
		out[k] = v
	}
	out["ultima_atualizacao"] = d.UltimaAtualizacao
	out["data_formatada"] = d.DataFormatada
	out["hora_formatada"] = d.HoraFormatada
	out["pregao_aberto"] = d.PregaoAberto
	out["fonte"] = d.Fonte
	out["cafe"] = d.Cafe
	return json.Marshal(out)
}

// UnmarshalJSON splits a previously published document into the known
// fields and the foreign keys to carry forward.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	decode := func(key string, target any) error {
		v, ok := raw[key]
		if !ok {
			return nil
		}
		delete(raw, key)
		return json.Unmarshal(v, target)
	}

	var decoded Document
	if err := decode("ultima_atualizacao", &decoded.UltimaAtualizacao); err != nil {
		return err
	}
	if err := decode("data_formatada", &decoded.DataFormatada); err != nil {
		return err
	}
	if err := decode("hora_formatada", &decoded.HoraFormatada); err != nil {
		return err
	}
	if err := decode("pregao_aberto", &decoded.PregaoAberto); err != nil {
		return err
	}
	if err := decode("fonte", &decoded.Fonte); err != nil {
		return err
	}
	if err := decode("cafe", &decoded.Cafe); err != nil {
		return err
	}
	if len(raw) > 0 {
		decoded.Extra = raw
	}

	*d = decoded
	return nil
}

// MarketHours defines the local trading window used for the display flag.
type MarketHours struct {
	OpenHour  int
	CloseHour int
}

// IsOpen reports whether the market is presently open: a weekday with the
// local hour inside [OpenHour, CloseHour). Presentation only.
func (h MarketHours) IsOpen(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return t.Hour() >= h.OpenHour && t.Hour() < h.CloseHour
}

// Build merges the latest reconciled quotes over the previously published
// document. Variants with no fresh data keep their last known good value,
// and a fresh quote never replaces a newer-dated published one, so variant
// dates are monotonically non-decreasing across runs.
func Build(prev Document, latest map[string]history.Quote, now time.Time, fonte string, hours MarketHours) Document {
	doc := prev
	doc.UltimaAtualizacao = now.Format(time.RFC3339)
	doc.DataFormatada = now.Format("02/01/2006")
	doc.HoraFormatada = now.Format("15:04:05")
	doc.PregaoAberto = hours.IsOpen(now)
	doc.Fonte = fonte

	if q, ok := latest[market.VariantArabica]; ok {
		doc.Cafe.Arabica = applyQuote(doc.Cafe.Arabica, q)
	}
	if q, ok := latest[market.VariantConillon]; ok {
		doc.Cafe.Robusta = applyQuote(doc.Cafe.Robusta, q)
	}

	// The top-level date is a display convenience: the most recent of the
	// variant dates, never moved backwards.
	date := doc.Cafe.Date
	for _, q := range []*ProductQuote{doc.Cafe.Arabica, doc.Cafe.Robusta} {
		if q != nil && q.ReferenteA > date {
			date = q.ReferenteA
		}
	}
	doc.Cafe.Date = date

	return doc
}

func applyQuote(prev *ProductQuote, fresh history.Quote) *ProductQuote {
	if prev != nil && prev.ReferenteA > fresh.Date {
		return prev
	}
	value := fresh.Valor
	return &ProductQuote{
		Preco:      &value,
		ReferenteA: fresh.Date,
		Unidade:    market.Unit,
		PesoKg:     market.SackWeightKg,
		Moeda:      market.CurrencyBRL,
	}
}
