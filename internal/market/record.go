package market

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product and variant identifiers as they appear in the persisted files.
const (
	ProductCoffee = "cafe"

	VariantArabica  = "arabica"
	VariantConillon = "conillon"

	CurrencyBRL = "BRL"

	// Unit and SackWeightKg describe the standard trade unit (a 60kg sack).
	Unit         = "saca"
	SackWeightKg = 60
)

// Variants lists the tracked coffee variants in display order.
var Variants = []string{VariantArabica, VariantConillon}

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Record is one observation of one variant's price on one trading day.
//
// ColetadoEm is kept as a fixed-width ISO-8601 UTC string so that
// lexicographic comparison matches chronological order.
type Record struct {
	Produto    string          `json:"produto"`
	Tipo       string          `json:"tipo"`
	Moeda      string          `json:"moeda"`
	Valor      decimal.Decimal `json:"valor"`
	ReferenteA string          `json:"referente_a,omitempty"`
	FonteURL   string          `json:"fonte_url"`
	ColetadoEm string          `json:"coletado_em"`
}

// Key identifies the observation a record belongs to. Two records with
// the same key describe the same trading day and only one survives a merge.
type Key struct {
	Produto string
	Tipo    string
	Date    string
}

// EffectiveDate returns the trading date the record belongs to, falling
// back to the collection date when the source text carried no date.
func (r Record) EffectiveDate() string {
	if r.ReferenteA != "" {
		return r.ReferenteA
	}
	if len(r.ColetadoEm) >= len("2006-01-02") {
		return r.ColetadoEm[:len("2006-01-02")]
	}
	return ""
}

// IdentityKey returns the deduplication key for the record.
func (r Record) IdentityKey() Key {
	return Key{Produto: r.Produto, Tipo: r.Tipo, Date: r.EffectiveDate()}
}

// Timestamp formats a collection time as stored in ColetadoEm.
func Timestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ParseBRNumber converts a Brazilian-formatted amount such as "2.277,03"
// (dot thousands separator, comma decimal separator) into a decimal.
func ParseBRNumber(s string) (decimal.Decimal, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return d, nil
}

// ParseBRDate converts "05/09/2025" to the ISO form "2025-09-05".
func ParseBRDate(s string) (string, error) {
	t, err := time.Parse("02/01/2006", strings.TrimSpace(s))
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.Format("2006-01-02"), nil
}

// FormatBRL renders a value as displayed on the site, e.g. "R$ 2.277,03".
func FormatBRL(d decimal.Decimal) string {
	fixed := d.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	intPart := fixed[:len(fixed)-3]
	fracPart := fixed[len(fixed)-2:]

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(digit)
	}

	sign := ""
	if neg {
		sign = "-"
	}
	return fmt.Sprintf("R$ %s%s,%s", sign, grouped.String(), fracPart)
}
