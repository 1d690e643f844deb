package history

import (
	"github.com/shopspring/decimal"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// Quote is the most recent known value for one variant.
type Quote struct {
	Valor decimal.Decimal
	Date  string
}

// Latest returns, per variant, the coffee record with the greatest effective
// date. Variants with no records are absent from the result.
func Latest(records []market.Record) map[string]Quote {
	latest := make(map[string]Quote)
	for _, r := range records {
		if r.Produto != market.ProductCoffee {
			continue
		}
		date := r.EffectiveDate()
		prev, ok := latest[r.Tipo]
		if !ok || date > prev.Date {
			latest[r.Tipo] = Quote{Valor: r.Valor, Date: date}
		}
	}
	return latest
}
