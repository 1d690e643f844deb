// Package history maintains the bounded rolling history of price records
// and derives the latest quote per variant from it.
package history

import (
	"sort"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// RetentionDates bounds the history to the most recent distinct trading days.
const RetentionDates = 10

// Merge reconciles freshly scraped candidates into an existing history.
//
// Records sharing an identity key (produto, tipo, effective date) describe
// the same observation; the one collected most recently wins. The result is
// trimmed so that at most RetentionDates distinct effective dates remain,
// dropping older dates wholesale, and is returned in a deterministic order
// suitable for human-diffable persistence.
//
// Merging an empty candidate set into an already reduced history returns it
// unchanged.
func Merge(existing, candidates []market.Record) []market.Record {
	byKey := make(map[market.Key]market.Record, len(existing)+len(candidates))
	for _, r := range existing {
		keep(byKey, r)
	}
	for _, r := range candidates {
		keep(byKey, r)
	}

	retained := trimToRecentDates(byKey)

	sort.Slice(retained, func(i, j int) bool {
		a, b := retained[i], retained[j]
		if a.EffectiveDate() != b.EffectiveDate() {
			return a.EffectiveDate() < b.EffectiveDate()
		}
		if a.Tipo != b.Tipo {
			return a.Tipo < b.Tipo
		}
		return a.ColetadoEm < b.ColetadoEm
	})
	return retained
}

func keep(byKey map[market.Key]market.Record, r market.Record) {
	key := r.IdentityKey()
	prev, ok := byKey[key]
	if !ok || r.ColetadoEm > prev.ColetadoEm {
		byKey[key] = r
	}
}

func trimToRecentDates(byKey map[market.Key]market.Record) []market.Record {
	dates := make(map[string]struct{})
	for key := range byKey {
		dates[key.Date] = struct{}{}
	}

	kept := make(map[string]struct{}, len(dates))
	if len(dates) <= RetentionDates {
		kept = dates
	} else {
		ordered := make([]string, 0, len(dates))
		for d := range dates {
			ordered = append(ordered, d)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(ordered)))
		for _, d := range ordered[:RetentionDates] {
			kept[d] = struct{}{}
		}
	}

	retained := make([]market.Record, 0, len(byKey))
	for key, r := range byKey {
		if _, ok := kept[key.Date]; ok {
			retained = append(retained, r)
		}
	}
	return retained
}
