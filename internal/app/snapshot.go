package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/fetcher"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/history"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/summary"
)

// Snapshot runs the simple widget pipeline: scrape the latest quote per
// variant from the quotation widgets, fold both into history and summary,
// and inject the formatted prices into the static homepage. Unlike Collect,
// structurally unexpected widget markup is fatal for that variant.
func (a *App) Snapshot(ctx context.Context) error {
	client := a.newClient()
	historyStore := a.newHistoryStore()
	summaryStore := a.newSummaryStore()

	var candidates []market.Record
	for _, src := range []struct {
		url  string
		tipo string
	}{
		{a.Config.Sources.ArabicaWidgetURL, market.VariantArabica},
		{a.Config.Sources.ConillonWidgetURL, market.VariantConillon},
	} {
		if src.url == "" {
			a.Logger.Debug().Str("tipo", src.tipo).Msg("no widget url; variant skipped")
			continue
		}

		producer := fetcher.NewWidget(client, src.url, src.tipo, a.Logger)
		records, err := producer.Produce(ctx)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", src.tipo, err)
		}
		candidates = append(candidates, records...)
	}

	merged := history.Merge(historyStore.Load(), candidates)
	if err := historyStore.Save(merged); err != nil {
		return err
	}

	latest := history.Latest(merged)
	doc := summary.Build(summaryStore.Load(), latest, time.Now(), a.Config.Market.Fonte, a.marketHours())
	if err := summaryStore.Save(doc); err != nil {
		return err
	}

	var arabica, robusta *decimal.Decimal
	if q, ok := latest[market.VariantArabica]; ok {
		value := q.Valor
		arabica = &value
	}
	if q, ok := latest[market.VariantConillon]; ok {
		value := q.Valor
		robusta = &value
	}
	if err := a.newInjector().Inject(arabica, robusta); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "OK: %d registros totais.\n", len(merged))
	return nil
}
