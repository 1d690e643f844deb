package app

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/extractor"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/fetcher"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/history"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/notify"
	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/summary"
)

// Collect runs the history-aware pipeline: scrape the indicator pages,
// reconcile the candidates into the bounded history, republish the summary,
// and feed the optional archive and notification sinks.
func (a *App) Collect(ctx context.Context) error {
	client := a.newClient()
	ai := a.newExtractor()
	historyStore := a.newHistoryStore()
	summaryStore := a.newSummaryStore()

	existing := historyStore.Load()
	previousDates := distinctDates(existing)

	var candidates []market.Record
	for _, src := range []struct {
		url  string
		tipo string
	}{
		{a.Config.Sources.ArabicaURL, market.VariantArabica},
		{a.Config.Sources.ConillonURL, market.VariantConillon},
	} {
		if src.url == "" {
			a.Logger.Debug().Str("tipo", src.tipo).Msg("no source url; variant skipped")
			continue
		}

		records, err := a.collectVariant(ctx, client, ai, src.url, src.tipo)
		if err != nil {
			return fmt.Errorf("collect %s: %w", src.tipo, err)
		}
		candidates = append(candidates, records...)
	}

	merged := history.Merge(existing, candidates)
	if err := historyStore.Save(merged); err != nil {
		return err
	}

	latest := history.Latest(merged)
	now := time.Now()
	doc := summary.Build(summaryStore.Load(), latest, now, a.Config.Market.Fonte, a.marketHours())
	if err := summaryStore.Save(doc); err != nil {
		return err
	}

	a.archiveRecords(ctx, merged)
	a.notifyUpdate(ctx, merged, previousDates, latest)

	fmt.Fprintf(os.Stdout, "OK: %d registros totais.\n", len(merged))
	return nil
}

// collectVariant parses the page directly and falls back to AI extraction
// when the direct parse finds nothing, or tops up when it finds too few
// records to cover the page's visible history.
func (a *App) collectVariant(ctx context.Context, client *fetcher.Client, ai *extractor.Extractor, url, tipo string) ([]market.Record, error) {
	producer := fetcher.NewIndicator(client, url, tipo, a.Logger)
	records, err := producer.Produce(ctx)
	if err != nil {
		return nil, err
	}

	aiEnabled := ai.Enabled()

	if len(records) == 0 && aiEnabled {
		extracted, exErr := ai.Extract(ctx, producer.LastHTML, tipo, url)
		if exErr != nil {
			a.Logger.Warn().Err(exErr).Str("tipo", tipo).Msg("fallback extraction failed")
			return records, nil
		}
		return extracted, nil
	}

	if len(records) > 0 && len(records) <= a.Config.Sources.FallbackThreshold && aiEnabled {
		extracted, exErr := ai.Extract(ctx, producer.LastHTML, tipo, url)
		if exErr != nil {
			a.Logger.Warn().Err(exErr).Str("tipo", tipo).Msg("fallback extraction failed")
		} else {
			records = append(records, extracted...)
		}
	}

	return records, nil
}

func (a *App) archiveRecords(ctx context.Context, records []market.Record) {
	archive, closeArchive, err := a.openArchive(ctx)
	if err != nil {
		a.Logger.Error().Err(err).Msg("unable to open archive; records not mirrored")
		return
	}
	if archive == nil {
		return
	}
	defer closeArchive()

	if err := archive.EnsureSchema(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("unable to prepare archive schema")
		return
	}
	if err := archive.ArchiveRecords(ctx, records); err != nil {
		a.Logger.Error().Err(err).Msg("unable to mirror records into archive")
		return
	}
	a.Logger.Info().Int("records", len(records)).Msg("records mirrored into archive")
}

func (a *App) notifyUpdate(ctx context.Context, merged []market.Record, previousDates map[string]struct{}, latest map[string]history.Quote) {
	notifier := a.newNotifier()
	if notifier == nil {
		return
	}

	var newDates []string
	for date := range distinctDates(merged) {
		if _, seen := previousDates[date]; !seen {
			newDates = append(newDates, date)
		}
	}
	if len(newDates) == 0 {
		return
	}
	sort.Strings(newDates)

	update := notify.Update{NewDates: newDates, Records: len(merged)}
	if q, ok := latest[market.VariantArabica]; ok {
		value := q.Valor
		update.Arabica = &value
	}
	if q, ok := latest[market.VariantConillon]; ok {
		value := q.Valor
		update.Robusta = &value
	}

	if err := notifier.Notify(ctx, update); err != nil {
		a.Logger.Error().Err(err).Msg("unable to send update notification")
	}
}

func distinctDates(records []market.Record) map[string]struct{} {
	dates := make(map[string]struct{}, len(records))
	for _, r := range records {
		dates[r.EffectiveDate()] = struct{}{}
	}
	return dates
}
