package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// ExportOptions selects the output artefacts for Export.
type ExportOptions struct {
	CSVPath string
	PNGPath string
}

// Export renders the retained history as CSV and/or a PNG price chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	records := a.newHistoryStore().Load()
	if len(records) == 0 {
		a.Logger.Info().Msg("no records to export")
		return nil
	}

	a.Logger.Info().Int("records", len(records)).Msg("exporting history")

	if opts.CSVPath != "" {
		if err := writeRecordsCSV(opts.CSVPath, records); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRecordsPNG(opts.PNGPath, records); err != nil {
			return err
		}
	}

	return nil
}

func writeRecordsCSV(path string, records []market.Record) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"effective_date", "produto", "tipo", "moeda", "valor", "referente_a", "fonte_url", "coletado_em"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, record := range records {
		row := []string{
			record.EffectiveDate(),
			record.Produto,
			record.Tipo,
			record.Moeda,
			record.Valor.String(),
			record.ReferenteA,
			record.FonteURL,
			record.ColetadoEm,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRecordsPNG(path string, records []market.Record) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	series := make([]chart.Series, 0, 2)
	for _, tipo := range []string{market.VariantArabica, market.VariantConillon} {
		x := make([]time.Time, 0, len(records))
		y := make([]float64, 0, len(records))
		for _, record := range records {
			if record.Tipo != tipo {
				continue
			}
			day, err := time.Parse("2006-01-02", record.EffectiveDate())
			if err != nil {
				continue
			}
			x = append(x, day)
			y = append(y, record.Valor.InexactFloat64())
		}
		if len(x) < 2 {
			continue
		}
		series = append(series, chart.TimeSeries{
			Name:    tipo,
			XValues: x,
			YValues: y,
		})
	}
	if len(series) == 0 {
		return errors.New("not enough dated records to chart")
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeDateValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           fmt.Sprintf("BRL / saca %dkg", market.SackWeightKg),
			ValueFormatter: priceFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
