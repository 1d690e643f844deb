package app

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/market"
)

// Show prints the retained quotation history.
func (a *App) Show(ctx context.Context) error {
	records := a.newHistoryStore().Load()
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no records found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Date\tProduto\tTipo\tValor\tColetado em")

	for _, record := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			record.EffectiveDate(),
			record.Produto,
			record.Tipo,
			market.FormatBRL(record.Valor),
			record.ColetadoEm,
		)
	}

	writer.Flush()

	if a.Config.Database.DSN != "" {
		archive, closeArchive, err := a.openArchive(ctx)
		if err != nil {
			return err
		}
		if archive != nil {
			defer closeArchive()
			total, err := archive.CountRecords(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "\narchived records: %d\n", total)
		}
	}

	return nil
}
