package cli

import (
	"github.com/spf13/cobra"

	"github.com/opedromartinss/cotacoes-cafe-cacau/internal/app"
)

var (
	exportCSVPath string
	exportPNGPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the price history as CSV and/or PNG chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Export(cmd.Context(), app.ExportOptions{
			CSVPath: exportCSVPath,
			PNGPath: exportPNGPath,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
}
