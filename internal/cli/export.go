package cli

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/elli-study/elli/internal/sheet"
)

// NewExportCommand prints the collected sheet (or turn log) as CSV.
func NewExportCommand() *cobra.Command {
	var (
		sheetPath string
		turnLog   bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print collected rows as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := sheet.NewCSVStore(sheetPath)
			if err != nil {
				return fmt.Errorf("open sheet %s: %w", sheetPath, err)
			}
			w := csv.NewWriter(os.Stdout)
			defer w.Flush()

			if turnLog {
				entries, err := store.Log(cmd.Context())
				if err != nil {
					return err
				}
				for _, e := range entries {
					if err := w.Write([]string{e.SessionID, e.Role, e.Content, e.At.Format(time.RFC3339)}); err != nil {
						return err
					}
				}
				return nil
			}

			rows, err := store.Rows(cmd.Context())
			if err != nil {
				return err
			}
			for _, row := range rows {
				if err := w.Write(row); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sheetPath, "sheet", "elli-sheet.csv", "CSV sheet to read")
	cmd.Flags().BoolVar(&turnLog, "log", false, "export the turn log instead of the sheet")
	return cmd
}
