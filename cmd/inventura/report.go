package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/inventura/internal/report"
)

func reportCommand(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "report <cycle-id|active>",
		Short: "Write the reconciliation report of a cycle as .xlsx",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			database, err := openDatabase(a.cfg.DB)
			if err != nil {
				return err
			}
			defer database.Close()

			cycleID, err := resolveCycle(cmd.Context(), database, args[0])
			if err != nil {
				return err
			}

			data, err := report.Load(cmd.Context(), database, cycleID)
			if err != nil {
				return err
			}

			if output == "" {
				output = report.Filename(data.Cycle)
			}
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating report file: %w", err)
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()

			if err := report.Write(f, data); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Report written: %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: inventory-<date>.xlsx)")
	return cmd
}
