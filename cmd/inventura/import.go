package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/inventura/internal/importer"
	"github.com/erazemk/inventura/internal/store"
)

func importCommand(a *app) *cobra.Command {
	var as string

	cmd := &cobra.Command{
		Use:   "import <cycle-id|active> <file.xlsx>",
		Short: "Replace the expected stock of a cycle from a spreadsheet export",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(a.cfg.DB)
			if err != nil {
				return err
			}
			defer database.Close()

			user, err := store.GetUserByName(cmd.Context(), database, as)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %q not found", as)
			}

			cycleID, err := resolveCycle(cmd.Context(), database, args[0])
			if err != nil {
				return err
			}

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("opening spreadsheet: %w", err)
			}
			defer f.Close()

			result, err := importer.NewReader(a.cfg.Import).Read(f)
			if result != nil {
				printRowErrors(cmd.ErrOrStderr(), result.Errors)
			}
			if err != nil {
				return err
			}

			n, err := store.ReplaceExpectedItems(cmd.Context(), database, cycleID, result.Items, store.ActorFor(user))
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d items from sheet %q into cycle %s (%d rows skipped).\n",
				n, result.Sheet, cycleID, result.Skipped())
			return nil
		},
	}

	cmd.Flags().StringVar(&as, "as", "Admin", "name of the user recorded as importer")
	return cmd
}

func printRowErrors(w io.Writer, errs []importer.RowError) {
	for _, e := range errs {
		fmt.Fprintf(w, "skipped: %s\n", e.Error())
	}
}

// resolveCycle maps the "active" alias to the id of the open cycle.
func resolveCycle(ctx context.Context, database *sql.DB, ref string) (string, error) {
	if ref != "active" {
		return ref, nil
	}
	cycle, err := store.GetActiveCycle(ctx, database)
	if err != nil {
		return "", fmt.Errorf("finding active cycle: %w", err)
	}
	return cycle.ID, nil
}
