package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hoanghai1803/sprout/internal/storage/postgres"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var down bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if down {
				if opts.cfg.Database.Driver != "postgres" {
					return errors.New("--down is only supported for the postgres driver")
				}
				db, err := postgres.OpenDatabase(cmd.Context(), opts.cfg.Database.DSN)
				if err != nil {
					return err
				}
				defer db.Close()
				if err := postgres.MigrateDown(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations rolled back")
				return nil
			}

			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "%s database is up to date\n", opts.cfg.Database.Driver)
			return nil
		},
	}

	cmd.Flags().BoolVar(&down, "down", false, "roll back the most recent migration (postgres only)")
	return cmd
}
