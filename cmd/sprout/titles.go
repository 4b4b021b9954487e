package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hoanghai1803/sprout/internal/models"
)

func newTitlesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "titles",
		Short: "Manage the title bank",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "add <title>...",
		Short: "Add titles to the bank",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			for _, title := range args {
				id, err := a.store.AddBankTitle(cmd.Context(), title, models.BankSourceManual)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", id, title)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List bank titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			titles, err := a.store.ListBankTitles(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tUSED\tSOURCE\tTITLE")
			for _, t := range titles {
				fmt.Fprintf(tw, "%d\t%v\t%s\t%s\n", t.ID, t.IsUsed, t.Source, t.Title)
			}
			return tw.Flush()
		},
	})

	return cmd
}
