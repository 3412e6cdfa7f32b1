package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/teddygroves/bibat/adapters/ledger"
	"github.com/teddygroves/bibat/internal/errors"
)

func newRunsCmd(c *cli) *cobra.Command {
	var ledgerURL string
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded inference runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("ledger") {
				ledgerURL = c.cfg.Ledger.URL
			}
			if ledgerURL == "" {
				return errors.ConfigurationError("BIBAT_LEDGER_URL", "no run ledger configured; set it or pass --ledger")
			}
			runLedger, err := ledger.Open(cmd.Context(), ledgerURL, c.logger)
			if err != nil {
				return err
			}
			defer runLedger.Close()

			runs, err := runLedger.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tINFERENCE\tSTATUS\tSTARTED\tDURATION\tFINGERPRINT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.RunID, r.Job, r.Status, r.StartedAt.Format(time.RFC3339), r.Duration().Round(time.Millisecond), r.Fingerprint.Fingerprint.Short())
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&ledgerURL, "ledger", "", "Run ledger URL (default from BIBAT_LEDGER_URL)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list; 0 lists all")
	return cmd
}
