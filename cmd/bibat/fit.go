package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teddygroves/bibat/adapters/cmdstan"
	"github.com/teddygroves/bibat/adapters/idatastore"
	"github.com/teddygroves/bibat/adapters/ledger"
	"github.com/teddygroves/bibat/app"
	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/example"
	"github.com/teddygroves/bibat/internal/config"
)

func newFitCmd(c *cli) *cobra.Command {
	var projectRoot string
	var format string
	var continueOnError bool
	var ledgerURL string

	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit every inference of a project",
		Long: `Run every inference directory under inferences/ in name order with CmdStan.

Each inference writes its result and a run.json manifest next to its
config.toml. CMDSTAN must point at a CmdStan installation unless every
Stan program is already compiled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project := c.cfg.Project
			if projectRoot != "" {
				project = config.ProjectConfig{Root: projectRoot}
			}
			fitCfg := c.cfg.Fit
			if cmd.Flags().Changed("format") {
				parsed, err := idata.ParseFormat(format)
				if err != nil {
					return err
				}
				fitCfg.Format = parsed
			}
			if cmd.Flags().Changed("continue-on-error") {
				fitCfg.ContinueOnError = continueOnError
			}
			if !cmd.Flags().Changed("ledger") {
				ledgerURL = c.cfg.Ledger.URL
			}

			compiler := &cmdstan.Compiler{CmdStanPath: c.cfg.CmdStan.Path, Make: c.cfg.CmdStan.Make, Logger: c.logger}
			service := app.NewFittingService(
				cmdstan.NewSampler(compiler, c.logger),
				cmdstan.NewProgramResolver(project.Root),
				nil,
				example.Functions(),
				idatastore.New(),
			).WithLogger(c.logger).WithCodeVersion(Version)

			if ledgerURL != "" {
				runLedger, err := ledger.Open(cmd.Context(), ledgerURL, c.logger)
				if err != nil {
					return err
				}
				defer runLedger.Close()
				service.WithLedger(runLedger)
			}

			report, err := service.RunAllInferences(cmd.Context(), app.BatchOptions{
				InferencesDir:   project.InferencesDir(),
				DataDir:         project.PreparedDataDir(),
				Loader:          example.Loader(),
				Format:          fitCfg.Format,
				ContinueOnError: fitCfg.ContinueOnError,
			})
			if report != nil {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "INFERENCE\tSTATUS\tRESULT")
				for _, job := range report.Jobs {
					status, result := "succeeded", job.ResultPath
					if job.Err != nil {
						status, result = "failed", job.Err.Error()
					}
					fmt.Fprintf(w, "%s\t%s\t%s\n", job.Job, status, result)
				}
				w.Flush()
			}
			return err
		},
	}

	cmd.Flags().StringVar(&projectRoot, "project-root", "", "Project directory (default from BIBAT_PROJECT_ROOT)")
	cmd.Flags().StringVar(&format, "format", string(idata.FormatJSON), "Result format: json or directory")
	cmd.Flags().BoolVar(&continueOnError, "continue-on-error", false, "Keep going after an inference fails")
	cmd.Flags().StringVar(&ledgerURL, "ledger", "", "Run ledger URL, e.g. sqlite://runs.db (default from BIBAT_LEDGER_URL)")
	return cmd
}
