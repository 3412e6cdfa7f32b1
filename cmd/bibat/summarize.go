package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teddygroves/bibat/adapters/idatastore"
	"github.com/teddygroves/bibat/domain/idata"
	"github.com/teddygroves/bibat/internal/analysis"
	"github.com/teddygroves/bibat/internal/errors"
)

func newSummarizeCmd(c *cli) *cobra.Command {
	var group string

	cmd := &cobra.Command{
		Use:   "summarize <result>",
		Short: "Summarize a fitted inference",
		Long: `Print mean, standard deviation, quantiles and split R-hat for every
variable in a group of a stored result, followed by the expected log
predictive density of every llik_* log-likelihood variable.

Example: bibat summarize inferences/interaction/idata.json --group posterior`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := idatastore.New().Load(args[0])
			if err != nil {
				return err
			}
			return writeSummary(cmd.OutOrStdout(), data, group)
		},
	}

	cmd.Flags().StringVar(&group, "group", idata.GroupPosterior, "Group to summarize")
	return cmd
}

func writeSummary(out io.Writer, data *idata.InferenceData, group string) error {
	g, ok := data.Groups[group]
	if !ok {
		return errors.NotFound(fmt.Sprintf("group %q (available: %s)", group, strings.Join(data.GroupNames(), ", ")))
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "\tmean\tsd\tq5\tmedian\tq95\trhat\t")
	for _, name := range g.VariableNames() {
		summaries, err := analysis.Summarize(name, g.Variables[name])
		if err != nil {
			return err
		}
		for _, s := range summaries {
			fmt.Fprintf(w, "%s\t%.3g\t%.3g\t%.3g\t%.3g\t%.3g\t%.3f\t\n", s.Element, s.Mean, s.SD, s.Q5, s.Median, s.Q95, s.Rhat)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	llik, ok := data.Groups[idata.GroupLogLikelihood]
	if !ok {
		return nil
	}
	fmt.Fprintln(out)
	for _, name := range llik.VariableNames() {
		if !strings.HasPrefix(name, idata.LogLikelihoodVar+"_") {
			continue
		}
		elpd, err := analysis.EstimateELPD(name, llik.Variables[name])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: elpd %.2f (se %.2f)\n", name, elpd.Estimate, elpd.SE)
	}
	return nil
}
