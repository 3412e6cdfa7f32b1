package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/teddygroves/bibat/example"
	"github.com/teddygroves/bibat/internal/config"
)

func newPrepareDataCmd(app *cli) *cobra.Command {
	var projectRoot string

	cmd := &cobra.Command{
		Use:   "prepare-data",
		Short: "Prepare the raw measurements of a project",
		Long: `Read data/raw/raw_measurements.csv, run every data preparation function and
write the prepared datasets to data/prepared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			project := app.cfg.Project
			if projectRoot != "" {
				project = config.ProjectConfig{Root: projectRoot}
			}
			paths, err := example.PrepareData(
				filepath.Join(project.RawDataDir(), example.RawMeasurementsFile),
				project.PreparedDataDir(),
				app.logger,
			)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&projectRoot, "project-root", "", "Project directory (default from BIBAT_PROJECT_ROOT)")
	return cmd
}
