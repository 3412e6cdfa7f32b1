package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/teddygroves/bibat/internal"
	"github.com/teddygroves/bibat/internal/config"
	"github.com/teddygroves/bibat/internal/scaffold"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

// cli carries what every subcommand needs once flags are parsed.
type cli struct {
	cfg       *config.Config
	logger    *slog.Logger
	logLevel  string
	logFormat string
}

func main() {
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	app := &cli{}
	var configFile string
	var outputDir string

	rootCmd := &cobra.Command{
		Use:   "bibat",
		Short: "Batteries-included Bayesian analysis template",
		Long: `Generate a Bayesian statistical analysis project, then prepare its data,
fit its inferences with CmdStan and summarize the results.

Without a subcommand bibat asks a few questions and creates a new project.
Use --config-file to answer them from a YAML file instead.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(errOut)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var ctx scaffold.Context
			if configFile != "" {
				loaded, err := scaffold.LoadContextFile(configFile, scaffold.WizardFields(), Version)
				if err != nil {
					return err
				}
				ctx = loaded
			} else {
				fmt.Fprintln(out, "Welcome to the Batteries-Included Bayesian Analysis Template!")
				answers, err := scaffold.NewPrompter(in, out).AskAll(scaffold.WizardFields())
				if err != nil {
					return err
				}
				ctx = scaffold.NewContext(answers, Version)
			}
			dir, err := scaffold.Render(ctx, outputDir, app.logger)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Created %s\n", dir)
			return nil
		},
	}
	rootCmd.SetIn(in)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().StringVar(&configFile, "config-file", "", "YAML file with prefilled answers")
	rootCmd.Flags().StringVar(&outputDir, "output-dir", ".", "Directory to create the project in")
	rootCmd.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "debug, info, warn or error (default from BIBAT_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&app.logFormat, "log-format", "", "text or json (default from BIBAT_LOG_FORMAT)")

	rootCmd.AddCommand(
		newPrepareDataCmd(app),
		newFitCmd(app),
		newSummarizeCmd(app),
		newRunsCmd(app),
	)
	return rootCmd
}

// setup loads .env and the environment configuration, then applies flag
// overrides.
func (c *cli) setup(errOut io.Writer) error {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Log.Format = c.logFormat
	}
	c.cfg = cfg
	c.logger = internal.NewLogger(errOut, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(c.logger)
	return nil
}
