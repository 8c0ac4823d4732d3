package main

import (
	"fmt"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wavecrest-planner/internal/app"
	"wavecrest-planner/internal/config"
)

// appFactory builds the planner for one CLI invocation.
type appFactory func(opts globalOptions) (*app.App, error)

type globalOptions struct {
	output           string
	pretty           bool
	store            string
	complianceConfig string
	verbose          bool
}

// cli carries the state shared by every subcommand.
type cli struct {
	opts    globalOptions
	factory appFactory
	app     *app.App
}

func defaultApp(opts globalOptions) (*app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if opts.store != "" {
		cfg.StoreBackend = opts.store
	}
	if opts.complianceConfig != "" {
		cfg.ComplianceConfigPath = opts.complianceConfig
	}
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(color.Error, &slog.HandlerOptions{Level: level}))
	return app.New(cfg, logger)
}

// newRootCmd returns the root command for the planner CLI.
func newRootCmd(factory appFactory) *cobra.Command {
	return newCLI(factory).command()
}

func newCLI(factory appFactory) *cli {
	return &cli{factory: factory}
}

// execute runs the command tree and closes the planner whether or not the
// command succeeded. cobra skips post-run hooks after a RunE error.
func (c *cli) execute(root *cobra.Command) error {
	defer c.close()
	return root.Execute()
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

func (c *cli) command() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "planner",
		Short:         "Content calendar planner: build month plans and check compliance",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.opts.output != "text" && c.opts.output != "json" {
				return fmt.Errorf("--output must be text or json, got %q", c.opts.output)
			}
			color.NoColor = !c.opts.pretty
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&c.opts.output, "output", "text", "output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&c.opts.pretty, "pretty", false, "colorize text output")
	rootCmd.PersistentFlags().StringVar(&c.opts.store, "store", "", "store backend override: mongo|memory")
	rootCmd.PersistentFlags().StringVar(&c.opts.complianceConfig, "compliance-config", "", "compliance targets YAML (default $COMPLIANCE_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&c.opts.verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(c.newBuildCmd())
	rootCmd.AddCommand(c.newCheckCmd())
	rootCmd.AddCommand(c.newExportCmd())
	rootCmd.AddCommand(c.newTransitionCmd())
	rootCmd.AddCommand(c.newListCmd())
	rootCmd.AddCommand(c.newAddIdeaCmd())
	rootCmd.AddCommand(c.newAddScriptCmd())
	rootCmd.AddCommand(c.newArchiveStaleCmd())

	return rootCmd
}

// planner connects on first use so flag errors never touch the database.
func (c *cli) planner() (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	a, err := c.factory(c.opts)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}
