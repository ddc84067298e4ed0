// Command platewatch flags athletes whose force-plate metrics trend the
// wrong way and groups them by training category.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okian/platewatch/internal/config"
	"github.com/okian/platewatch/pkg/logger"
)

const appName = "platewatch"

// cli carries state shared by the subcommands once the root pre-run has
// resolved configuration and logging.
type cli struct {
	configFile string
	overrides  overrides

	cfg *config.Config
	log logger.Logger
}

// overrides are the flag values applied on top of file and env config.
// The last group belongs to subcommand flags.
type overrides struct {
	logLevel   string
	logFormat  string
	data       []string
	rules      string
	workers    int
	minRecords int
	policy     string

	output   string
	format   string
	textfile string
	addr     string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, appName+": "+err.Error())
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:   appName,
		Short: "Force-plate trend detection and severity classification",
		Long: `platewatch reads CMJ and IMTP force-plate exports, compares every athlete's
latest values with their own baseline and flags athletes per training
category at caution, warning or critical severity.

Configuration is layered: defaults, a YAML file (--config or PLATEWATCH_CONFIG),
PLATEWATCH_* environment variables, then flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configFile, "config", "", "YAML config file (overrides "+config.EnvConfig+")")
	pf.StringVar(&c.overrides.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	pf.StringVar(&c.overrides.logFormat, "log-format", "", "Log format (text|json)")
	pf.StringSliceVar(&c.overrides.data, "data", nil, "CSV export(s); repeat or comma-separate to merge files")
	pf.StringVar(&c.overrides.rules, "rules", "", "YAML rule table (default: built-in categories)")
	pf.IntVar(&c.overrides.workers, "workers", 0, "Number of evaluation workers")
	pf.IntVar(&c.overrides.minRecords, "min-records", 0, "Minimum test records per athlete")
	pf.StringVar(&c.overrides.policy, "baseline", "", "Baseline policy (proportional|rolling)")

	root.AddCommand(newEvaluateCmd(c), newServeCmd(c), newRulesCmd(c), newFetchCmd(c))
	return root
}

// setup loads configuration with the flags of the running command on top
// and initializes logging.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(cmd.Context(), c.configFile, func(cfg *config.Config) { c.apply(cmd, cfg) })
	if err != nil {
		return err
	}

	// Logs go to stderr so a report on stdout stays machine-readable.
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithWriter(cmd.ErrOrStderr())); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(cmd.Context(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.cfg = cfg
	c.log = logger.Named(appName)
	return nil
}

func (c *cli) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	o := c.overrides
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if flags.Changed("data") {
		cfg.DataFile = strings.Join(o.data, ",")
	}
	if flags.Changed("rules") {
		cfg.RulesFile = o.rules
	}
	if flags.Changed("workers") {
		cfg.WorkerCount = o.workers
	}
	if flags.Changed("min-records") {
		cfg.MinRecords = o.minRecords
	}
	if flags.Changed("baseline") {
		cfg.BaselinePolicy = o.policy
	}
	if flags.Changed("output") {
		cfg.OutputFile = o.output
	}
	if flags.Changed("format") {
		cfg.OutputFormat = o.format
	}
	if flags.Changed("metrics-textfile") {
		cfg.MetricsTextfile = o.textfile
	}
	if flags.Changed("addr") {
		cfg.Addr = o.addr
	}
}
