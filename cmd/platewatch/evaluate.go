package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/platewatch/internal/domain/report"
	"github.com/okian/platewatch/pkg/logger"
	"github.com/okian/platewatch/pkg/metrics"
)

func newEvaluateCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate the exports once and write the report",
		Long: `Evaluate loads the rule table and the CSV exports, runs every rule against
every athlete and writes the categorized report as JSON or YAML.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.cfg

			ctx := cmd.Context()
			r, err := evaluate(ctx, cfg, newService(cfg, c.log), c.log)
			if err != nil {
				return err
			}
			if err := writeReport(cmd.OutOrStdout(), cfg.OutputFile, cfg.OutputFormat, r); err != nil {
				return err
			}
			if cfg.OutputFile != "" {
				c.log.Info(ctx, "report written", logger.String("path", cfg.OutputFile),
					logger.String("run_id", r.RunID))
			}
			if cfg.MetricsTextfile != "" {
				if err := metrics.WriteTextfile(cfg.MetricsTextfile); err != nil {
					return err
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&c.overrides.output, "output", "o", "", "Report file (default stdout)")
	f.StringVarP(&c.overrides.format, "format", "f", "", "Report format (json|yaml)")
	f.StringVar(&c.overrides.textfile, "metrics-textfile", "", "Write Prometheus metrics to this textfile after the run")
	return cmd
}

// writeReport encodes r to path, or to stdout when path is empty.
func writeReport(stdout io.Writer, path, format string, r *report.Report) error {
	if path == "" {
		return report.Encode(stdout, r, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	if err := report.Encode(f, r, format); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close report file: %w", err)
	}
	return nil
}
