package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/platewatch/internal/domain/rules"
	"github.com/okian/platewatch/pkg/logger"
)

func newRulesCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect the decision-category rule table",
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load the rule table and fail on the first invalid rule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := loadTable(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			c.log.Info(cmd.Context(), "rule table valid", logger.Int("rules", table.Len()),
				logger.String("source", ruleSource(c.cfg.RulesFile)))
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "ok: %d rules\n", table.Len())
			return err
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the rule table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			table, err := loadTable(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			return printRules(cmd.OutOrStdout(), table)
		},
	}

	cmd.AddCommand(validate, show)
	return cmd
}

func ruleSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

func printRules(w io.Writer, table *rules.Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTREND\tMETRICS\tTHRESHOLD")
	for _, r := range table.Rules() {
		threshold := "-"
		if abs, ok := r.(rules.AbsoluteRule); ok {
			threshold = fmt.Sprintf("%g", abs.Threshold)
		}
		m := r.Meta()
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", m.ID, m.Name, r.Trend(), strings.Join(r.Metrics(), ", "), threshold)
	}
	return tw.Flush()
}
