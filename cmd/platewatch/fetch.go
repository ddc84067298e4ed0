package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/platewatch/internal/client"
	"github.com/okian/platewatch/internal/domain/report"
)

func newFetchCmd(c *cli) *cobra.Command {
	var (
		baseURL  string
		category int
		athlete  string
		timeout  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Read the latest report from a running server",
		Long: `Fetch reads the latest report from a platewatch server. By default the full
report is written like evaluate does; --category and --athlete print one
category or one athlete's flags as a table instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := c.cfg
			if baseURL == "" {
				baseURL = serverURL(cfg.Addr)
			}

			ctx := cmd.Context()
			api := client.New(baseURL, client.WithTimeout(timeout))
			out := cmd.OutOrStdout()
			switch {
			case cmd.Flags().Changed("category"):
				cat, err := api.Category(ctx, category)
				if err != nil {
					return err
				}
				return printCategory(out, cat)
			case athlete != "":
				flags, err := api.Athlete(ctx, athlete)
				if err != nil {
					return err
				}
				return printAthlete(out, flags)
			}

			r, err := api.Report(ctx)
			if err != nil {
				return err
			}
			return writeReport(out, cfg.OutputFile, cfg.OutputFormat, r)
		},
	}

	f := cmd.Flags()
	f.StringVar(&baseURL, "url", "", "Server base URL (default derived from addr)")
	f.StringVarP(&c.overrides.output, "output", "o", "", "Report file (default stdout)")
	f.StringVarP(&c.overrides.format, "format", "f", "", "Report format (json|yaml)")
	f.IntVar(&category, "category", 0, "Print one category by rule id")
	f.StringVar(&athlete, "athlete", "", "Print the categories one athlete is flagged in")
	f.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP request timeout")
	return cmd
}

// serverURL turns a listen address into a URL on the local host.
func serverURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func printCategory(w io.Writer, cat *report.Category) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%d %s: %d flagged (%d critical, %d warning, %d caution)\n",
		cat.RuleID, cat.Name, cat.Counts.Total, cat.Counts.Critical, cat.Counts.Warning, cat.Counts.Caution)
	fmt.Fprintln(tw, "ATHLETE\tPOSITION\tSEVERITY")
	for _, a := range cat.Athletes {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.ID, a.Position, a.Severity)
	}
	return tw.Flush()
}

func printAthlete(w io.Writer, flags *client.AthleteFlags) error {
	if len(flags.Categories) == 0 {
		_, err := fmt.Fprintf(w, "%s: not flagged\n", flags.AthleteID)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tNAME\tSEVERITY")
	for _, c := range flags.Categories {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.RuleID, c.Name, c.Severity)
	}
	return tw.Flush()
}
