// cmd/evalcli runs the offline Evaluation Harness from the command
// line, the way a CLI wraps offline batch operations
// in cobra subcommands with rendered table output.
package main

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	emailrepo "github.com/inboxreel/inboxreel/internal/email/repository"
	enrichrepo "github.com/inboxreel/inboxreel/internal/enrichment/repository"
	"github.com/inboxreel/inboxreel/internal/eval"
	feedbackrepo "github.com/inboxreel/inboxreel/internal/feedback/repository"
	rankrepo "github.com/inboxreel/inboxreel/internal/ranker/repository"
	"github.com/inboxreel/inboxreel/pkg/config"
	"github.com/inboxreel/inboxreel/pkg/dbconn"
)

func main() {
	root := &cobra.Command{
		Use:   "evalcli",
		Short: "Run the ranking pipeline's offline evaluation harness",
	}
	root.AddCommand(newRunCommand())

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}

func newRunCommand() *cobra.Command {
	var userID string
	var fromStr, toStr, ksStr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate precision@k, coverage, novelty, and stability for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user is required")
			}

			from, to, err := parseWindow(fromStr, toStr)
			if err != nil {
				return err
			}
			ks, err := parseKs(ksStr)
			if err != nil {
				return err
			}

			cfg := config.Load()
			db, err := dbconn.NewPostgresConnection(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}

			rankings := rankrepo.NewRepository(db)
			feedback := feedbackrepo.NewRepository(db)
			links := emailrepo.NewLinkRepository(db)
			metadata := enrichrepo.NewVideoMetadataRepository(db)
			harness := eval.New(rankings, feedback, links, metadata)

			report, err := harness.Evaluate(userID, from, to, ks)
			if err != nil {
				return fmt.Errorf("evaluate: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderReport(report, ks))
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id to evaluate")
	cmd.Flags().StringVar(&fromStr, "from", "", "range start, RFC3339 (default: 30 days ago)")
	cmd.Flags().StringVar(&toStr, "to", "", "range end, RFC3339 (default: now)")
	cmd.Flags().StringVar(&ksStr, "k", "5,10,20", "comma-separated k values for precision@k")
	return cmd
}

func parseWindow(fromStr, toStr string) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.AddDate(0, 0, -30)
	if fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from: %w", err)
		}
		from = parsed
	}
	if toStr != "" {
		parsed, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to: %w", err)
		}
		to = parsed
	}
	return from, to, nil
}

func parseKs(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	ks := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		k, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid k value %q: %w", p, err)
		}
		ks = append(ks, k)
	}
	return ks, nil
}

func renderReport(report eval.Report, ks []int) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Metric", "Value"})

	for _, k := range ks {
		tw.AppendRow(table.Row{fmt.Sprintf("precision@%d", k), fmt.Sprintf("%.3f", report.PrecisionAtK[k])})
	}
	tw.AppendRow(table.Row{"coverage", fmt.Sprintf("%.3f", report.Coverage)})
	tw.AppendRow(table.Row{"novelty", fmt.Sprintf("%.3f", report.Novelty)})
	tw.AppendRow(table.Row{"stability", fmt.Sprintf("%.3f", report.Stability)})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft},
		{Number: 2, Align: text.AlignRight},
	})

	return tw.Render()
}
