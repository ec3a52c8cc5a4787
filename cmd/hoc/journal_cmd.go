package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Mindburn-Labs/hoc/pkg/config"
	"github.com/Mindburn-Labs/hoc/pkg/journal"
)

// runJournalCmd implements `hoc journal`.
//
// Lists violations recorded by earlier runs, most recent first. The
// database defaults to HOC_JOURNAL_DRIVER and HOC_JOURNAL_DSN.
//
// Exit codes:
//
//	0 = success
//	2 = runtime error
func runJournalCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("journal", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	cfg := config.Load()
	var (
		driver     string
		dsn        string
		limit      int
		jsonOutput bool
	)
	cmd.StringVar(&driver, "driver", cfg.JournalDriver, "Journal driver: sqlite, postgres or redis")
	cmd.StringVar(&dsn, "dsn", cfg.JournalDSN, "Database DSN or redis:// URL (REQUIRED unless HOC_JOURNAL_DSN is set)")
	cmd.IntVar(&limit, "limit", 20, "Maximum entries to list, 0 for all")
	cmd.BoolVar(&jsonOutput, "json", false, "Output entries as JSON")

	if err := cmd.Parse(args); err != nil {
		return 2
	}
	if dsn == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --dsn is required")
		return 2
	}
	if driver == "" {
		driver = "sqlite"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j, err := journal.Connect(ctx, driver, dsn)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	defer func() { _ = j.Close() }()

	entries, err := j.Entries(ctx, limit)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if jsonOutput {
		if entries == nil {
			entries = []journal.Entry{}
		}
		data, _ := json.MarshalIndent(entries, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(data))
		return 0
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(stdout, "No violations recorded.")
		return 0
	}

	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "LAST SEEN\tCOUNT\tSUBJECT\tCULPRIT\tPOSITION\tEXPECTED\tLOCATION")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			e.LastSeen.Format(time.RFC3339), e.Count, e.Subject, e.Culprit, e.Position, e.Expected, e.Location)
	}
	_ = tw.Flush()
	return 0
}
