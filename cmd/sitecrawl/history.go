package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/crawler"
	"github.com/nao1215/sitecrawl/internal/database"
	"github.com/nao1215/sitecrawl/internal/model"
	"github.com/spf13/cobra"
)

// errNoHistory is returned when a seed has too few stored crawls to compare.
var errNoHistory = errors.New("not enough crawl history")

// NewHistoryCmd creates the history command.
// This command compares crawl results with earlier crawls stored in the database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [url]",
		Short: "Compare crawl results with earlier crawls",
		Long: `History shows how a site changed between two crawls stored in the database.

By default the latest crawl is compared with the one before it. The output lists:
- Pages that appeared or disappeared
- Changes in the total number of pages and links
- Whether the link graph is identical (same digest)

Examples:
  # Compare the latest two crawls of a site
  sitecrawl history https://example.com

  # List all stored crawls of a site
  sitecrawl history --list https://example.com

  # Compare the latest crawl with a specific earlier crawl
  sitecrawl history --run-id 5 https://example.com

  # List all crawled seeds in the database
  sitecrawl history --list-seeds`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List stored crawls for the specified URL")
	cmd.Flags().BoolP("list-seeds", "L", false,
		"List all crawled seeds in the database")
	cmd.Flags().Int64P("run-id", "i", 0,
		"Compare with a specific crawl by ID (use --list to see available IDs)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().String("db-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	listSeeds, err := cmd.Flags().GetBool("list-seeds")
	if err != nil {
		return err
	}

	// Validate arguments before opening the database
	var seed string
	if !listSeeds {
		if len(args) == 0 {
			return errors.New("seed URL is required (use --list-seeds to see crawled seeds)")
		}
		normalized, err := config.NormalizeSeed(args[0])
		if err != nil {
			return err
		}
		// Stored seeds are normalized the way the crawler normalizes them.
		seed = crawler.NormalizeURL(normalized)
	}

	dbDir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return err
	}
	if dbDir == "" {
		dbDir = config.XDGDataDir()
	}

	// Never create an empty database just to report that it is empty.
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if listSeeds {
		return listCrawledSeeds(ctx, db, out)
	}

	list, err := cmd.Flags().GetBool("list")
	if err != nil {
		return err
	}
	if list {
		return listCrawlHistory(ctx, db, seed, out)
	}

	runID, err := cmd.Flags().GetInt64("run-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	comparison, err := compareRuns(ctx, db, seed, runID)
	if err != nil {
		return err
	}

	if jsonOutput {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(comparison)
	}
	writeComparison(out, comparison)
	return nil
}

// listCrawledSeeds prints every seed stored in the database.
func listCrawledSeeds(ctx context.Context, db *database.CrawlDB, out io.Writer) error {
	seeds, err := db.ListCrawledSeeds(ctx)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		fmt.Fprintln(out, "No crawls stored yet.")
		return nil
	}
	for _, s := range seeds {
		fmt.Fprintln(out, s)
	}
	return nil
}

// listCrawlHistory prints one line per stored crawl of a seed, newest first.
func listCrawlHistory(ctx context.Context, db *database.CrawlDB, seed string, out io.Writer) error {
	history, err := db.GetCrawlHistory(ctx, seed)
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Fprintf(out, "No crawls stored for %s.\n", seed)
		return nil
	}

	fmt.Fprintf(out, "Crawl history for %s\n\n", seed)
	fmt.Fprintf(out, "%-6s %-22s %-16s %8s %8s  %s\n", "ID", "STARTED", "AGE", "PAGES", "LINKS", "DIGEST")
	for _, run := range history {
		status := shortDigest(run.Digest)
		if run.Cancelled {
			status += " (interrupted)"
		}
		fmt.Fprintf(out, "%-6d %-22s %-16s %8d %8d  %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			humanize.Time(run.StartedAt),
			run.PagesCrawled,
			run.LinkCount,
			status,
		)
	}
	return nil
}

// runSummary identifies one side of a comparison.
type runSummary struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Pages     int       `json:"pages"`
	Links     int       `json:"links"`
	Digest    string    `json:"digest"`
}

// runComparison is the difference between two crawls of the same seed.
type runComparison struct {
	Seed         string     `json:"seed"`
	Current      runSummary `json:"current"`
	Previous     runSummary `json:"previous"`
	Unchanged    bool       `json:"unchanged"`
	PagesAdded   []string   `json:"pages_added"`
	PagesRemoved []string   `json:"pages_removed"`
	PagesChanged []string   `json:"pages_changed"`
}

// compareRuns loads the latest crawl and the crawl it is compared with.
// A zero previousID selects the crawl before the latest one.
func compareRuns(ctx context.Context, db *database.CrawlDB, seed string, previousID int64) (*runComparison, error) {
	history, err := db.GetCrawlHistory(ctx, seed)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%w: %s has never been crawled", errNoHistory, seed)
	}

	currentID := history[0].ID
	if previousID == 0 {
		if len(history) < 2 {
			return nil, fmt.Errorf("%w: %s has only one crawl (run 'sitecrawl crawl' again)", errNoHistory, seed)
		}
		previousID = history[1].ID
	}
	if previousID == currentID {
		return nil, fmt.Errorf("run %d is the latest crawl; choose an earlier run", previousID)
	}

	current, err := db.GetCrawlReportByID(ctx, currentID)
	if err != nil {
		return nil, err
	}
	previous, err := db.GetCrawlReportByID(ctx, previousID)
	if err != nil {
		return nil, err
	}
	if previous == nil || previous.Seed != seed {
		return nil, fmt.Errorf("run %d is not a crawl of %s", previousID, seed)
	}

	c := diffReports(current, previous)
	c.Current.ID = currentID
	c.Previous.ID = previousID
	return c, nil
}

// diffReports compares the page maps of two reports.
func diffReports(current, previous *model.CrawlReport) *runComparison {
	c := &runComparison{
		Seed:         current.Seed,
		Current:      summarize(current),
		Previous:     summarize(previous),
		PagesAdded:   make([]string, 0),
		PagesRemoved: make([]string, 0),
		PagesChanged: make([]string, 0),
	}

	for _, page := range current.Pages.URLs() {
		before, ok := previous.Pages.Get(page)
		switch {
		case !ok:
			c.PagesAdded = append(c.PagesAdded, page)
		case !before.Equal(current.Pages[page]):
			c.PagesChanged = append(c.PagesChanged, page)
		}
	}
	for _, page := range previous.Pages.URLs() {
		if _, ok := current.Pages.Get(page); !ok {
			c.PagesRemoved = append(c.PagesRemoved, page)
		}
	}

	c.Unchanged = len(c.PagesAdded) == 0 && len(c.PagesRemoved) == 0 && len(c.PagesChanged) == 0
	return c
}

func summarize(r *model.CrawlReport) runSummary {
	digest := r.Digest
	if digest == "" {
		digest = r.ComputeDigest()
	}
	return runSummary{
		StartedAt: r.StartedAt,
		Pages:     r.Pages.Len(),
		Links:     r.Pages.LinkCount(),
		Digest:    digest,
	}
}

// writeComparison prints a comparison in human-readable form.
func writeComparison(out io.Writer, c *runComparison) {
	fmt.Fprintf(out, "Crawl history for %s\n\n", c.Seed)
	fmt.Fprintf(out, "  Current:  run #%d, %s (%s)\n", c.Current.ID,
		c.Current.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(c.Current.StartedAt))
	fmt.Fprintf(out, "  Previous: run #%d, %s (%s)\n\n", c.Previous.ID,
		c.Previous.StartedAt.Local().Format("2006-01-02 15:04:05"), humanize.Time(c.Previous.StartedAt))

	fmt.Fprintf(out, "  Pages: %d -> %d (%s)\n", c.Previous.Pages, c.Current.Pages, signed(c.Current.Pages-c.Previous.Pages))
	fmt.Fprintf(out, "  Links: %d -> %d (%s)\n\n", c.Previous.Links, c.Current.Links, signed(c.Current.Links-c.Previous.Links))

	if c.Unchanged {
		fmt.Fprintln(out, "Link graph unchanged (digest "+shortDigest(c.Current.Digest)+").")
		return
	}

	writePageList(out, "Pages added", "+", c.PagesAdded)
	writePageList(out, "Pages removed", "-", c.PagesRemoved)
	writePageList(out, "Pages with changed links", "~", c.PagesChanged)
}

func writePageList(out io.Writer, title, marker string, pages []string) {
	if len(pages) == 0 {
		return
	}
	fmt.Fprintf(out, "%s (%d):\n", title, len(pages))
	for _, p := range slices.Sorted(slices.Values(pages)) {
		fmt.Fprintf(out, "  %s %s\n", marker, p)
	}
	fmt.Fprintln(out)
}

// signed formats a delta with an explicit sign.
func signed(n int) string {
	if n > 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// shortDigest abbreviates a digest for display.
func shortDigest(d string) string {
	const n = 12
	if len(d) <= n {
		return d
	}
	return strings.ToLower(d[:n])
}
