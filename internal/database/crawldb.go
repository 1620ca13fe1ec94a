package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitecrawl/internal/model"
)

// DBFileName is the name of the SQLite file inside the database directory.
const DBFileName = "sitecrawl.db"

// CrawlDB provides SQLite-based storage for crawl reports.
//
// Design decision: We use a single database file for all seeds rather than
// separate files per site. This keeps history queries and backup/restore
// operations simple.
type CrawlDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	// This is recommended for most use cases.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in the specified directory.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a new file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(context.Background(), "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the path of the database file.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl of a seed
	CREATE TABLE IF NOT EXISTS crawl_runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		seed TEXT NOT NULL,
		host TEXT NOT NULL,
		page_limit INTEGER NOT NULL,
		workers INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		pages_crawled INTEGER NOT NULL,
		link_count INTEGER NOT NULL,
		digest TEXT,
		stats_json TEXT NOT NULL,
		performed_steps TEXT,
		error_message TEXT,
		cancelled INTEGER NOT NULL DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_seed ON crawl_runs(seed);
	CREATE INDEX IF NOT EXISTS idx_runs_timestamp ON crawl_runs(timestamp);

	-- Pages fetched during a run
	CREATE TABLE IF NOT EXISTS crawl_pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES crawl_runs(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		link_count INTEGER NOT NULL,
		UNIQUE(run_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_run ON crawl_pages(run_id);

	-- Links found on a page
	CREATE TABLE IF NOT EXISTS crawl_links (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		page_id INTEGER NOT NULL REFERENCES crawl_pages(id) ON DELETE CASCADE,
		target TEXT NOT NULL,
		UNIQUE(page_id, target)
	);

	CREATE INDEX IF NOT EXISTS idx_links_page ON crawl_links(page_id);
	CREATE INDEX IF NOT EXISTS idx_links_target ON crawl_links(target);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveCrawlReport stores a crawl report with all of its pages and links in
// one transaction and returns the id of the new run.
func (cdb *CrawlDB) SaveCrawlReport(ctx context.Context, report *model.CrawlReport) (int64, error) {
	if report == nil {
		return 0, errors.New("failed to save crawl report: report is nil")
	}

	statsJSON, err := json.Marshal(report.Stats)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize stats: %w", err)
	}
	stepsJSON, err := json.Marshal(report.PerformedSteps)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize performed steps: %w", err)
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	result, err := tx.ExecContext(ctx, `
	INSERT INTO crawl_runs (seed, host, page_limit, workers, started_at, finished_at,
		pages_crawled, link_count, digest, stats_json, performed_steps, error_message, cancelled)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		report.Seed,
		report.Host,
		report.PageLimit,
		report.Workers,
		formatTimestamp(report.StartedAt),
		formatTimestamp(report.FinishedAt),
		report.Pages.Len(),
		report.Pages.LinkCount(),
		report.Digest,
		string(statsJSON),
		string(stepsJSON),
		report.ErrorMessage,
		report.Cancelled,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert crawl run: %w", err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get crawl run id: %w", err)
	}

	pageStmt, err := tx.PrepareContext(ctx, `INSERT INTO crawl_pages (run_id, url, link_count) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare page insert: %w", err)
	}
	defer pageStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, `INSERT INTO crawl_links (page_id, target) VALUES (?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare link insert: %w", err)
	}
	defer linkStmt.Close()

	for _, page := range report.Pages.URLs() {
		links := report.Pages[page]
		res, err := pageStmt.ExecContext(ctx, runID, page, links.Len())
		if err != nil {
			return 0, fmt.Errorf("failed to insert page %s: %w", page, err)
		}
		pageID, err := res.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("failed to get page id: %w", err)
		}
		for _, link := range links.Sorted() {
			if _, err := linkStmt.ExecContext(ctx, pageID, link); err != nil {
				return 0, fmt.Errorf("failed to insert link %s: %w", link, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit crawl report: %w", err)
	}
	return runID, nil
}

// GetLatestCrawlReport retrieves the most recent crawl report for a seed.
// It returns nil if the seed has never been crawled.
func (cdb *CrawlDB) GetLatestCrawlReport(ctx context.Context, seed string) (*model.CrawlReport, error) {
	var id int64
	err := cdb.db.QueryRowContext(ctx, `
	SELECT id FROM crawl_runs
	WHERE seed = ?
	ORDER BY id DESC
	LIMIT 1
	`, seed).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest crawl run: %w", err)
	}
	return cdb.GetCrawlReportByID(ctx, id)
}

// GetCrawlReportByID retrieves a crawl report, including all pages and
// links, by its run id. It returns nil if no such run exists.
func (cdb *CrawlDB) GetCrawlReportByID(ctx context.Context, id int64) (*model.CrawlReport, error) {
	var (
		report     model.CrawlReport
		startedAt  string
		finishedAt string
		digest     sql.NullString
		statsJSON  string
		stepsJSON  sql.NullString
		errMessage sql.NullString
	)

	err := cdb.db.QueryRowContext(ctx, `
	SELECT seed, host, page_limit, workers, started_at, finished_at, digest,
		stats_json, performed_steps, error_message, cancelled
	FROM crawl_runs
	WHERE id = ?
	`, id).Scan(
		&report.Seed,
		&report.Host,
		&report.PageLimit,
		&report.Workers,
		&startedAt,
		&finishedAt,
		&digest,
		&statsJSON,
		&stepsJSON,
		&errMessage,
		&report.Cancelled,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl run: %w", err)
	}

	report.StartedAt = parseTimestamp(startedAt)
	report.FinishedAt = parseTimestamp(finishedAt)
	report.Digest = digest.String
	report.ErrorMessage = errMessage.String
	if err := json.Unmarshal([]byte(statsJSON), &report.Stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}
	if stepsJSON.Valid && stepsJSON.String != "" {
		if err := json.Unmarshal([]byte(stepsJSON.String), &report.PerformedSteps); err != nil {
			return nil, fmt.Errorf("failed to parse performed steps: %w", err)
		}
	}

	pages, err := cdb.loadPages(ctx, id)
	if err != nil {
		return nil, err
	}
	report.Pages = pages

	return &report, nil
}

// loadPages rebuilds the ResultMap of a run.
// Pages without links are kept, which is why the query starts from
// crawl_pages and left-joins the links.
func (cdb *CrawlDB) loadPages(ctx context.Context, runID int64) (model.ResultMap, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT p.url, l.target
	FROM crawl_pages p
	LEFT JOIN crawl_links l ON l.page_id = p.id
	WHERE p.run_id = ?
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	pages := model.NewResultMap()
	for rows.Next() {
		var (
			page   string
			target sql.NullString
		)
		if err := rows.Scan(&page, &target); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		links, ok := pages[page]
		if !ok {
			links = model.NewLinkSet()
			pages[page] = links
		}
		if target.Valid {
			links.Add(target.String)
		}
	}

	return pages, rows.Err()
}

// GetPageLinks returns the links recorded for one page of a run.
// The boolean is false if the page was not fetched in that run.
func (cdb *CrawlDB) GetPageLinks(ctx context.Context, runID int64, pageURL string) (model.LinkSet, bool, error) {
	var pageID int64
	err := cdb.db.QueryRowContext(ctx, `
	SELECT id FROM crawl_pages WHERE run_id = ? AND url = ?
	`, runID, pageURL).Scan(&pageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get page: %w", err)
	}

	rows, err := cdb.db.QueryContext(ctx, `SELECT target FROM crawl_links WHERE page_id = ?`, pageID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	links := model.NewLinkSet()
	for rows.Next() {
		var target string
		if err := rows.Scan(&target); err != nil {
			return nil, false, fmt.Errorf("failed to scan link: %w", err)
		}
		links.Add(target)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return links, true, nil
}

// ListCrawledSeeds returns every seed that has at least one stored run.
func (cdb *CrawlDB) ListCrawledSeeds(ctx context.Context) ([]string, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT DISTINCT seed FROM crawl_runs
	ORDER BY seed
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list seeds: %w", err)
	}
	defer rows.Close()

	var seeds []string
	for rows.Next() {
		var seed string
		if err := rows.Scan(&seed); err != nil {
			return nil, fmt.Errorf("failed to scan seed: %w", err)
		}
		seeds = append(seeds, seed)
	}

	return seeds, rows.Err()
}

// CrawlRunMetadata contains summary information about a crawl run.
// This is used for displaying crawl history without loading pages and links.
type CrawlRunMetadata struct {
	// ID is the unique identifier of the run in the database.
	ID int64

	// Seed is the crawled seed URL.
	Seed string

	// StartedAt is when the crawl started.
	StartedAt time.Time

	// PagesCrawled is the number of pages in the run's result.
	PagesCrawled int

	// LinkCount is the total number of links across all pages.
	LinkCount int

	// Digest is the link-graph fingerprint of the run.
	Digest string

	// Cancelled is true if the crawl was interrupted.
	Cancelled bool
}

// GetCrawlHistory retrieves run metadata for a seed, newest first.
func (cdb *CrawlDB) GetCrawlHistory(ctx context.Context, seed string) ([]CrawlRunMetadata, error) {
	rows, err := cdb.db.QueryContext(ctx, `
	SELECT id, seed, started_at, pages_crawled, link_count, digest, cancelled
	FROM crawl_runs
	WHERE seed = ?
	ORDER BY id DESC
	`, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl history: %w", err)
	}
	defer rows.Close()

	var results []CrawlRunMetadata
	for rows.Next() {
		var (
			meta      CrawlRunMetadata
			startedAt string
			digest    sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Seed, &startedAt, &meta.PagesCrawled,
			&meta.LinkCount, &digest, &meta.Cancelled); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.StartedAt = parseTimestamp(startedAt)
		meta.Digest = digest.String
		results = append(results, meta)
	}

	return results, rows.Err()
}

// formatTimestamp stores times in UTC with full precision so that runs of
// the same second still sort and compare correctly.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,          // Format written by formatTimestamp
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, it returns the zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
