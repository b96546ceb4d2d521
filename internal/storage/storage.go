package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	pq "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"llmstxtgen/internal/config"
	"llmstxtgen/pkg/types"
)

// Website is a registered site whose llms.txt we generate and monitor.
type Website struct {
	ID              string
	URL             string
	Name            string
	CreatedAt       time.Time
	LastCrawledAt   sql.NullTime
	LastGeneratedAt sql.NullTime
}

// Generation is one rendered llms.txt document.
type Generation struct {
	ID          string
	WebsiteID   string
	Content     string
	PageCount   int
	GeneratedAt time.Time
}

// Change records a difference detected between two crawls of a site.
type Change struct {
	ID         string
	WebsiteID  string
	ChangeType string
	PageURL    string
	Detail     string
	DetectedAt time.Time
}

// Change types written to the change log.
const (
	ChangeNewPage     = "new_page"
	ChangeUpdatedPage = "updated_page"
	ChangeRemovedPage = "removed_page"
)

// Store persists websites, crawled pages, generated documents, and the
// change log in a SQL database. Both postgres and sqlite are supported.
type Store struct {
	db          *sql.DB
	driver      string
	autoMigrate bool
}

// New opens the database described by cfg and optionally applies the schema.
func New(cfg config.SQLConfig) (*Store, error) {
	if cfg.Driver == "" || cfg.DSN == "" {
		return nil, errors.New("sql config missing driver or dsn")
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open sql connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		if shouldAttemptCreateDatabase(cfg.Driver, err) {
			_ = db.Close()
			if err := createDatabase(ctx, cfg); err != nil {
				return nil, err
			}
			db, err = sql.Open(cfg.Driver, cfg.DSN)
			if err != nil {
				return nil, fmt.Errorf("open sql connection: %w", err)
			}
			if err := db.PingContext(ctx); err != nil {
				return nil, fmt.Errorf("ping sql connection: %w", err)
			}
		} else {
			return nil, fmt.Errorf("ping sql connection: %w", err)
		}
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime.Duration > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime.Duration)
	}
	store := &Store{
		db:          db,
		driver:      cfg.Driver,
		autoMigrate: cfg.AutoMigrate,
	}
	if cfg.AutoMigrate {
		if err := store.ensureSchema(context.Background()); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// rebind converts $n placeholders to ? for drivers that do not understand
// postgres-style numbering.
func (s *Store) rebind(query string) string {
	if s.driver == "postgres" {
		return query
	}
	var sb strings.Builder
	for i := 0; i < len(query); i++ {
		if query[i] != '$' {
			sb.WriteByte(query[i])
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j == i+1 {
			sb.WriteByte('$')
			continue
		}
		sb.WriteByte('?')
		i = j - 1
	}
	return sb.String()
}

// UpsertWebsite registers a website, returning the stored row. Existing rows
// keyed on URL are reused.
func (s *Store) UpsertWebsite(ctx context.Context, siteURL, name string) (*Website, error) {
	existing, err := s.WebsiteByURL(ctx, siteURL)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		if name != "" && name != existing.Name {
			query := s.rebind(`UPDATE websites SET name = $1 WHERE id = $2`)
			if _, err := s.db.ExecContext(ctx, query, name, existing.ID); err != nil {
				return nil, fmt.Errorf("update website: %w", err)
			}
			existing.Name = name
		}
		return existing, nil
	}

	site := &Website{
		ID:        uuid.NewString(),
		URL:       siteURL,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	query := s.rebind(`INSERT INTO websites (id, url, name, created_at) VALUES ($1,$2,$3,$4)`)
	if _, err := s.exec(ctx, query, site.ID, site.URL, site.Name, site.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert website: %w", err)
	}
	return site, nil
}

// WebsiteByURL looks up a website by its seed URL.
func (s *Store) WebsiteByURL(ctx context.Context, siteURL string) (*Website, error) {
	query := s.rebind(`SELECT id, url, name, created_at, last_crawled_at, last_generated_at
        FROM websites WHERE url = $1`)
	return s.scanWebsite(s.db.QueryRowContext(ctx, query, siteURL))
}

// Website looks up a website by ID.
func (s *Store) Website(ctx context.Context, id string) (*Website, error) {
	query := s.rebind(`SELECT id, url, name, created_at, last_crawled_at, last_generated_at
        FROM websites WHERE id = $1`)
	return s.scanWebsite(s.db.QueryRowContext(ctx, query, id))
}

// Websites returns all registered sites, newest first.
func (s *Store) Websites(ctx context.Context) ([]*Website, error) {
	query := `SELECT id, url, name, created_at, last_crawled_at, last_generated_at
        FROM websites ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list websites: %w", err)
	}
	defer rows.Close()

	var sites []*Website
	for rows.Next() {
		var site Website
		if err := rows.Scan(&site.ID, &site.URL, &site.Name, &site.CreatedAt,
			&site.LastCrawledAt, &site.LastGeneratedAt); err != nil {
			return nil, fmt.Errorf("scan website: %w", err)
		}
		sites = append(sites, &site)
	}
	return sites, rows.Err()
}

func (s *Store) scanWebsite(row *sql.Row) (*Website, error) {
	var site Website
	if err := row.Scan(&site.ID, &site.URL, &site.Name, &site.CreatedAt,
		&site.LastCrawledAt, &site.LastGeneratedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan website: %w", err)
	}
	return &site, nil
}

// ReplacePages swaps the stored page set for a site with the latest crawl
// result and stamps last_crawled_at.
func (s *Store) ReplacePages(ctx context.Context, websiteID string, pages []*types.PageRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM pages WHERE website_id = $1`), websiteID); err != nil {
		return fmt.Errorf("clear pages: %w", err)
	}
	insert := s.rebind(`INSERT INTO pages
        (id, website_id, url, title, description, category, content_hash, depth, fetched_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`)
	for _, rec := range pages {
		desc := rec.BestDescription
		if desc == "" {
			desc = rec.Description
		}
		if _, err := tx.ExecContext(ctx, insert,
			uuid.NewString(), websiteID, rec.URL, rec.Title, desc, "", rec.ContentHash, rec.Depth, rec.FetchedAt,
		); err != nil {
			return fmt.Errorf("insert page: %w", err)
		}
	}
	stamp := s.rebind(`UPDATE websites SET last_crawled_at = $1 WHERE id = $2`)
	if _, err := tx.ExecContext(ctx, stamp, time.Now().UTC(), websiteID); err != nil {
		return fmt.Errorf("stamp crawl: %w", err)
	}
	return tx.Commit()
}

// StoredPage is the persisted slice of a crawled page used for monitoring.
type StoredPage struct {
	URL         string
	Title       string
	ContentHash string
}

// Pages returns the stored pages for a site.
func (s *Store) Pages(ctx context.Context, websiteID string) ([]StoredPage, error) {
	query := s.rebind(`SELECT url, title, content_hash FROM pages WHERE website_id = $1 ORDER BY url`)
	rows, err := s.db.QueryContext(ctx, query, websiteID)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []StoredPage
	for rows.Next() {
		var p StoredPage
		if err := rows.Scan(&p.URL, &p.Title, &p.ContentHash); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// SaveGeneration stores a rendered llms.txt document and stamps
// last_generated_at.
func (s *Store) SaveGeneration(ctx context.Context, websiteID, content string, pageCount int) (*Generation, error) {
	gen := &Generation{
		ID:          uuid.NewString(),
		WebsiteID:   websiteID,
		Content:     content,
		PageCount:   pageCount,
		GeneratedAt: time.Now().UTC(),
	}
	query := s.rebind(`INSERT INTO generations (id, website_id, content, page_count, generated_at)
        VALUES ($1,$2,$3,$4,$5)`)
	if _, err := s.exec(ctx, query, gen.ID, gen.WebsiteID, gen.Content, gen.PageCount, gen.GeneratedAt); err != nil {
		return nil, fmt.Errorf("insert generation: %w", err)
	}
	stamp := s.rebind(`UPDATE websites SET last_generated_at = $1 WHERE id = $2`)
	if _, err := s.db.ExecContext(ctx, stamp, gen.GeneratedAt, websiteID); err != nil {
		return nil, fmt.Errorf("stamp generation: %w", err)
	}
	return gen, nil
}

// LatestGeneration returns the most recent document for a site, or
// sql.ErrNoRows when none exists.
func (s *Store) LatestGeneration(ctx context.Context, websiteID string) (*Generation, error) {
	query := s.rebind(`SELECT id, website_id, content, page_count, generated_at
        FROM generations WHERE website_id = $1 ORDER BY generated_at DESC LIMIT 1`)
	var gen Generation
	err := s.db.QueryRowContext(ctx, query, websiteID).Scan(
		&gen.ID, &gen.WebsiteID, &gen.Content, &gen.PageCount, &gen.GeneratedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan generation: %w", err)
	}
	return &gen, nil
}

// LogChange appends an entry to the change log.
func (s *Store) LogChange(ctx context.Context, websiteID, changeType, pageURL, detail string) error {
	query := s.rebind(`INSERT INTO change_log (id, website_id, change_type, page_url, detail, detected_at)
        VALUES ($1,$2,$3,$4,$5,$6)`)
	if _, err := s.exec(ctx, query,
		uuid.NewString(), websiteID, changeType, pageURL, detail, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert change: %w", err)
	}
	return nil
}

// Changes returns the change log for a site, newest first, capped at limit.
func (s *Store) Changes(ctx context.Context, websiteID string, limit int) ([]Change, error) {
	if limit <= 0 {
		limit = 100
	}
	query := s.rebind(`SELECT id, website_id, change_type, page_url, detail, detected_at
        FROM change_log WHERE website_id = $1 ORDER BY detected_at DESC LIMIT ` + strconv.Itoa(limit))
	rows, err := s.db.QueryContext(ctx, query, websiteID)
	if err != nil {
		return nil, fmt.Errorf("list changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var c Change
		if err := rows.Scan(&c.ID, &c.WebsiteID, &c.ChangeType, &c.PageURL, &c.Detail, &c.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// exec runs a write, retrying once after applying the schema when the table
// is missing and auto-migration is on.
func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil && s.autoMigrate && isUndefinedTableErr(err) {
		if schemaErr := s.ensureSchema(ctx); schemaErr != nil {
			return nil, fmt.Errorf("ensure schema: %w", schemaErr)
		}
		return s.db.ExecContext(ctx, query, args...)
	}
	return res, err
}

// Close closes the underlying DB connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func shouldAttemptCreateDatabase(driver string, err error) bool {
	if !strings.EqualFold(driver, "postgres") {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "3D000"
	}
	return strings.Contains(strings.ToLower(err.Error()), "does not exist")
}

func createDatabase(ctx context.Context, cfg config.SQLConfig) error {
	parsed, err := url.Parse(cfg.DSN)
	if err != nil {
		return fmt.Errorf("parse dsn: %w", err)
	}
	dbName := strings.TrimPrefix(parsed.Path, "/")
	if dbName == "" {
		return errors.New("dsn missing database name")
	}
	if strings.EqualFold(dbName, "postgres") {
		return fmt.Errorf("target database %q cannot be auto-created", dbName)
	}
	parsed.Path = "/postgres"
	adminDB, err := sql.Open(cfg.Driver, parsed.String())
	if err != nil {
		return fmt.Errorf("connect admin database: %w", err)
	}
	defer adminDB.Close()
	if err := adminDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping admin database: %w", err)
	}
	stmt := fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(dbName))
	if _, err := adminDB.ExecContext(ctx, stmt); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "42P04" {
			return nil
		}
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	return nil
}

func isUndefinedTableErr(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "42P01"
	}
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "no such table") ||
		(strings.Contains(lower, "relation") && strings.Contains(lower, "does not exist"))
}
