package storage

import (
	"context"
	"fmt"
	"time"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS websites (
        id TEXT PRIMARY KEY,
        url TEXT UNIQUE NOT NULL,
        name TEXT,
        created_at TIMESTAMPTZ NOT NULL,
        last_crawled_at TIMESTAMPTZ,
        last_generated_at TIMESTAMPTZ
    )`,
	`CREATE TABLE IF NOT EXISTS pages (
        id TEXT PRIMARY KEY,
        website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
        url TEXT NOT NULL,
        title TEXT,
        description TEXT,
        category TEXT,
        content_hash TEXT,
        depth INT,
        fetched_at TIMESTAMPTZ
    )`,
	`CREATE INDEX IF NOT EXISTS idx_pages_website ON pages (website_id)`,
	`CREATE TABLE IF NOT EXISTS generations (
        id TEXT PRIMARY KEY,
        website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
        content TEXT NOT NULL,
        page_count INT,
        generated_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_generations_website ON generations (website_id, generated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS change_log (
        id TEXT PRIMARY KEY,
        website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
        change_type TEXT NOT NULL,
        page_url TEXT,
        detail TEXT,
        detected_at TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_change_log_website ON change_log (website_id, detected_at DESC)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS websites (
        id TEXT PRIMARY KEY,
        url TEXT UNIQUE NOT NULL,
        name TEXT,
        created_at TIMESTAMP NOT NULL,
        last_crawled_at TIMESTAMP,
        last_generated_at TIMESTAMP
    )`,
	`CREATE TABLE IF NOT EXISTS pages (
        id TEXT PRIMARY KEY,
        website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
        url TEXT NOT NULL,
        title TEXT,
        description TEXT,
        category TEXT,
        content_hash TEXT,
        depth INTEGER,
        fetched_at TIMESTAMP
    )`,
	`CREATE INDEX IF NOT EXISTS idx_pages_website ON pages (website_id)`,
	`CREATE TABLE IF NOT EXISTS generations (
        id TEXT PRIMARY KEY,
        website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
        content TEXT NOT NULL,
        page_count INTEGER,
        generated_at TIMESTAMP NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_generations_website ON generations (website_id, generated_at DESC)`,
	`CREATE TABLE IF NOT EXISTS change_log (
        id TEXT PRIMARY KEY,
        website_id TEXT NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
        change_type TEXT NOT NULL,
        page_url TEXT,
        detail TEXT,
        detected_at TIMESTAMP NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_change_log_website ON change_log (website_id, detected_at DESC)`,
}

func (s *Store) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil || !s.autoMigrate {
		return nil
	}
	schemaCtx := ctx
	if schemaCtx == nil || schemaCtx.Err() != nil {
		schemaCtx = context.Background()
	}
	schemaCtx, cancel := context.WithTimeout(schemaCtx, 10*time.Second)
	defer cancel()

	stmts := sqliteSchema
	if s.driver == "postgres" {
		stmts = postgresSchema
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(schemaCtx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
