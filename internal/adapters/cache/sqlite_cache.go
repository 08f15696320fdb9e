package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// SQLiteCache is a SQLite implementation of the VerdictCache interface
type SQLiteCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteCache creates a new SQLite verdict cache
func NewSQLiteCache(dbPath string, logger *zap.Logger, cleanupFreq time.Duration) (*SQLiteCache, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			message_id TEXT PRIMARY KEY,
			tier TEXT,
			summary TEXT,
			deadlines TEXT,
			links TEXT,
			model TEXT,
			analyzed_at TIMESTAMP,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Index on expires_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_expires_at ON verdict_cache(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	cache := &SQLiteCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached verdict for a message
func (c *SQLiteCache) Get(messageID string) (*core.Verdict, bool) {
	var tier, summary, deadlines, links, model, analyzedAt string

	err := c.db.QueryRow(`
		SELECT tier, summary, deadlines, links, model, analyzed_at
		FROM verdict_cache
		WHERE message_id = ? AND expires_at > datetime('now')
	`, messageID).Scan(&tier, &summary, &deadlines, &links, &model, &analyzedAt)

	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Error("Failed to query cache", zap.Error(err), zap.String("message_id", messageID))
		}
		return nil, false
	}

	verdict := &core.Verdict{
		Tier:      core.Tier(tier),
		Summary:   summary,
		Deadlines: []string{},
		Links:     []string{},
		ModelUsed: model,
	}

	if !verdict.Tier.IsValid() {
		return nil, false
	}

	if ts, err := time.Parse(time.RFC3339, analyzedAt); err == nil {
		verdict.AnalyzedAt = ts
	}
	if err := json.Unmarshal([]byte(deadlines), &verdict.Deadlines); err != nil {
		verdict.Deadlines = []string{}
	}
	if err := json.Unmarshal([]byte(links), &verdict.Links); err != nil {
		verdict.Links = []string{}
	}

	return verdict, true
}

// Set stores a verdict for a message
func (c *SQLiteCache) Set(messageID string, verdict *core.Verdict, ttl time.Duration) {
	deadlines, _ := json.Marshal(verdict.Deadlines)
	links, _ := json.Marshal(verdict.Links)
	expiresAt := time.Now().Add(ttl)

	_, err := c.db.Exec(`
		INSERT OR REPLACE INTO verdict_cache (message_id, tier, summary, deadlines, links, model, analyzed_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, messageID, string(verdict.Tier), verdict.Summary, string(deadlines), string(links),
		verdict.ModelUsed, verdict.AnalyzedAt.Format(time.RFC3339), expiresAt.Format(time.RFC3339))

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("message_id", messageID))
	}
}

// Cleanup removes expired entries
func (c *SQLiteCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE expires_at <= datetime('now')
	`)

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		c.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		c.logger.Debug("Cleaned up expired cache entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (c *SQLiteCache) startCleanupTask() {
	ticker := time.NewTicker(c.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				c.logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-c.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task and closes the database connection
func (c *SQLiteCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
