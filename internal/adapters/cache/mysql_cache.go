package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/llm-mail-triage/internal/core"
	"go.uber.org/zap"
)

// MySQLCache is a MySQL implementation of the VerdictCache interface
type MySQLCache struct {
	db          *sql.DB
	logger      *zap.Logger
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLCache creates a new MySQL verdict cache
func NewMySQLCache(dsn string, logger *zap.Logger, cleanupFreq time.Duration) (*MySQLCache, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS verdict_cache (
			message_id VARCHAR(255) PRIMARY KEY,
			tier VARCHAR(32),
			summary TEXT,
			deadlines TEXT,
			links TEXT,
			model VARCHAR(255),
			analyzed_at TIMESTAMP NULL,
			expires_at TIMESTAMP NULL,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	cache := &MySQLCache{
		db:          db,
		logger:      logger,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	go cache.startCleanupTask()

	return cache, nil
}

// Get retrieves a cached verdict for a message
func (c *MySQLCache) Get(messageID string) (*core.Verdict, bool) {
	var tier, summary, deadlines, links, model string
	var analyzedAt time.Time

	err := c.db.QueryRow(`
		SELECT tier, summary, deadlines, links, model, analyzed_at
		FROM verdict_cache
		WHERE message_id = ? AND expires_at > NOW()
	`, messageID).Scan(&tier, &summary, &deadlines, &links, &model, &analyzedAt)

	if err != nil {
		if err != sql.ErrNoRows {
			c.logger.Error("Failed to query cache", zap.Error(err), zap.String("message_id", messageID))
		}
		return nil, false
	}

	verdict := &core.Verdict{
		Tier:       core.Tier(tier),
		Summary:    summary,
		Deadlines:  []string{},
		Links:      []string{},
		ModelUsed:  model,
		AnalyzedAt: analyzedAt,
	}

	if !verdict.Tier.IsValid() {
		return nil, false
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
func (c *MySQLCache) Set(messageID string, verdict *core.Verdict, ttl time.Duration) {
	deadlines, _ := json.Marshal(verdict.Deadlines)
	links, _ := json.Marshal(verdict.Links)
	expiresAt := time.Now().Add(ttl)

	_, err := c.db.Exec(`
		INSERT INTO verdict_cache (message_id, tier, summary, deadlines, links, model, analyzed_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			tier = VALUES(tier),
			summary = VALUES(summary),
			deadlines = VALUES(deadlines),
			links = VALUES(links),
			model = VALUES(model),
			analyzed_at = VALUES(analyzed_at),
			expires_at = VALUES(expires_at)
	`, messageID, string(verdict.Tier), verdict.Summary, string(deadlines), string(links),
		verdict.ModelUsed, verdict.AnalyzedAt, expiresAt)

	if err != nil {
		c.logger.Error("Failed to insert cache entry", zap.Error(err), zap.String("message_id", messageID))
	}
}

// Cleanup removes expired entries
func (c *MySQLCache) Cleanup(ctx context.Context) error {
	result, err := c.db.ExecContext(ctx, `
		DELETE FROM verdict_cache
		WHERE expires_at <= NOW()
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
func (c *MySQLCache) startCleanupTask() {
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
func (c *MySQLCache) Stop() {
	close(c.stopCh)
	if err := c.db.Close(); err != nil {
		c.logger.Error("Failed to close MySQL connection", zap.Error(err))
	}
}
