package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NicolasHaas/nforce/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type baseProvider struct {
	DB
}

func (p *baseProvider) ZeroTime() time.Time {
	return time.Time{}
}

func (p *baseProvider) Close() error {
	return nil
}

type nonTxProvider struct {
	baseProvider
}

type txProvider struct {
	baseProvider
	tx *sql.Tx
}

func (c *txProvider) Rollback() error {
	return c.tx.Rollback()
}

func (c *txProvider) Commit() error {
	return c.tx.Commit()
}

// ProviderFactory provides database access for the ban ledger.
type ProviderFactory struct {
	DB *sql.DB
}

func (sf ProviderFactory) NonTx() DataStore {
	return &nonTxProvider{
		baseProvider: baseProvider{
			DB: sf.DB,
		},
	}
}

func (sf ProviderFactory) Tx(ctx context.Context) (DataStoreTx, error) {
	tx, err := sf.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &txProvider{
		baseProvider: baseProvider{
			DB: tx,
		},
		tx: tx,
	}, nil
}

// NewProviderFactory opens (or creates) a SQLite database and runs migrations.
func NewProviderFactory(dbPath string) (*ProviderFactory, error) {
	DB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("datastore: open DB: %w", err)
	}

	ctx := context.Background()

	// Enable WAL mode for better concurrent read performance
	if _, err := DB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = DB.Close()
		return nil, fmt.Errorf("datastore: set WAL: %w", err)
	}
	// Set busy timeout to avoid "database is locked" under concurrency
	if _, err := DB.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = DB.Close()
		return nil, fmt.Errorf("datastore: set busy_timeout: %w", err)
	}

	s := &ProviderFactory{DB: DB}
	if err := s.migrate(); err != nil {
		_ = DB.Close()
		return nil, fmt.Errorf("datastore: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *ProviderFactory) Close() error {
	return s.DB.Close()
}

func (s *ProviderFactory) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS banned_players (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id    TEXT    NOT NULL UNIQUE CHECK(length(player_id) > 0),
		username     TEXT    NOT NULL DEFAULT '',
		reason       TEXT    NOT NULL CHECK(length(reason) > 0),
		banned_by    TEXT    NOT NULL DEFAULT '',
		banned_by_id TEXT    NOT NULL DEFAULT '',
		created_at   TEXT    NOT NULL DEFAULT (datetime('now')),
		updated_at   TEXT    NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS api_tokens (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		hash       TEXT    NOT NULL UNIQUE,
		use_count  INTEGER NOT NULL DEFAULT 0,
		created_at TEXT    NOT NULL DEFAULT (datetime('now'))
	);
	`
	ctx := context.Background()
	if err := s.ensureSchemaMigrations(ctx); err != nil {
		return err
	}
	currentVersion, err := s.getSchemaVersion(ctx)
	if err != nil {
		return err
	}

	migrations := []struct {
		version      int
		statements   []string
		ignoreErrors bool
	}{
		{
			version:    1,
			statements: []string{schema},
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.statements {
			if err := s.execMigration(ctx, stmt, m.ignoreErrors); err != nil {
				return err
			}
		}
		if err := s.setSchemaVersion(ctx, m.version); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProviderFactory) ensureSchemaMigrations(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)"); err != nil {
		return fmt.Errorf("datastore: create schema_migrations: %w", err)
	}
	var count int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM schema_migrations").Scan(&count); err != nil {
		return fmt.Errorf("datastore: check schema_migrations: %w", err)
	}
	if count == 0 {
		if _, err := s.DB.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (0)"); err != nil {
			return fmt.Errorf("datastore: init schema_migrations: %w", err)
		}
	}
	return nil
}

func (s *ProviderFactory) getSchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.DB.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("datastore: read schema version: %w", err)
	}
	return version, nil
}

func (s *ProviderFactory) setSchemaVersion(ctx context.Context, version int) error {
	if _, err := s.DB.ExecContext(ctx, "UPDATE schema_migrations SET version = ?", version); err != nil {
		return fmt.Errorf("datastore: update schema version: %w", err)
	}
	return nil
}

func (s *ProviderFactory) execMigration(ctx context.Context, stmt string, ignoreErrors bool) error {
	if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
		if ignoreErrors {
			return nil
		}
		return fmt.Errorf("datastore: migrate: %w", err)
	}
	return nil
}

func formatDBTime(t time.Time) string {
	return t.UTC().Format(dbTimeLayout)
}

func parseDBTime(value string) (time.Time, error) {
	return time.ParseInLocation(dbTimeLayout, value, time.UTC)
}

// ---- Bans ----

// UpsertBan inserts a ban record, or overwrites the mutable fields of the
// existing record for the same player. created_at is preserved on conflict;
// updated_at always refreshes.
func (s *baseProvider) UpsertBan(rec *model.BanRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("datastore: upsert ban: %w", err)
	}

	now := time.Now().UTC().Truncate(time.Second)
	_, err := s.ExecContext(context.Background(), `
		INSERT INTO banned_players (player_id, username, reason, banned_by, banned_by_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(player_id) DO UPDATE SET
			username     = excluded.username,
			reason       = excluded.reason,
			banned_by    = excluded.banned_by,
			banned_by_id = excluded.banned_by_id,
			updated_at   = excluded.updated_at`,
		rec.PlayerID, rec.Username, rec.Reason, rec.Moderator, rec.ModeratorID,
		formatDBTime(now), formatDBTime(now))
	if err != nil {
		return fmt.Errorf("datastore: upsert ban: %w", err)
	}

	// Read back the server-assigned fields; created_at survives conflicts
	// so the caller sees the original ban date on a re-ban.
	var created string
	err = s.QueryRowContext(context.Background(),
		"SELECT id, created_at FROM banned_players WHERE player_id = ?",
		rec.PlayerID).Scan(&rec.ID, &created)
	if err != nil {
		return fmt.Errorf("datastore: upsert ban: %w", err)
	}
	createdAt, err := parseDBTime(created)
	if err != nil {
		return fmt.Errorf("datastore: upsert ban: %w", err)
	}
	rec.CreatedAt = createdAt
	rec.UpdatedAt = now
	return nil
}

// DeleteBan removes a player's ban record. Returns whether a row was deleted.
func (s *baseProvider) DeleteBan(playerID string) (bool, error) {
	res, err := s.ExecContext(context.Background(), "DELETE FROM banned_players WHERE player_id = ?", playerID)
	if err != nil {
		return false, fmt.Errorf("datastore: delete ban: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("datastore: delete ban: %w", err)
	}
	return affected > 0, nil
}

// GetBan retrieves the current ban for a player, or (nil, nil) when absent.
func (s *baseProvider) GetBan(playerID string) (*model.BanRecord, error) {
	rec := &model.BanRecord{}
	var createdAt, updatedAt string
	err := s.QueryRowContext(context.Background(), `
		SELECT id, player_id, username, reason, banned_by, banned_by_id, created_at, updated_at
		FROM banned_players WHERE player_id = ?`, playerID).
		Scan(&rec.ID, &rec.PlayerID, &rec.Username, &rec.Reason, &rec.Moderator, &rec.ModeratorID, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: get ban: %w", err)
	}
	if rec.CreatedAt, err = parseDBTime(createdAt); err != nil {
		return nil, fmt.Errorf("datastore: get ban: %w", err)
	}
	if rec.UpdatedAt, err = parseDBTime(updatedAt); err != nil {
		return nil, fmt.Errorf("datastore: get ban: %w", err)
	}
	return rec, nil
}

// ListRecent returns up to limit ban records, newest first.
func (s *baseProvider) ListRecent(limit int) ([]model.BanRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.QueryContext(context.Background(), `
		SELECT id, player_id, username, reason, banned_by, banned_by_id, created_at, updated_at
		FROM banned_players ORDER BY updated_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("datastore: list bans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.BanRecord
	for rows.Next() {
		var rec model.BanRecord
		var createdAt, updatedAt string
		if err := rows.Scan(&rec.ID, &rec.PlayerID, &rec.Username, &rec.Reason, &rec.Moderator, &rec.ModeratorID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("datastore: scan ban: %w", err)
		}
		if rec.CreatedAt, err = parseDBTime(createdAt); err != nil {
			return nil, fmt.Errorf("datastore: scan ban: %w", err)
		}
		if rec.UpdatedAt, err = parseDBTime(updatedAt); err != nil {
			return nil, fmt.Errorf("datastore: scan ban: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// TopModerators returns the moderator leaderboard, ordered by ban count
// descending. Ties break by moderator name ascending so output is stable.
func (s *baseProvider) TopModerators(limit int) ([]model.ModeratorCount, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.QueryContext(context.Background(), `
		SELECT banned_by, COUNT(*) AS ban_count
		FROM banned_players GROUP BY banned_by
		ORDER BY ban_count DESC, banned_by ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("datastore: top moderators: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []model.ModeratorCount
	for rows.Next() {
		var mc model.ModeratorCount
		if err := rows.Scan(&mc.Moderator, &mc.Bans); err != nil {
			return nil, fmt.Errorf("datastore: scan moderator count: %w", err)
		}
		counts = append(counts, mc)
	}
	return counts, rows.Err()
}

// ---- API tokens ----

// HasTokens returns true if any API tokens exist in the database.
func (s *baseProvider) HasTokens() (bool, error) {
	var count int
	err := s.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM api_tokens").Scan(&count)
	if err != nil {
		return false, fmt.Errorf("datastore: count tokens: %w", err)
	}
	return count > 0, nil
}

// CreateToken stores a new API token (hash only).
func (s *baseProvider) CreateToken(hash string) error {
	_, err := s.ExecContext(context.Background(), "INSERT INTO api_tokens (hash) VALUES (?)", hash)
	if err != nil {
		return fmt.Errorf("datastore: create token: %w", err)
	}
	return nil
}

// ValidateToken checks if a token hash is known and increments its use
// count atomically.
func (s *txProvider) ValidateToken(hash string) error {
	ctx := context.Background()

	defer func() { _ = s.Rollback() }()

	var id int64
	err := s.QueryRowContext(ctx, "SELECT id FROM api_tokens WHERE hash = ?", hash).Scan(&id)
	if err == sql.ErrNoRows {
		return fmt.Errorf("datastore: invalid token")
	}
	if err != nil {
		return fmt.Errorf("datastore: validate token: %w", err)
	}

	if _, err := s.ExecContext(ctx, "UPDATE api_tokens SET use_count = use_count + 1 WHERE id = ?", id); err != nil {
		return fmt.Errorf("datastore: increment use: %w", err)
	}

	if err := s.Commit(); err != nil {
		return fmt.Errorf("datastore: commit: %w", err)
	}

	return nil
}
