package datastore

import (
	"context"
	"time"

	"github.com/NicolasHaas/nforce/pkg/model"
)

type DataProviderFactory interface {
	NonTx() DataStore
	Tx(context.Context) (DataStoreTx, error)
	// Close releases the underlying database. Providers handed out earlier
	// are unusable afterwards.
	Close() error
}

type DataStoreTx interface {
	DataStore
	TokenTransactionProvider
	Rollback() error
	Commit() error
}

// DataStore defines the persistence interface for the ban ledger.
// Implementations include the default SQLite store and an in-memory store
// for tests.
type DataStore interface {
	ConfigReadProvider

	BanReadProvider
	BanWriteProvider

	TokenReadProvider
	TokenWriteProvider
}

// Compile-time check: *ProviderFactory implements DataProviderFactory.
var _ DataProviderFactory = (*ProviderFactory)(nil)

type ConfigReadProvider interface {
	ZeroTime() time.Time
	Close() error
}

type BanReadProvider interface {
	// GetBan returns the current ban for a player, or (nil, nil) when the
	// player is not banned.
	GetBan(playerID string) (*model.BanRecord, error)
	// ListRecent returns up to limit records, newest first.
	ListRecent(limit int) ([]model.BanRecord, error)
	// TopModerators returns up to limit leaderboard rows ordered by ban
	// count descending, moderator name ascending on ties.
	TopModerators(limit int) ([]model.ModeratorCount, error)
}

type BanWriteProvider interface {
	// UpsertBan inserts a record or overwrites the mutable fields of the
	// existing record for the same PlayerID, refreshing UpdatedAt.
	UpsertBan(rec *model.BanRecord) error
	// DeleteBan removes a player's record. The bool reports whether a row
	// was actually deleted, distinguishing "unbanned" from "was not banned".
	DeleteBan(playerID string) (bool, error)
}

type TokenReadProvider interface {
	HasTokens() (bool, error)
}

type TokenWriteProvider interface {
	CreateToken(hash string) error
}

type TokenTransactionProvider interface {
	// ValidateToken checks the hash and increments the token's use count.
	// It settles the enclosing transaction itself: commit on success,
	// rollback otherwise. Callers must not Commit or Rollback afterwards.
	ValidateToken(hash string) error
}
