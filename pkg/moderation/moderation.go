// Package moderation implements the ban-ledger operations shared by the
// chat and HTTP surfaces.
package moderation

import (
	"context"
	"fmt"

	"github.com/NicolasHaas/nforce/pkg/datastore"
	"github.com/NicolasHaas/nforce/pkg/model"
)

const (
	DefaultListLimit = 10
	DefaultTopLimit  = 5
)

// NameResolver resolves a player ID to a display name, degrading to a
// placeholder on failure. It never errors.
type NameResolver interface {
	Username(ctx context.Context, playerID string) string
}

// Adapter mediates moderation operations against the ledger store.
// Both the Discord bot and the REST API funnel through it.
type Adapter struct {
	store    datastore.DataProviderFactory
	resolver NameResolver
	allowed  map[string]struct{} // chat role IDs permitted to moderate

	// OnBanRecorded / OnUnbanRecorded, when set, fire after a successful
	// write. Used to feed metrics from whichever surface wired them.
	OnBanRecorded   func()
	OnUnbanRecorded func()
}

// New creates an Adapter. modRoleIDs is the allow-list of chat role IDs
// whose holders may run moderation commands.
func New(store datastore.DataProviderFactory, resolver NameResolver, modRoleIDs []string) *Adapter {
	allowed := make(map[string]struct{}, len(modRoleIDs))
	for _, id := range modRoleIDs {
		if id != "" {
			allowed[id] = struct{}{}
		}
	}
	return &Adapter{
		store:    store,
		resolver: resolver,
		allowed:  allowed,
	}
}

// Authorized reports whether the actor holds at least one allow-listed role.
func (a *Adapter) Authorized(actor model.Actor) bool {
	for _, id := range actor.RoleIDs {
		if _, ok := a.allowed[id]; ok {
			return true
		}
	}
	return false
}

// Ban records (or overwrites) a ban. When username is empty it is resolved
// via the identity resolver; resolution failure degrades to a placeholder
// and never blocks the write. Returns the stored record.
func (a *Adapter) Ban(ctx context.Context, actor model.Actor, playerID, reason, username string) (*model.BanRecord, error) {
	rec := &model.BanRecord{
		PlayerID:    playerID,
		Username:    username,
		Reason:      reason,
		Moderator:   actor.Username,
		ModeratorID: actor.ID,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if rec.Username == "" {
		rec.Username = a.resolver.Username(ctx, playerID)
	}
	if err := a.store.NonTx().UpsertBan(rec); err != nil {
		return nil, fmt.Errorf("moderation: ban %s: %w", playerID, err)
	}
	if a.OnBanRecorded != nil {
		a.OnBanRecorded()
	}
	return rec, nil
}

// Unban deletes a player's ban record. The bool reports whether a record
// existed; deleting a never-banned player is not an error.
func (a *Adapter) Unban(_ context.Context, playerID string) (bool, error) {
	if playerID == "" {
		return false, model.ErrPlayerIDRequired
	}
	deleted, err := a.store.NonTx().DeleteBan(playerID)
	if err != nil {
		return false, fmt.Errorf("moderation: unban %s: %w", playerID, err)
	}
	if deleted && a.OnUnbanRecorded != nil {
		a.OnUnbanRecorded()
	}
	return deleted, nil
}

// CheckBan returns the current ban for a player, or (nil, nil) when the
// player is not banned.
func (a *Adapter) CheckBan(_ context.Context, playerID string) (*model.BanRecord, error) {
	if playerID == "" {
		return nil, model.ErrPlayerIDRequired
	}
	rec, err := a.store.NonTx().GetBan(playerID)
	if err != nil {
		return nil, fmt.Errorf("moderation: check %s: %w", playerID, err)
	}
	return rec, nil
}

// ListBans returns the most recent ban records, newest first.
func (a *Adapter) ListBans(_ context.Context, limit int) ([]model.BanRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	records, err := a.store.NonTx().ListRecent(limit)
	if err != nil {
		return nil, fmt.Errorf("moderation: list bans: %w", err)
	}
	return records, nil
}

// TopBans returns the moderator leaderboard.
func (a *Adapter) TopBans(_ context.Context, limit int) ([]model.ModeratorCount, error) {
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	counts, err := a.store.NonTx().TopModerators(limit)
	if err != nil {
		return nil, fmt.Errorf("moderation: top bans: %w", err)
	}
	return counts, nil
}
