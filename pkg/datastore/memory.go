package datastore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NicolasHaas/nforce/pkg/model"
)

// MemoryStore provides an in-memory DataStore implementation for tests.
// It mirrors SQLite behavior for validation, ordering, and error handling.
type MemoryStore struct {
	mu sync.RWMutex

	now func() time.Time

	nextID int64

	bansByPlayer map[string]*model.BanRecord
	tokensByHash map[string]*memoryToken
}

type memoryToken struct {
	hash     string
	useCount int
}

var _ DataProviderFactory = (*MemoryStore)(nil)

// NewMemory creates a MemoryStore using time.Now().UTC().
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryWithClock creates a MemoryStore with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryStore{
		now:          now,
		nextID:       1,
		bansByPlayer: make(map[string]*model.BanRecord),
		tokensByHash: make(map[string]*memoryToken),
	}
}

func (s *MemoryStore) NonTx() DataStore {
	return s
}

func (s *MemoryStore) Tx(_ context.Context) (DataStoreTx, error) {
	return &memoryTx{s}, nil
}

// memoryTx satisfies DataStoreTx; the memory store has no real transactions.
type memoryTx struct {
	*MemoryStore
}

func (t *memoryTx) Rollback() error { return nil }
func (t *memoryTx) Commit() error   { return nil }

func (s *MemoryStore) ZeroTime() time.Time {
	return time.Time{}
}

// Close is a no-op for MemoryStore.
func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) UpsertBan(rec *model.BanRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("datastore: upsert ban: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Truncate(time.Second)
	if existing, ok := s.bansByPlayer[rec.PlayerID]; ok {
		existing.Username = rec.Username
		existing.Reason = rec.Reason
		existing.Moderator = rec.Moderator
		existing.ModeratorID = rec.ModeratorID
		existing.UpdatedAt = now
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		rec.UpdatedAt = now
		return nil
	}

	stored := *rec
	stored.ID = s.nextID
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.bansByPlayer[rec.PlayerID] = &stored
	s.nextID++
	rec.ID = stored.ID
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

func (s *MemoryStore) DeleteBan(playerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.bansByPlayer[playerID]; !ok {
		return false, nil
	}
	delete(s.bansByPlayer, playerID)
	return true, nil
}

func (s *MemoryStore) GetBan(playerID string) (*model.BanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bansByPlayer[playerID]
	if !ok {
		return nil, nil
	}
	rec := *b
	return &rec, nil
}

func (s *MemoryStore) ListRecent(limit int) ([]model.BanRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]model.BanRecord, 0, len(s.bansByPlayer))
	for _, b := range s.bansByPlayer {
		records = append(records, *b)
	}
	// Same ordering the SQL store produces: updated_at DESC, id DESC.
	sort.Slice(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].ID > records[j].ID
	})

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *MemoryStore) TopModerators(limit int) ([]model.ModeratorCount, error) {
	if limit <= 0 {
		limit = 5
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	byMod := make(map[string]int64)
	for _, b := range s.bansByPlayer {
		byMod[b.Moderator]++
	}

	counts := make([]model.ModeratorCount, 0, len(byMod))
	for mod, n := range byMod {
		counts = append(counts, model.ModeratorCount{Moderator: mod, Bans: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Bans != counts[j].Bans {
			return counts[i].Bans > counts[j].Bans
		}
		return counts[i].Moderator < counts[j].Moderator
	})

	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

func (s *MemoryStore) HasTokens() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tokensByHash) > 0, nil
}

func (s *MemoryStore) CreateToken(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tokensByHash[hash]; ok {
		return fmt.Errorf("datastore: create token: duplicate hash")
	}
	s.tokensByHash[hash] = &memoryToken{hash: hash}
	return nil
}

func (t *memoryTx) ValidateToken(hash string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tok, ok := t.tokensByHash[hash]
	if !ok {
		return fmt.Errorf("datastore: invalid token")
	}
	tok.useCount++
	return nil
}
