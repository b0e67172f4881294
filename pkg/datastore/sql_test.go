package datastore_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/NicolasHaas/nforce/pkg/datastore"
	"github.com/NicolasHaas/nforce/pkg/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func NewTestSqlConn(t *testing.T) *datastore.ProviderFactory {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	st, err := datastore.NewProviderFactory(dbPath)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}

	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			fmt.Printf("Error closing database: %v\n", err)
		}
	})

	return st
}

// ignoreTimes skips server-assigned fields when comparing records.
var ignoreTimes = cmpopts.IgnoreFields(model.BanRecord{}, "ID", "CreatedAt", "UpdatedAt")

func TestUpsertBanValidation(t *testing.T) {
	t.Parallel()

	type tcase struct {
		rec     model.BanRecord
		wantErr error
	}

	tcases := map[string]tcase{
		"valid": {
			rec: model.BanRecord{PlayerID: "42", Username: "builderman", Reason: "exploit", Moderator: "mod#1"},
		},
		"missing_reason": {
			rec:     model.BanRecord{PlayerID: "42", Username: "builderman"},
			wantErr: model.ErrReasonRequired,
		},
		"missing_player_id": {
			rec:     model.BanRecord{Reason: "exploit"},
			wantErr: model.ErrPlayerIDRequired,
		},
	}

	for name, tc := range tcases {
		t.Run(name, func(t *testing.T) {
			st := NewTestSqlConn(t)
			rec := tc.rec
			err := st.NonTx().UpsertBan(&rec)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("UpsertBan error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpsertBan: %v", err)
			}
		})
	}
}

func TestUpsertBanOverwritesExisting(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	first := model.BanRecord{PlayerID: "42", Username: "builderman", Reason: "exploit", Moderator: "mod#1", ModeratorID: "100"}
	if err := st.NonTx().UpsertBan(&first); err != nil {
		t.Fatalf("UpsertBan: %v", err)
	}

	second := model.BanRecord{PlayerID: "42", Username: "builderman", Reason: "repeat offender", Moderator: "mod#2", ModeratorID: "200"}
	if err := st.NonTx().UpsertBan(&second); err != nil {
		t.Fatalf("UpsertBan (re-ban): %v", err)
	}

	got, err := st.NonTx().GetBan("42")
	if err != nil {
		t.Fatalf("GetBan: %v", err)
	}
	if got == nil {
		t.Fatal("GetBan: record missing after re-ban")
	}
	if diff := cmp.Diff(second, *got, ignoreTimes); diff != "" {
		t.Errorf("re-ban did not overwrite fields (-want +got):\n%s", diff)
	}

	// Re-banning must never produce a second row.
	records, err := st.NonTx().ListRecent(10)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("ListRecent after re-ban: got %d records, want 1", len(records))
	}
	if !got.UpdatedAt.Equal(records[0].UpdatedAt) {
		t.Errorf("GetBan/ListRecent timestamp mismatch: %v vs %v", got.UpdatedAt, records[0].UpdatedAt)
	}
	if got.CreatedAt.After(got.UpdatedAt) {
		t.Errorf("CreatedAt %v after UpdatedAt %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestDeleteBan(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	rec := model.BanRecord{PlayerID: "42", Reason: "exploit", Moderator: "mod#1"}
	if err := st.NonTx().UpsertBan(&rec); err != nil {
		t.Fatalf("UpsertBan: %v", err)
	}

	deleted, err := st.NonTx().DeleteBan("42")
	if err != nil {
		t.Fatalf("DeleteBan: %v", err)
	}
	if !deleted {
		t.Error("DeleteBan: expected a row to be deleted")
	}

	got, err := st.NonTx().GetBan("42")
	if err != nil {
		t.Fatalf("GetBan: %v", err)
	}
	if got != nil {
		t.Errorf("GetBan after unban: got %+v, want nil", got)
	}

	// Deleting a never-banned player reports "not found", not an error.
	deleted, err = st.NonTx().DeleteBan("999")
	if err != nil {
		t.Fatalf("DeleteBan (absent): %v", err)
	}
	if deleted {
		t.Error("DeleteBan (absent): expected no row deleted")
	}
}

func TestGetBanAbsent(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	got, err := st.NonTx().GetBan("nope")
	if err != nil {
		t.Fatalf("GetBan: %v", err)
	}
	if got != nil {
		t.Errorf("GetBan on empty ledger: got %+v, want nil", got)
	}
}

func TestListRecentOrderAndLimit(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	for i := 1; i <= 4; i++ {
		rec := model.BanRecord{
			PlayerID:  fmt.Sprintf("%d", i),
			Username:  fmt.Sprintf("player%d", i),
			Reason:    "exploit",
			Moderator: "mod#1",
		}
		if err := st.NonTx().UpsertBan(&rec); err != nil {
			t.Fatalf("UpsertBan %d: %v", i, err)
		}
	}

	records, err := st.NonTx().ListRecent(3)
	if err != nil {
		t.Fatalf("ListRecent: %v", err)
	}

	var gotIDs []string
	for _, r := range records {
		gotIDs = append(gotIDs, r.PlayerID)
	}
	// Inserted within the same second: id DESC breaks the timestamp tie,
	// so newest insertions come first.
	wantIDs := []string{"4", "3", "2"}
	if diff := cmp.Diff(wantIDs, gotIDs); diff != "" {
		t.Errorf("ListRecent order mismatch (-want +got):\n%s", diff)
	}
}

func TestTopModerators(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	bans := []struct{ player, mod string }{
		{"1", "zed#9"},
		{"2", "alice#1"},
		{"3", "alice#1"},
		{"4", "bob#2"},
		{"5", "bob#2"},
		{"6", "carol#3"},
	}
	for _, b := range bans {
		rec := model.BanRecord{PlayerID: b.player, Reason: "exploit", Moderator: b.mod}
		if err := st.NonTx().UpsertBan(&rec); err != nil {
			t.Fatalf("UpsertBan: %v", err)
		}
	}

	got, err := st.NonTx().TopModerators(3)
	if err != nil {
		t.Fatalf("TopModerators: %v", err)
	}

	// alice/bob tie at 2: alphabetical tie-break keeps output deterministic.
	want := []model.ModeratorCount{
		{Moderator: "alice#1", Bans: 2},
		{Moderator: "bob#2", Bans: 2},
		{Moderator: "carol#3", Bans: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("TopModerators mismatch (-want +got):\n%s", diff)
	}
}

func TestAPITokens(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	hasTokens, err := st.NonTx().HasTokens()
	if err != nil {
		t.Fatalf("HasTokens: %v", err)
	}
	if hasTokens {
		t.Fatal("HasTokens on fresh db: want false")
	}

	if err := st.NonTx().CreateToken("deadbeef"); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	hasTokens, err = st.NonTx().HasTokens()
	if err != nil {
		t.Fatalf("HasTokens: %v", err)
	}
	if !hasTokens {
		t.Fatal("HasTokens after create: want true")
	}

	tx, err := st.Tx(context.Background())
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if err := tx.ValidateToken("deadbeef"); err != nil {
		t.Errorf("ValidateToken (known): %v", err)
	}

	tx, err = st.Tx(context.Background())
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if err := tx.ValidateToken("bogus"); err == nil {
		t.Error("ValidateToken (unknown): want error")
	}
}

func TestZeroTime(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	if diff := cmp.Diff(time.Time{}, st.NonTx().ZeroTime()); diff != "" {
		t.Errorf("ZeroTime mismatch (-want +got):\n%s", diff)
	}
}

func TestUpsertBanBackfillsServerFields(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	rec := model.BanRecord{PlayerID: "42", Username: "builderman", Reason: "exploit", Moderator: "mod#1"}
	if err := st.NonTx().UpsertBan(&rec); err != nil {
		t.Fatalf("UpsertBan: %v", err)
	}
	if rec.ID == 0 {
		t.Error("ID not back-filled on insert")
	}
	if rec.CreatedAt.IsZero() || rec.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not back-filled: %+v", rec)
	}

	stored, err := st.NonTx().GetBan("42")
	if err != nil {
		t.Fatalf("GetBan: %v", err)
	}
	if !rec.CreatedAt.Equal(stored.CreatedAt) || !rec.UpdatedAt.Equal(stored.UpdatedAt) {
		t.Errorf("returned record diverges from stored row: %+v vs %+v", rec, *stored)
	}

	// A re-ban keeps the original ban date on the returned record too.
	reban := model.BanRecord{PlayerID: "42", Username: "builderman", Reason: "repeat offender", Moderator: "mod#2"}
	if err := st.NonTx().UpsertBan(&reban); err != nil {
		t.Fatalf("UpsertBan (re-ban): %v", err)
	}
	if !reban.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("re-ban CreatedAt = %v, want original %v", reban.CreatedAt, rec.CreatedAt)
	}
	if reban.ID != rec.ID {
		t.Errorf("re-ban ID = %d, want original %d", reban.ID, rec.ID)
	}
}

// ValidateToken settles its own transaction, so a token must authorize
// any number of successive validations.
func TestValidateTokenSettlesTransaction(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	if err := st.NonTx().CreateToken("deadbeef"); err != nil {
		t.Fatalf("CreateToken: %v", err)
	}

	for i := 0; i < 3; i++ {
		tx, err := st.Tx(context.Background())
		if err != nil {
			t.Fatalf("Tx: %v", err)
		}
		if err := tx.ValidateToken("deadbeef"); err != nil {
			t.Fatalf("ValidateToken attempt %d: %v", i+1, err)
		}
	}

	// A failed validation must settle as well, leaving the db usable.
	tx, err := st.Tx(context.Background())
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if err := tx.ValidateToken("bogus"); err == nil {
		t.Error("ValidateToken (unknown): want error")
	}
	if _, err := st.NonTx().HasTokens(); err != nil {
		t.Errorf("HasTokens after failed validation: %v", err)
	}
}

func TestFactoryCloseReleasesDB(t *testing.T) {
	t.Parallel()

	st, err := datastore.NewProviderFactory(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := st.NonTx().GetBan("42"); err == nil {
		t.Error("GetBan on closed factory: want error")
	}
}
