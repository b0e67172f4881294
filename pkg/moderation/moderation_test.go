package moderation_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/NicolasHaas/nforce/pkg/datastore"
	"github.com/NicolasHaas/nforce/pkg/model"
	"github.com/NicolasHaas/nforce/pkg/moderation"
	"github.com/NicolasHaas/nforce/pkg/roblox"
)

// fakeResolver returns a fixed name, or the placeholder when down.
type fakeResolver struct {
	name string
	down bool
}

func (f *fakeResolver) Username(_ context.Context, playerID string) string {
	if f.down || f.name == "" {
		return roblox.Placeholder(playerID)
	}
	return f.name
}

var modActor = model.Actor{Username: "mod#1", ID: "100", RoleIDs: []string{"role-mod"}}

func newTestAdapter(t *testing.T, resolver moderation.NameResolver) *moderation.Adapter {
	t.Helper()
	if resolver == nil {
		resolver = &fakeResolver{name: "builderman"}
	}
	return moderation.New(datastore.NewMemory(), resolver, []string{"role-mod", "role-admin"})
}

func TestAuthorized(t *testing.T) {
	a := newTestAdapter(t, nil)

	tests := []struct {
		name  string
		actor model.Actor
		want  bool
	}{
		{"mod role", modActor, true},
		{"second allowed role", model.Actor{RoleIDs: []string{"role-admin"}}, true},
		{"one of many", model.Actor{RoleIDs: []string{"x", "role-mod", "y"}}, true},
		{"no roles", model.Actor{}, false},
		{"unlisted role", model.Actor{RoleIDs: []string{"role-guest"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Authorized(tt.actor); got != tt.want {
				t.Errorf("Authorized(%v) = %v, want %v", tt.actor.RoleIDs, got, tt.want)
			}
		})
	}
}

func TestBanThenCheckBan(t *testing.T) {
	a := newTestAdapter(t, nil)
	ctx := context.Background()

	rec, err := a.Ban(ctx, modActor, "42", "exploit", "")
	if err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if rec.Username != "builderman" {
		t.Errorf("resolved username = %q, want %q", rec.Username, "builderman")
	}

	got, err := a.CheckBan(ctx, "42")
	if err != nil {
		t.Fatalf("CheckBan: %v", err)
	}
	if got == nil || got.Reason != "exploit" {
		t.Fatalf("CheckBan = %+v, want reason %q", got, "exploit")
	}
	if got.Moderator != "mod#1" || got.ModeratorID != "100" {
		t.Errorf("moderator identity not recorded: %+v", got)
	}
}

func TestBanWithResolverDown(t *testing.T) {
	a := newTestAdapter(t, &fakeResolver{down: true})

	rec, err := a.Ban(context.Background(), modActor, "999", "exploit", "")
	if err != nil {
		t.Fatalf("Ban with resolver down: %v", err)
	}
	if rec.Username != "User_999" {
		t.Errorf("username = %q, want placeholder %q", rec.Username, "User_999")
	}
}

func TestBanExplicitUsernameSkipsResolution(t *testing.T) {
	a := newTestAdapter(t, &fakeResolver{down: true})

	rec, err := a.Ban(context.Background(), modActor, "42", "exploit", "noobmaster")
	if err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if rec.Username != "noobmaster" {
		t.Errorf("username = %q, want supplied %q", rec.Username, "noobmaster")
	}
}

func TestBanValidation(t *testing.T) {
	a := newTestAdapter(t, nil)
	ctx := context.Background()

	if _, err := a.Ban(ctx, modActor, "", "exploit", ""); !errors.Is(err, model.ErrPlayerIDRequired) {
		t.Errorf("Ban without player id: err = %v", err)
	}
	if _, err := a.Ban(ctx, modActor, "42", "", ""); !errors.Is(err, model.ErrReasonRequired) {
		t.Errorf("Ban without reason: err = %v", err)
	}

	// No side effect on validation failure.
	if rec, _ := a.CheckBan(ctx, "42"); rec != nil {
		t.Errorf("record created despite validation failure: %+v", rec)
	}
}

func TestUnban(t *testing.T) {
	a := newTestAdapter(t, nil)
	ctx := context.Background()

	if _, err := a.Ban(ctx, modActor, "42", "exploit", ""); err != nil {
		t.Fatalf("Ban: %v", err)
	}

	deleted, err := a.Unban(ctx, "42")
	if err != nil || !deleted {
		t.Fatalf("Unban = (%v, %v), want (true, nil)", deleted, err)
	}

	rec, err := a.CheckBan(ctx, "42")
	if err != nil {
		t.Fatalf("CheckBan: %v", err)
	}
	if rec != nil {
		t.Errorf("CheckBan after unban = %+v, want nil", rec)
	}

	deleted, err = a.Unban(ctx, "42")
	if err != nil || deleted {
		t.Fatalf("Unban (never banned) = (%v, %v), want (false, nil)", deleted, err)
	}
}

func TestHooksFire(t *testing.T) {
	a := newTestAdapter(t, nil)
	ctx := context.Background()

	var bans, unbans int
	a.OnBanRecorded = func() { bans++ }
	a.OnUnbanRecorded = func() { unbans++ }

	if _, err := a.Ban(ctx, modActor, "42", "exploit", ""); err != nil {
		t.Fatalf("Ban: %v", err)
	}
	if _, err := a.Unban(ctx, "42"); err != nil {
		t.Fatalf("Unban: %v", err)
	}
	if _, err := a.Unban(ctx, "42"); err != nil {
		t.Fatalf("Unban (absent): %v", err)
	}

	if bans != 1 {
		t.Errorf("OnBanRecorded fired %d times, want 1", bans)
	}
	// The second unban deleted nothing and must not count.
	if unbans != 1 {
		t.Errorf("OnUnbanRecorded fired %d times, want 1", unbans)
	}
}

func TestDispatchAuthorization(t *testing.T) {
	a := newTestAdapter(t, nil)
	ctx := context.Background()
	guest := model.Actor{Username: "guest#7", RoleIDs: []string{"role-guest"}}

	gated := []model.Command{
		{Kind: model.CmdBan, PlayerID: "42", Reason: "exploit"},
		{Kind: model.CmdUnban, PlayerID: "42"},
		{Kind: model.CmdCheckBan, PlayerID: "42"},
		{Kind: model.CmdListBans},
		{Kind: model.CmdTopBans},
	}
	for _, cmd := range gated {
		reply := a.Dispatch(ctx, guest, cmd)
		if !reply.Private || !strings.Contains(reply.Text, "permission") {
			t.Errorf("Dispatch(%s) as guest = %+v, want private denial", cmd.Kind, reply)
		}
	}

	// The denial has no side effect.
	if rec, _ := a.CheckBan(ctx, "42"); rec != nil {
		t.Errorf("denied ban still wrote a record: %+v", rec)
	}

	// Help stays open to everyone.
	reply := a.Dispatch(ctx, guest, model.Command{Kind: model.CmdHelp})
	if !strings.Contains(reply.Text, "/ban") {
		t.Errorf("help reply = %q, want command list", reply.Text)
	}
}

func TestDispatchUnknown(t *testing.T) {
	a := newTestAdapter(t, nil)

	reply := a.Dispatch(context.Background(), modActor, model.Command{Kind: model.CmdUnknown})
	if !reply.Private || !strings.Contains(reply.Text, "Unrecognized") {
		t.Errorf("unknown command reply = %+v", reply)
	}
}

func TestDispatchBanAndListFlow(t *testing.T) {
	a := newTestAdapter(t, nil)
	ctx := context.Background()

	reply := a.Dispatch(ctx, modActor, model.Command{Kind: model.CmdBan, PlayerID: "42", Reason: "exploit"})
	if reply.Private {
		t.Errorf("ban confirmation should be public: %+v", reply)
	}
	for _, want := range []string{"builderman", "42", "exploit", "mod#1"} {
		if !strings.Contains(reply.Text, want) {
			t.Errorf("ban reply %q missing %q", reply.Text, want)
		}
	}

	reply = a.Dispatch(ctx, modActor, model.Command{Kind: model.CmdListBans})
	if !strings.Contains(reply.Text, "builderman") || !strings.Contains(reply.Text, "exploit") {
		t.Errorf("listbans reply missing entries: %q", reply.Text)
	}

	reply = a.Dispatch(ctx, modActor, model.Command{Kind: model.CmdTopBans})
	if !strings.Contains(reply.Text, "mod#1") || !strings.Contains(reply.Text, "1 bans") {
		t.Errorf("topbans reply = %q", reply.Text)
	}

	reply = a.Dispatch(ctx, modActor, model.Command{Kind: model.CmdUnban, PlayerID: "42"})
	if !strings.Contains(reply.Text, "unbanned") {
		t.Errorf("unban reply = %q", reply.Text)
	}

	reply = a.Dispatch(ctx, modActor, model.Command{Kind: model.CmdUnban, PlayerID: "42"})
	if !reply.Private || !strings.Contains(reply.Text, "not on the ban list") {
		t.Errorf("unban (absent) reply = %+v, want private not-found", reply)
	}

	reply = a.Dispatch(ctx, modActor, model.Command{Kind: model.CmdCheckBan, PlayerID: "42"})
	if !strings.Contains(reply.Text, "not banned") {
		t.Errorf("checkban after unban = %q", reply.Text)
	}
}

func TestDispatchEmptyLedger(t *testing.T) {
	a := newTestAdapter(t, nil)
	ctx := context.Background()

	reply := a.Dispatch(ctx, modActor, model.Command{Kind: model.CmdListBans})
	if !strings.Contains(reply.Text, "No players") {
		t.Errorf("listbans on empty ledger = %q", reply.Text)
	}
	reply = a.Dispatch(ctx, modActor, model.Command{Kind: model.CmdTopBans})
	if !strings.Contains(reply.Text, "Nobody") {
		t.Errorf("topbans on empty ledger = %q", reply.Text)
	}
}
