package moderation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NicolasHaas/nforce/pkg/model"
)

// Reply is what a dispatched command sends back to the chat surface.
// Private replies are shown only to the invoking user and never persisted.
type Reply struct {
	Text    string
	Private bool
}

const timeFormat = "2006-01-02 15:04 UTC"

// Dispatch maps a parsed Command to the matching ledger operation and
// renders the outcome as a chat reply. Help and Unknown are open to
// everyone; every other command requires an allow-listed role.
func (a *Adapter) Dispatch(ctx context.Context, actor model.Actor, cmd model.Command) Reply {
	switch cmd.Kind {
	case model.CmdHelp:
		return helpReply()
	case model.CmdUnknown:
		return Reply{Text: "Unrecognized command. Try /help.", Private: true}
	}

	if !a.Authorized(actor) {
		return Reply{Text: "You do not have permission to use this command.", Private: true}
	}

	switch cmd.Kind {
	case model.CmdBan:
		return a.dispatchBan(ctx, actor, cmd)
	case model.CmdUnban:
		return a.dispatchUnban(ctx, cmd)
	case model.CmdCheckBan:
		return a.dispatchCheckBan(ctx, cmd)
	case model.CmdListBans:
		return a.dispatchListBans(ctx, cmd)
	case model.CmdTopBans:
		return a.dispatchTopBans(ctx, cmd)
	default:
		return Reply{Text: "Unrecognized command. Try /help.", Private: true}
	}
}

func (a *Adapter) dispatchBan(ctx context.Context, actor model.Actor, cmd model.Command) Reply {
	rec, err := a.Ban(ctx, actor, cmd.PlayerID, cmd.Reason, cmd.Username)
	switch {
	case errors.Is(err, model.ErrPlayerIDRequired):
		return Reply{Text: "A player ID is required.", Private: true}
	case errors.Is(err, model.ErrReasonRequired):
		return Reply{Text: "A ban reason is required.", Private: true}
	case err != nil:
		slog.Error("ban command failed", "player_id", cmd.PlayerID, "err", err)
		return Reply{Text: "Something went wrong while banning the player.", Private: true}
	}
	return Reply{
		Text: fmt.Sprintf("Player **%s** (ID: %s) has been banned by %s. Reason: **%s**",
			rec.Username, rec.PlayerID, rec.Moderator, rec.Reason),
	}
}

func (a *Adapter) dispatchUnban(ctx context.Context, cmd model.Command) Reply {
	deleted, err := a.Unban(ctx, cmd.PlayerID)
	switch {
	case errors.Is(err, model.ErrPlayerIDRequired):
		return Reply{Text: "A player ID is required.", Private: true}
	case err != nil:
		slog.Error("unban command failed", "player_id", cmd.PlayerID, "err", err)
		return Reply{Text: "Something went wrong while unbanning the player.", Private: true}
	}
	if !deleted {
		return Reply{Text: fmt.Sprintf("Player with ID **%s** is not on the ban list.", cmd.PlayerID), Private: true}
	}
	// Name lookup here is cosmetic: the delete already happened and its
	// result never depends on resolution.
	name := a.resolver.Username(ctx, cmd.PlayerID)
	return Reply{Text: fmt.Sprintf("Player **%s** (ID: %s) has been unbanned.", name, cmd.PlayerID)}
}

func (a *Adapter) dispatchCheckBan(ctx context.Context, cmd model.Command) Reply {
	rec, err := a.CheckBan(ctx, cmd.PlayerID)
	switch {
	case errors.Is(err, model.ErrPlayerIDRequired):
		return Reply{Text: "A player ID is required.", Private: true}
	case err != nil:
		slog.Error("checkban command failed", "player_id", cmd.PlayerID, "err", err)
		return Reply{Text: "Something went wrong while checking the ban.", Private: true}
	}
	if rec == nil {
		return Reply{Text: fmt.Sprintf("Player with ID **%s** is not banned.", cmd.PlayerID)}
	}
	return Reply{Text: fmt.Sprintf("Player **%s** (ID: %s) is banned.\nReason: *%s*\nBanned by: %s on %s",
		rec.Username, rec.PlayerID, rec.Reason, rec.Moderator, rec.UpdatedAt.UTC().Format(timeFormat))}
}

func (a *Adapter) dispatchListBans(ctx context.Context, cmd model.Command) Reply {
	limit := cmd.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	records, err := a.ListBans(ctx, limit)
	if err != nil {
		slog.Error("listbans command failed", "err", err)
		return Reply{Text: "Something went wrong while fetching the ban list.", Private: true}
	}
	if len(records) == 0 {
		return Reply{Text: "No players are currently banned."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Banned players (last %d):**\n\n", limit)
	for _, rec := range records {
		fmt.Fprintf(&b, "**%s** (ID: %s)\nReason: *%s*\nBanned by: %s on %s\n---\n",
			rec.Username, rec.PlayerID, rec.Reason, rec.Moderator, rec.UpdatedAt.UTC().Format(timeFormat))
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func (a *Adapter) dispatchTopBans(ctx context.Context, cmd model.Command) Reply {
	limit := cmd.Limit
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	counts, err := a.TopBans(ctx, limit)
	if err != nil {
		slog.Error("topbans command failed", "err", err)
		return Reply{Text: "Something went wrong while fetching the leaderboard.", Private: true}
	}
	if len(counts) == 0 {
		return Reply{Text: "Nobody has banned anyone yet."}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Top %d moderators by bans:**\n\n", limit)
	for i, mc := range counts {
		fmt.Fprintf(&b, "%d. **%s**: %d bans\n", i+1, mc.Moderator, mc.Bans)
	}
	return Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func helpReply() Reply {
	return Reply{
		Text: strings.Join([]string{
			"**Available commands:**",
			"`/ban userid reason [username]` - ban a Roblox player",
			"`/unban userid` - remove a player from the ban list",
			"`/checkban userid` - show a player's ban status",
			"`/listbans` - show the most recent bans",
			"`/topbans` - moderator leaderboard",
			"`/help` - this message",
		}, "\n"),
		Private: true,
	}
}
