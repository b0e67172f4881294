package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/NicolasHaas/nforce/pkg/model"
)

const (
	banButtonPrefix = "ban_"
	banModalPrefix  = "banModal_"
	banReasonInput  = "banReason"
)

// commandDefs are registered on every startup via bulk overwrite, so edits
// here replace whatever Discord has on record.
var commandDefs = []*discordgo.ApplicationCommand{
	{
		Name:        "ban",
		Description: "Ban a Roblox player.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "userid",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "Roblox UserId of the player to ban.",
				Required:    true,
			},
			{
				Name:        "reason",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "Reason for the ban.",
				Required:    true,
			},
			{
				Name:        "username",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "(Optional) Roblox username, skips the lookup.",
				Required:    false,
			},
		},
	},
	{
		Name:        "unban",
		Description: "Unban a Roblox player.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "userid",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "Roblox UserId of the player to unban.",
				Required:    true,
			},
		},
	},
	{
		Name:        "checkban",
		Description: "Check whether a Roblox player is banned.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "userid",
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "Roblox UserId to look up.",
				Required:    true,
			},
		},
	},
	{
		Name:        "listbans",
		Description: "Show the most recently banned players.",
	},
	{
		Name:        "topbans",
		Description: "Show the moderators with the most bans.",
	},
	{
		Name:        "help",
		Description: "List the moderation commands.",
	},
}

// commandFromData maps a slash interaction onto the moderation command set.
// Unrecognized names come back as CmdUnknown and get a canned reply downstream.
func commandFromData(data discordgo.ApplicationCommandInteractionData) model.Command {
	cmd := model.Command{Kind: model.ParseCommandKind(data.Name)}
	for _, opt := range data.Options {
		switch opt.Name {
		case "userid":
			cmd.PlayerID = opt.StringValue()
		case "reason":
			cmd.Reason = opt.StringValue()
		case "username":
			cmd.Username = opt.StringValue()
		}
	}
	return cmd
}

// actorFrom extracts the invoking moderator. Interactions outside a guild
// have no member and yield an actor with no roles, which fails authorization.
func actorFrom(i *discordgo.InteractionCreate) model.Actor {
	if i.Member == nil || i.Member.User == nil {
		return model.Actor{}
	}
	return model.Actor{
		Username: i.Member.User.String(),
		ID:       i.Member.User.ID,
		RoleIDs:  i.Member.Roles,
	}
}

func banButtonID(playerID string) string {
	return banButtonPrefix + playerID
}

func banModalID(playerID string) string {
	return banModalPrefix + playerID
}

// parseBanCustomID pulls the player id out of a ban button or modal custom
// id. ok is false for custom ids this bot did not mint.
func parseBanCustomID(customID string) (playerID string, ok bool) {
	for _, prefix := range []string{banButtonPrefix, banModalPrefix} {
		if rest, found := strings.CutPrefix(customID, prefix); found && rest != "" {
			return rest, true
		}
	}
	return "", false
}
