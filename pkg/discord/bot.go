// Package discord runs the moderator-facing bot: it delivers exploit
// notifications to the report channel and turns slash commands, ban buttons
// and modal submissions into moderation actions.
package discord

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/NicolasHaas/nforce/pkg/moderation"
	"github.com/NicolasHaas/nforce/pkg/report"
)

// Config holds the bot credentials and target channel.
type Config struct {
	Token           string
	GuildID         string
	ReportChannelID string
}

// Validate checks that the config can produce a working bot.
func (c Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}
	if c.ReportChannelID == "" {
		return fmt.Errorf("discord: report channel id is required")
	}
	return nil
}

// Bot owns the gateway session and routes interactions to the moderation
// adapter.
type Bot struct {
	cfg     Config
	session *discordgo.Session
	adapter *moderation.Adapter
	builder *report.Builder
}

// New builds a Bot. The session is created but not connected; call Open.
func New(cfg Config, adapter *moderation.Adapter) (*Bot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers

	b := &Bot{
		cfg:     cfg,
		session: session,
		adapter: adapter,
		builder: report.NewBuilder(),
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	return b, nil
}

// Open connects to the gateway and registers the slash commands. When
// cfg.GuildID is set the commands register on that guild only (instant);
// otherwise they register globally.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	appID := b.session.State.User.ID
	if _, err := b.session.ApplicationCommandBulkOverwrite(appID, b.cfg.GuildID, commandDefs); err != nil {
		b.session.Close()
		return fmt.Errorf("discord: register commands: %w", err)
	}
	return nil
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	slog.Info("discord gateway ready", "user", r.User.Username, "guilds", len(r.Guilds))
}
