package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/NicolasHaas/nforce/pkg/model"
	"github.com/NicolasHaas/nforce/pkg/report"
)

const reportThumbnailURL = "https://i.imgur.com/HIhlNEk.png"

// Deliver renders the report and posts it to the configured report channel
// with a ban button for the reported player. An unreachable channel comes
// back as an error; the caller decides how to surface it.
func (b *Bot) Deliver(ctx context.Context, r model.Report) error {
	n := b.builder.Build(r)

	msg := &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{notificationEmbed(n)},
	}
	if n.PlayerID != "" {
		msg.Components = []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "🚫 Ban Player",
					Style:    discordgo.DangerButton,
					CustomID: banButtonID(n.PlayerID),
				},
			}},
		}
	}

	if _, err := b.session.ChannelMessageSendComplex(b.cfg.ReportChannelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: deliver report for player %q: %w", n.PlayerID, err)
	}
	slog.Info("report delivered", "case", n.CaseID, "player_id", n.PlayerID)
	return nil
}

func notificationEmbed(n report.Notification) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(n.Fields))
	for _, f := range n.Fields {
		fields = append(fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value})
	}
	return &discordgo.MessageEmbed{
		Title:     n.Title,
		Color:     n.Color,
		Thumbnail: &discordgo.MessageEmbedThumbnail{URL: reportThumbnailURL},
		Fields:    fields,
		Footer:    &discordgo.MessageEmbedFooter{Text: n.Footer},
	}
}
