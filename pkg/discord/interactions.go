package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/NicolasHaas/nforce/pkg/model"
	"github.com/NicolasHaas/nforce/pkg/moderation"
)

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	case discordgo.InteractionMessageComponent:
		b.handleBanButton(s, i)
	case discordgo.InteractionModalSubmit:
		b.handleBanModal(s, i)
	}
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	cmd := commandFromData(i.ApplicationCommandData())
	reply := b.adapter.Dispatch(context.Background(), actorFrom(i), cmd)
	respond(s, i, reply)
}

// handleBanButton opens the reason modal for a ban button click. The
// authorization check runs here too so unauthorized moderators never see
// the modal.
func (b *Bot) handleBanButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	playerID, ok := parseBanCustomID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}
	if !b.adapter.Authorized(actorFrom(i)) {
		respond(s, i, moderation.Reply{Text: "You do not have permission to ban players.", Private: true})
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: banModalID(playerID),
			Title:    "Ban player " + playerID,
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    banReasonInput,
						Label:       "Ban reason:",
						Style:       discordgo.TextInputParagraph,
						Placeholder: "Enter the ban reason here...",
						Required:    true,
					},
				}},
			},
		},
	})
	if err != nil {
		slog.Error("show ban modal", "player_id", playerID, "error", err)
	}
}

func (b *Bot) handleBanModal(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ModalSubmitData()
	playerID, ok := parseBanCustomID(data.CustomID)
	if !ok {
		return
	}
	reason := modalInputValue(data, banReasonInput)
	actor := actorFrom(i)

	reply := b.adapter.Dispatch(context.Background(), actor, model.Command{
		Kind:     model.CmdBan,
		PlayerID: playerID,
		Reason:   reason,
	})
	respond(s, i, reply)
	if reply.Private {
		// The ban did not go through; leave the notification actionable.
		return
	}

	if err := b.sealNotification(s, i, actor.Username, reason); err != nil {
		slog.Warn("update report notification", "player_id", playerID, "error", err)
	}
}

// sealNotification appends the ban outcome to the originating report message
// and strips its button so the case cannot be actioned twice.
func (b *Bot) sealNotification(s *discordgo.Session, i *discordgo.InteractionCreate, moderator, reason string) error {
	msg := i.Message
	if msg == nil || len(msg.Embeds) == 0 {
		return nil
	}
	embed := msg.Embeds[0]
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name: "✅ Ban Status",
		Value: fmt.Sprintf("**Banned by:** %s\n**Reason:** %s\n**Date:** %s",
			moderator, reason, time.Now().UTC().Format("2006-01-02 15:04 UTC")),
	})

	_, err := s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    msg.ChannelID,
		ID:         msg.ID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &[]discordgo.MessageComponent{},
	})
	return err
}

func modalInputValue(data discordgo.ModalSubmitInteractionData, customID string) string {
	for _, row := range data.Components {
		actions, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actions.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == customID {
				return strings.TrimSpace(input.Value)
			}
		}
	}
	return ""
}

func respond(s *discordgo.Session, i *discordgo.InteractionCreate, reply moderation.Reply) {
	data := &discordgo.InteractionResponseData{Content: reply.Text}
	if reply.Private {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		slog.Error("interaction respond", "error", err)
	}
}
