// Package messaging sends fleet announcements to chat channels.
package messaging

import (
	"context"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// sender is the slice of *discordgo.Session the messenger uses.
type sender interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordMessenger posts messages through the Discord REST API. It never
// opens a gateway connection.
type DiscordMessenger struct {
	session sender
	logger  *zap.Logger
}

func NewDiscordMessenger(token string, logger *zap.Logger) (*DiscordMessenger, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: discord bot token is empty", domain.ErrProviderNotConfigured)
	}
	if !strings.HasPrefix(token, "Bot ") {
		token = "Bot " + token
	}
	s, err := discordgo.New(token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	return &DiscordMessenger{session: s, logger: logger}, nil
}

func (m *DiscordMessenger) SendMessage(ctx context.Context, channelID, text string, embed *domain.Embed) error {
	if channelID == "" {
		return fmt.Errorf("%w: channel id is required", domain.ErrInvalidRequest)
	}

	msg := &discordgo.MessageSend{Content: text}
	if embed != nil {
		msg.Embeds = []*discordgo.MessageEmbed{toDiscordEmbed(embed)}
	}

	if _, err := m.session.ChannelMessageSendComplex(channelID, msg, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord send to %s: %w", channelID, err)
	}
	m.logger.Debug("discord message sent", zap.String("channel_id", channelID))
	return nil
}

func toDiscordEmbed(e *domain.Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return out
}

// Noop drops every message.
type Noop struct{}

func (Noop) SendMessage(context.Context, string, string, *domain.Embed) error { return nil }

var (
	_ domain.Messenger = (*DiscordMessenger)(nil)
	_ domain.Messenger = Noop{}
)
