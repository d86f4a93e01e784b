package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSender struct {
	channel string
	sent    *discordgo.MessageSend
	err     error
}

func (f *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.sent = data
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Message{ChannelID: channelID, Content: data.Content}, nil
}

func TestDiscordMessenger_SendWithEmbed(t *testing.T) {
	fs := &fakeSender{}
	m := &DiscordMessenger{session: fs, logger: zap.NewNop()}

	err := m.SendMessage(context.Background(), "123", "hello", &domain.Embed{
		Title:  "Deploy",
		Color:  0x2ecc71,
		Fields: []domain.EmbedField{{Name: "provider", Value: "flyio", Inline: true}},
	})
	require.NoError(t, err)

	assert.Equal(t, "123", fs.channel)
	assert.Equal(t, "hello", fs.sent.Content)
	require.Len(t, fs.sent.Embeds, 1)
	assert.Equal(t, "Deploy", fs.sent.Embeds[0].Title)
	assert.Equal(t, 0x2ecc71, fs.sent.Embeds[0].Color)
	require.Len(t, fs.sent.Embeds[0].Fields, 1)
	assert.True(t, fs.sent.Embeds[0].Fields[0].Inline)
}

func TestDiscordMessenger_Errors(t *testing.T) {
	fs := &fakeSender{err: errors.New("403 Forbidden")}
	m := &DiscordMessenger{session: fs, logger: zap.NewNop()}

	err := m.SendMessage(context.Background(), "123", "hi", nil)
	assert.ErrorContains(t, err, "403")
	assert.Empty(t, fs.sent.Embeds)

	err = m.SendMessage(context.Background(), "", "hi", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestNewDiscordMessenger_RequiresToken(t *testing.T) {
	_, err := NewDiscordMessenger("", zap.NewNop())
	assert.ErrorIs(t, err, domain.ErrProviderNotConfigured)

	m, err := NewDiscordMessenger("abc", zap.NewNop())
	require.NoError(t, err)
	assert.NotNil(t, m.session)
}
