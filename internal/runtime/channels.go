package runtime

// ChannelAdapter computes default chat-platform settings for a plan.
type ChannelAdapter interface {
	Apply(ctx Context) map[string]any
}

// ApplyChannelAdapters deep-merges every adapter's output in order.
func ApplyChannelAdapters(ctx Context, adapters ...ChannelAdapter) map[string]any {
	merged := map[string]any{}
	for _, a := range adapters {
		merged = DeepMerge(merged, a.Apply(ctx))
	}
	return merged
}

// DiscordBindings emits channels.discord with one binding per bound purpose
// of every hosted agent. The first bot token found wins. Nothing is emitted
// without both a token and at least one binding.
type DiscordBindings struct{}

func (DiscordBindings) Apply(ctx Context) map[string]any {
	var (
		token    string
		bindings []any
	)
	for _, a := range ctx.Hosted() {
		if token == "" {
			token = a.DiscordBotToken
		}
		if purposes := a.DiscordChannels.Purposes(); len(purposes) > 0 {
			for _, p := range purposes {
				bindings = append(bindings, map[string]any{
					"channelId": p[1],
					"agentId":   a.ID,
					"purpose":   p[0],
				})
			}
		} else if a.DiscordChannelID != "" {
			bindings = append(bindings, map[string]any{
				"channelId": a.DiscordChannelID,
				"agentId":   a.ID,
			})
		}
	}
	if token == "" || len(bindings) == 0 {
		return map[string]any{}
	}
	return map[string]any{
		"channels": map[string]any{
			"discord": map[string]any{
				"token":    token,
				"bindings": bindings,
			},
		},
	}
}

// TelegramDefaults emits a disabled Telegram section with safe policies.
type TelegramDefaults struct{}

func (TelegramDefaults) Apply(Context) map[string]any {
	return map[string]any{
		"channels": map[string]any{
			"telegram": TelegramDefaultSection(),
		},
	}
}

// TelegramDefaultSection is the disabled Telegram configuration every
// openclaw agent starts from.
func TelegramDefaultSection() map[string]any {
	return map[string]any{
		"enabled":     false,
		"dmPolicy":    "pairing",
		"groupPolicy": "allowlist",
		"groups": map[string]any{
			"*": map[string]any{"requireMention": true},
		},
	}
}

// DiscordToken exposes the primary agent's bot token under the flat
// discord_token key read by the single-agent runtimes.
type DiscordToken struct{}

func (DiscordToken) Apply(ctx Context) map[string]any {
	if ctx.Primary.DiscordBotToken == "" {
		return map[string]any{}
	}
	return map[string]any{"discord_token": ctx.Primary.DiscordBotToken}
}

// NoChannels contributes nothing.
type NoChannels struct{}

func (NoChannels) Apply(Context) map[string]any { return map[string]any{} }
