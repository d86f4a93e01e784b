package runtime

import "github.com/Harshitk-cp/clawguild/internal/domain"

// ZeroClaw is a single-agent runtime configured through flat env vars.
type ZeroClaw struct{}

func (ZeroClaw) Kind() domain.RuntimeKind { return domain.RuntimeZeroClaw }
func (ZeroClaw) Name() string             { return string(domain.RuntimeZeroClaw) }
func (ZeroClaw) SupportsMultiAgent() bool { return false }

var zeroClawDefaults = map[domain.ModelProvider][2]string{
	domain.ModelOpenAI:    {"openai", "gpt-4o-mini"},
	domain.ModelAnthropic: {"anthropic", "claude-3-5-sonnet-20240620"},
	domain.ModelBYOM:      {"openrouter", "openrouter/auto"},
}

func (z ZeroClaw) BuildPlan(ctx Context) (domain.RuntimePlan, error) {
	p := ctx.Primary
	def := zeroClawDefaults[p.ModelProvider]
	provider, model := def[0], def[1]
	apiKey, token := p.ModelAPIKey, p.DiscordBotToken

	doc := overrides(ctx, DiscordToken{})
	if v, ok := stringKey(doc, "model_provider"); ok {
		provider = v
	}
	if v, ok := stringKey(doc, "model"); ok {
		model = v
	}
	if v, ok := stringKey(doc, "api_key"); ok {
		apiKey = v
	}
	if v, ok := stringKey(doc, "discord_token"); ok {
		token = v
	}

	env := map[string]string{}
	setIf(env, "ZEROCLAW_MODEL_PROVIDER", provider)
	setIf(env, "ZEROCLAW_MODEL", model)
	setIf(env, "ZEROCLAW_API_KEY", apiKey)
	setIf(env, "ZEROCLAW_DISCORD_TOKEN", token)

	script, err := initScript(z.Kind())
	if err != nil {
		return domain.RuntimePlan{}, err
	}
	return domain.RuntimePlan{Env: env, InitScript: script}, nil
}
