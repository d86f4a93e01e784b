package runtime

import "github.com/Harshitk-cp/clawguild/internal/domain"

// PicoClaw is a single-agent runtime that talks to OpenRouter.
type PicoClaw struct{}

func (PicoClaw) Kind() domain.RuntimeKind { return domain.RuntimePicoClaw }
func (PicoClaw) Name() string             { return string(domain.RuntimePicoClaw) }
func (PicoClaw) SupportsMultiAgent() bool { return false }

func (pc PicoClaw) BuildPlan(ctx Context) (domain.RuntimePlan, error) {
	apiKey, token := ctx.Primary.ModelAPIKey, ctx.Primary.DiscordBotToken

	doc := overrides(ctx, DiscordToken{})
	if v, ok := stringKey(doc, "openrouter_api_key"); ok {
		apiKey = v
	}
	if v, ok := stringKey(doc, "discord_token"); ok {
		token = v
	}

	env := map[string]string{}
	setIf(env, "PICOCLAW_OPENROUTER_API_KEY", apiKey)
	setIf(env, "PICOCLAW_DISCORD_TOKEN", token)

	script, err := initScript(pc.Kind())
	if err != nil {
		return domain.RuntimePlan{}, err
	}
	return domain.RuntimePlan{Env: env, InitScript: script}, nil
}
