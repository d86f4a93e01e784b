package runtime

import "github.com/Harshitk-cp/clawguild/internal/domain"

// NanoClaw runs an Anthropic-only agent built from a git ref.
type NanoClaw struct{}

func (NanoClaw) Kind() domain.RuntimeKind { return domain.RuntimeNanoClaw }
func (NanoClaw) Name() string             { return string(domain.RuntimeNanoClaw) }
func (NanoClaw) SupportsMultiAgent() bool { return false }

func (n NanoClaw) BuildPlan(ctx Context) (domain.RuntimePlan, error) {
	apiKey := ctx.Primary.ModelAPIKey
	var runArgs, ref string

	doc := overrides(ctx, NoChannels{})
	if v, ok := stringKey(doc, "anthropic_api_key"); ok {
		apiKey = v
	}
	if v, ok := stringKey(doc, "run_args"); ok {
		runArgs = v
	}
	if v, ok := stringKey(doc, "repo_ref"); ok {
		ref = v
	}

	env := map[string]string{}
	setIf(env, "NANOCLAW_ANTHROPIC_API_KEY", apiKey)
	setIf(env, "NANOCLAW_RUN_ARGS", runArgs)
	setIf(env, "NANOCLAW_REF", ref)

	script, err := initScript(n.Kind())
	if err != nil {
		return domain.RuntimePlan{}, err
	}
	return domain.RuntimePlan{Env: env, InitScript: script}, nil
}
