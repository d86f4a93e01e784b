package runtime

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/clawguild/internal/domain"
)

const openClawPort = 3000

// OpenClaw hosts any number of agents on one machine and is configured
// through a single JSON document.
type OpenClaw struct{}

func (OpenClaw) Kind() domain.RuntimeKind { return domain.RuntimeOpenClaw }
func (OpenClaw) Name() string             { return string(domain.RuntimeOpenClaw) }
func (OpenClaw) SupportsMultiAgent() bool { return true }

func (o OpenClaw) BuildPlan(ctx Context) (domain.RuntimePlan, error) {
	doc, err := json.Marshal(OpenClawConfig(ctx))
	if err != nil {
		return domain.RuntimePlan{}, fmt.Errorf("encode openclaw config: %w", err)
	}
	script, err := initScript(o.Kind())
	if err != nil {
		return domain.RuntimePlan{}, err
	}

	env := map[string]string{
		"OPENCLAW_AGENT_NAME":  ctx.Primary.Name,
		"OPENCLAW_CONFIG":      string(doc),
		"OPENCLAW_ONBOARD_CMD": strings.Join(onboardCommand(ctx.Primary), " "),
	}
	setIf(env, "OPENCLAW_API_KEY", ctx.Primary.ModelAPIKey)
	setIf(env, "DISCORD_BOT_TOKEN", ctx.Primary.DiscordBotToken)

	return domain.RuntimePlan{
		Env:        env,
		InitScript: script,
		Services: []domain.ServicePort{{
			Port:         openClawPort,
			Handlers:     []string{"http", "tls"},
			InternalPort: openClawPort,
		}},
	}, nil
}

// OpenClawConfig builds the openclaw.json document: the hosted agent list,
// channel defaults, model credentials and finally the primary agent's
// runtime_config on top.
func OpenClawConfig(ctx Context) map[string]any {
	hosted := ctx.Hosted()

	list := make([]any, 0, len(hosted))
	for _, a := range hosted {
		workspace := a.WorkspaceDir
		if workspace == "" {
			workspace = "~/.openclaw/workspace-" + a.ID
		}
		list = append(list, map[string]any{
			"name":      a.Name,
			"workspace": workspace,
		})
	}

	config := map[string]any{
		"agents": map[string]any{"list": list},
	}
	config = DeepMerge(config, ApplyChannelAdapters(ctx, DiscordBindings{}, TelegramDefaults{}))

	first := hosted[0]
	switch first.ModelProvider {
	case domain.ModelAnthropic, domain.ModelOpenAI:
		if first.ModelAPIKey != "" {
			config["auth"] = map[string]any{
				string(first.ModelProvider): map[string]any{"apiKey": first.ModelAPIKey},
			}
		}
	case domain.ModelBYOM:
		if first.ModelEndpoint != "" {
			custom := map[string]any{"endpoint": first.ModelEndpoint}
			if first.ModelAPIKey != "" {
				custom["apiKey"] = first.ModelAPIKey
			}
			config["models"] = map[string]any{"custom": custom}
		}
	}

	return DeepMerge(config, first.RuntimeConfig)
}

func onboardCommand(a Agent) []string {
	args := []string{"onboard", "--non-interactive"}
	switch a.ModelProvider {
	case domain.ModelAnthropic:
		args = append(args, "--model", "anthropic")
	case domain.ModelOpenAI:
		args = append(args, "--model", "openai")
	case domain.ModelBYOM:
		args = append(args, "--model", "custom")
	}
	if a.WorkspaceDir != "" {
		args = append(args, "--agent-dir", a.WorkspaceDir)
	}
	return args
}
