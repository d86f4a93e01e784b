// Package runtime turns agent definitions into boot plans for the
// supported agent runtimes.
package runtime

import (
	"embed"
	"fmt"

	"github.com/Harshitk-cp/clawguild/internal/domain"
)

//go:embed scripts/*.sh
var scripts embed.FS

// Agent is the runtime-neutral view of an agent used to build a plan.
type Agent struct {
	ID               string
	Name             string
	DiscordBotToken  string
	DiscordChannelID string
	DiscordChannels  *domain.ChannelBindings
	ModelProvider    domain.ModelProvider
	ModelAPIKey      string
	ModelEndpoint    string
	Personality      string
	Skills           []string
	WorkspaceDir     string
	RuntimeConfig    map[string]any
}

func FromDomain(a domain.Agent) Agent {
	return Agent{
		ID:               a.ID.String(),
		Name:             a.Name,
		DiscordBotToken:  a.DiscordBotToken,
		DiscordChannelID: a.DiscordChannelID,
		DiscordChannels:  a.DiscordChannels,
		ModelProvider:    a.ModelProvider,
		ModelAPIKey:      a.ModelAPIKey,
		ModelEndpoint:    a.ModelEndpoint,
		Personality:      a.Personality,
		Skills:           a.Skills,
		WorkspaceDir:     a.WorkspaceDir,
		RuntimeConfig:    a.RuntimeConfig,
	}
}

// Context is the input of a plan build: the primary agent and everything
// co-hosted with it.
type Context struct {
	Primary Agent
	Agents  []Agent
}

// Hosted defaults to the primary alone when Agents is empty.
func (c Context) Hosted() []Agent {
	if len(c.Agents) == 0 {
		return []Agent{c.Primary}
	}
	return c.Agents
}

type Runtime interface {
	Kind() domain.RuntimeKind
	Name() string
	SupportsMultiAgent() bool
	BuildPlan(ctx Context) (domain.RuntimePlan, error)
}

func initScript(kind domain.RuntimeKind) (string, error) {
	b, err := scripts.ReadFile("scripts/" + string(kind) + ".sh")
	if err != nil {
		return "", fmt.Errorf("init script for %s: %w", kind, err)
	}
	return string(b), nil
}

// overrides merges the channel defaults under the agent's runtime_config.
func overrides(ctx Context, adapters ...ChannelAdapter) map[string]any {
	return DeepMerge(ApplyChannelAdapters(ctx, adapters...), ctx.Primary.RuntimeConfig)
}

// stringKey returns doc[key] when it is a non-empty string.
func stringKey(doc map[string]any, key string) (string, bool) {
	s, ok := doc[key].(string)
	return s, ok && s != ""
}

func setIf(env map[string]string, key, value string) {
	if value != "" {
		env[key] = value
	}
}
