package provider

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"go.uber.org/zap"
)

const defaultLogLines = 100

// Options carries provider credentials and transport tuning. A provider is
// registered only when its credentials are present.
type Options struct {
	FlyAPIToken string
	FlyOrgSlug  string
	FlyBaseURL  string

	RailwayAPIKey  string
	RailwayBaseURL string

	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
	AWSAMIID           string
	AWSInstanceType    string

	DockerEnabled bool
	DockerNetwork string

	BreakerFailures   int
	BreakerTimeout    time.Duration
	RequestsPerSecond float64
	Burst             int
}

func (o Options) withDefaults() Options {
	if o.FlyBaseURL == "" {
		o.FlyBaseURL = "https://api.machines.dev"
	}
	if o.FlyOrgSlug == "" {
		o.FlyOrgSlug = "personal"
	}
	if o.RailwayBaseURL == "" {
		o.RailwayBaseURL = "https://api.railway.app"
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 5
	}
	if o.BreakerTimeout <= 0 {
		o.BreakerTimeout = 30 * time.Second
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 5
	}
	if o.Burst <= 0 {
		o.Burst = 10
	}
	return o
}

// Registry resolves provider keys to configured adapters. It is read-only
// after construction.
type Registry struct {
	adapters map[string]domain.ProviderAdapter
}

func NewRegistry(adapters ...domain.ProviderAdapter) *Registry {
	r := &Registry{adapters: make(map[string]domain.ProviderAdapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.ProviderName()] = a
	}
	return r
}

// NewRegistryFromOptions builds every provider whose credentials are set.
func NewRegistryFromOptions(ctx context.Context, opts Options, logger *zap.Logger) (*Registry, error) {
	opts = opts.withDefaults()
	var adapters []domain.ProviderAdapter

	if opts.FlyAPIToken != "" {
		adapters = append(adapters, NewFlyIOAdapter(opts, logger))
	}
	if opts.RailwayAPIKey != "" {
		adapters = append(adapters, NewRailwayAdapter(opts, logger))
	}
	if opts.AWSAccessKeyID != "" && opts.AWSSecretAccessKey != "" {
		a, err := NewAWSAdapter(ctx, opts, logger)
		if err != nil {
			return nil, fmt.Errorf("aws provider: %w", err)
		}
		adapters = append(adapters, a)
	}
	if opts.DockerEnabled {
		a, err := NewDockerAdapter(opts, logger)
		if err != nil {
			return nil, fmt.Errorf("docker provider: %w", err)
		}
		adapters = append(adapters, a)
	}

	r := NewRegistry(adapters...)
	logger.Info("providers configured", zap.Strings("providers", r.Providers()))
	return r, nil
}

// Get returns domain.ErrProviderNotConfigured for unknown or unconfigured keys.
func (r *Registry) Get(name string) (domain.ProviderAdapter, error) {
	a, ok := r.adapters[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderNotConfigured, name)
	}
	return a, nil
}

func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func logLimit(maxLines int) int {
	if maxLines <= 0 {
		return defaultLogLines
	}
	return maxLines
}

// slug turns an agent name into a DNS-safe resource name fragment.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteByte('-')
		}
	}
	s := strings.Trim(b.String(), "-")
	if s == "" {
		return "agent"
	}
	return s
}

// hostName is the resource name for a deployment: clawguild-<agent>, or
// clawguild-multi-<primary> when several agents share the host.
func hostName(cfg domain.AgentConfig) string {
	if len(cfg.Agents) > 1 {
		return "clawguild-multi-" + slug(cfg.Agent.Name)
	}
	return "clawguild-" + slug(cfg.Agent.Name)
}

// trimProviderPrefix strips "<provider>-" from a provider-assigned id.
func trimProviderPrefix(provider, providerID string) (string, error) {
	rest, ok := strings.CutPrefix(providerID, provider+"-")
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: %q is not a %s id", domain.ErrInvalidRequest, providerID, provider)
	}
	return rest, nil
}

// secretEnv is the subset of configuration pushed by UpdateConfig.
func secretEnv(cfg domain.AgentConfig) map[string]string {
	out := map[string]string{}
	if cfg.Agent.ModelAPIKey != "" {
		out["OPENCLAW_API_KEY"] = cfg.Agent.ModelAPIKey
	}
	if cfg.Agent.DiscordBotToken != "" {
		out["DISCORD_BOT_TOKEN"] = cfg.Agent.DiscordBotToken
	}
	if cfg.Agent.DiscordChannelID != "" {
		out["DISCORD_CHANNEL_ID"] = cfg.Agent.DiscordChannelID
	}
	for k, v := range cfg.Env {
		out[k] = v
	}
	return out
}
