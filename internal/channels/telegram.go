// Package channels holds typed overlays for chat-platform settings stored in
// an agent's runtime_config document.
package channels

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/Harshitk-cp/clawguild/internal/runtime"
)

var (
	dmPolicies    = []string{"pairing", "allowlist", "open", "disabled"}
	groupPolicies = []string{"open", "allowlist", "disabled"}
)

// TelegramSettings is an incoming partial update. Nil fields are left alone.
type TelegramSettings struct {
	Enabled        *bool    `json:"enabled,omitempty"`
	BotToken       *string  `json:"bot_token,omitempty"`
	DMPolicy       *string  `json:"dm_policy,omitempty"`
	AllowFrom      []string `json:"allow_from,omitempty"`
	GroupPolicy    *string  `json:"group_policy,omitempty"`
	GroupAllowFrom []string `json:"group_allow_from,omitempty"`
	RequireMention *bool    `json:"require_mention,omitempty"`
}

// TelegramConfig is channels.telegram in openclaw.json. Keys it does not
// model are carried in Extra and written back unchanged.
type TelegramConfig struct {
	Enabled        *bool                     `json:"enabled,omitempty"`
	BotToken       string                    `json:"botToken,omitempty"`
	DMPolicy       string                    `json:"dmPolicy,omitempty"`
	AllowFrom      []string                  `json:"allowFrom,omitempty"`
	GroupPolicy    string                    `json:"groupPolicy,omitempty"`
	GroupAllowFrom []string                  `json:"groupAllowFrom,omitempty"`
	Groups         map[string]map[string]any `json:"groups,omitempty"`

	Extra map[string]any `json:"-"`
}

var telegramKeys = []string{"enabled", "botToken", "dmPolicy", "allowFrom", "groupPolicy", "groupAllowFrom", "groups"}

type telegramFields TelegramConfig

func (t *TelegramConfig) UnmarshalJSON(b []byte) error {
	var f telegramFields
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	var all map[string]any
	if err := json.Unmarshal(b, &all); err != nil {
		return err
	}
	for _, k := range telegramKeys {
		delete(all, k)
	}
	*t = TelegramConfig(f)
	if len(all) > 0 {
		t.Extra = all
	}
	return nil
}

func (t TelegramConfig) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(telegramFields(t))
	if err != nil || len(t.Extra) == 0 {
		return b, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	for k, v := range t.Extra {
		if _, ok := m[k]; !ok {
			m[k] = v
		}
	}
	return json.Marshal(m)
}

// ApplyDefaults fills every empty field from defaults. Present values win.
func (t *TelegramConfig) ApplyDefaults(defaults TelegramConfig) {
	if t.Enabled == nil && defaults.Enabled != nil {
		v := *defaults.Enabled
		t.Enabled = &v
	}
	if t.BotToken == "" {
		t.BotToken = defaults.BotToken
	}
	if t.DMPolicy == "" {
		t.DMPolicy = defaults.DMPolicy
	}
	if len(t.AllowFrom) == 0 {
		t.AllowFrom = slices.Clone(defaults.AllowFrom)
	}
	if t.GroupPolicy == "" {
		t.GroupPolicy = defaults.GroupPolicy
	}
	if len(t.GroupAllowFrom) == 0 {
		t.GroupAllowFrom = slices.Clone(defaults.GroupAllowFrom)
	}
	if len(t.Groups) == 0 && len(defaults.Groups) > 0 {
		t.Groups = make(map[string]map[string]any, len(defaults.Groups))
		for k, g := range defaults.Groups {
			t.Groups[k] = runtime.DeepMerge(nil, g)
		}
	}
}

// ApplySettings overlays an incoming update. Empty lists and an empty bot
// token mean "no change".
func (t *TelegramConfig) ApplySettings(s TelegramSettings) {
	if s.Enabled != nil {
		v := *s.Enabled
		t.Enabled = &v
	}
	if s.BotToken != nil && *s.BotToken != "" {
		t.BotToken = *s.BotToken
	}
	if s.DMPolicy != nil {
		t.DMPolicy = *s.DMPolicy
	}
	if len(s.AllowFrom) > 0 {
		t.AllowFrom = slices.Clone(s.AllowFrom)
	}
	if s.GroupPolicy != nil {
		t.GroupPolicy = *s.GroupPolicy
	}
	if len(s.GroupAllowFrom) > 0 {
		t.GroupAllowFrom = slices.Clone(s.GroupAllowFrom)
	}
	if s.RequireMention != nil {
		if t.Groups == nil {
			t.Groups = map[string]map[string]any{}
		}
		if t.Groups["*"] == nil {
			t.Groups["*"] = map[string]any{}
		}
		t.Groups["*"]["requireMention"] = *s.RequireMention
	}
}

func (t *TelegramConfig) Validate() error {
	if t.DMPolicy != "" && !slices.Contains(dmPolicies, t.DMPolicy) {
		return fmt.Errorf("%w: invalid dmPolicy %q", domain.ErrInvalidRequest, t.DMPolicy)
	}
	if t.GroupPolicy != "" && !slices.Contains(groupPolicies, t.GroupPolicy) {
		return fmt.Errorf("%w: invalid groupPolicy %q", domain.ErrInvalidRequest, t.GroupPolicy)
	}
	if t.Enabled == nil || !*t.Enabled {
		return nil
	}

	switch t.DMPolicy {
	case "open":
		if !slices.Contains(t.AllowFrom, "*") {
			return fmt.Errorf("%w: dmPolicy open requires allowFrom to include '*'", domain.ErrInvalidRequest)
		}
	case "allowlist":
		if len(t.AllowFrom) == 0 {
			return fmt.Errorf("%w: dmPolicy allowlist requires allowFrom", domain.ErrInvalidRequest)
		}
	}
	if t.GroupPolicy == "allowlist" && len(t.GroupAllowFrom) == 0 && len(t.AllowFrom) == 0 {
		return fmt.Errorf("%w: groupPolicy allowlist requires groupAllowFrom or allowFrom", domain.ErrInvalidRequest)
	}
	return nil
}

// OpenClawConfig is a typed view over an openclaw runtime_config document.
// Only channels.telegram is modelled; everything else passes through.
type OpenClawConfig struct {
	Telegram *TelegramConfig

	doc map[string]any
}

// ParseOpenClawConfig reads the Telegram section out of a runtime_config
// document. A nil document is an empty config.
func ParseOpenClawConfig(doc map[string]any) (*OpenClawConfig, error) {
	c := &OpenClawConfig{doc: runtime.DeepMerge(nil, doc)}

	chans, ok := c.doc["channels"].(map[string]any)
	if !ok {
		return c, nil
	}
	raw, ok := chans["telegram"]
	if !ok || raw == nil {
		return c, nil
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid openclaw runtime_config: %w", domain.ErrInvalidRequest, err)
	}
	var tg TelegramConfig
	if err := json.Unmarshal(b, &tg); err != nil {
		return nil, fmt.Errorf("%w: invalid openclaw runtime_config: %w", domain.ErrInvalidRequest, err)
	}
	c.Telegram = &tg
	return c, nil
}

// Document renders the config back into a runtime_config document.
func (c *OpenClawConfig) Document() (map[string]any, error) {
	out := runtime.DeepMerge(nil, c.doc)
	if c.Telegram == nil {
		return out, nil
	}

	b, err := json.Marshal(c.Telegram)
	if err != nil {
		return nil, fmt.Errorf("encode telegram config: %w", err)
	}
	var tg map[string]any
	if err := json.Unmarshal(b, &tg); err != nil {
		return nil, fmt.Errorf("encode telegram config: %w", err)
	}

	chans, ok := out["channels"].(map[string]any)
	if !ok {
		chans = map[string]any{}
	}
	chans["telegram"] = tg
	out["channels"] = chans
	return out, nil
}

// ApplyDefaults adopts the default Telegram section wholesale when none is
// present, otherwise fills its empty fields.
func (c *OpenClawConfig) ApplyDefaults(defaults *OpenClawConfig) {
	if defaults == nil || defaults.Telegram == nil {
		return
	}
	if c.Telegram == nil {
		c.Telegram = &TelegramConfig{}
	}
	c.Telegram.ApplyDefaults(*defaults.Telegram)
}

func (c *OpenClawConfig) ApplySettings(s TelegramSettings) {
	if c.Telegram == nil {
		c.Telegram = &TelegramConfig{}
	}
	c.Telegram.ApplySettings(s)
}

// Validate is a no-op when no Telegram section exists.
func (c *OpenClawConfig) Validate() error {
	if c.Telegram == nil {
		return nil
	}
	return c.Telegram.Validate()
}

// TelegramDefaults extracts the Telegram section the openclaw channel
// adapters would produce for ctx.
func TelegramDefaults(ctx runtime.Context) (*OpenClawConfig, error) {
	merged := runtime.ApplyChannelAdapters(ctx, runtime.DiscordBindings{}, runtime.TelegramDefaults{})
	doc := map[string]any{}
	if chans, ok := merged["channels"].(map[string]any); ok {
		if tg, ok := chans["telegram"]; ok {
			doc["channels"] = map[string]any{"telegram": tg}
		}
	}
	return ParseOpenClawConfig(doc)
}

// PrepareOpenClaw applies defaults, an optional update and validation to an
// agent's runtime_config and returns the document to persist.
func PrepareOpenClaw(agent domain.Agent, settings *TelegramSettings) (map[string]any, error) {
	defaults, err := TelegramDefaults(runtime.Context{Primary: runtime.FromDomain(agent)})
	if err != nil {
		return nil, err
	}
	cfg, err := ParseOpenClawConfig(agent.RuntimeConfig)
	if err != nil {
		return nil, err
	}
	cfg.ApplyDefaults(defaults)
	if settings != nil {
		cfg.ApplySettings(*settings)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg.Document()
}
