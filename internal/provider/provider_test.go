package provider

import (
	"errors"
	"testing"

	"github.com/Harshitk-cp/clawguild/internal/domain"
	"github.com/google/uuid"
)

func TestRegistry_Get(t *testing.T) {
	fly := NewMockAdapter("flyio")
	r := NewRegistry(fly, NewMockAdapter("railway"))

	got, err := r.Get("flyio")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got != fly {
		t.Fatalf("expected fly adapter, got %v", got)
	}

	if _, err := r.Get("FlyIO"); err != nil {
		t.Fatalf("expected case-insensitive lookup, got %v", err)
	}
}

func TestRegistry_GetNotConfigured(t *testing.T) {
	r := NewRegistry(NewMockAdapter("flyio"))

	_, err := r.Get("aws")
	if !errors.Is(err, domain.ErrProviderNotConfigured) {
		t.Fatalf("expected ErrProviderNotConfigured, got %v", err)
	}
}

func TestRegistry_Providers(t *testing.T) {
	r := NewRegistry(NewMockAdapter("railway"), NewMockAdapter("aws"), NewMockAdapter("flyio"))
	got := r.Providers()
	want := []string{"aws", "flyio", "railway"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestHostName(t *testing.T) {
	single := domain.AgentConfig{Agent: domain.Agent{Name: "Research Bot"}}
	if got := hostName(single); got != "clawguild-research-bot" {
		t.Fatalf("unexpected single host name %q", got)
	}

	multi := domain.AgentConfig{
		Agent:  domain.Agent{Name: "Lead"},
		Agents: []domain.Agent{{Name: "Lead"}, {Name: "Helper"}},
	}
	if got := hostName(multi); got != "clawguild-multi-lead" {
		t.Fatalf("unexpected multi host name %q", got)
	}

	if got := slug("  !!  "); got != "agent" {
		t.Fatalf("expected fallback slug, got %q", got)
	}
}

func TestTrimProviderPrefix(t *testing.T) {
	id, err := trimProviderPrefix("railway", "railway-svc-1")
	if err != nil || id != "svc-1" {
		t.Fatalf("expected svc-1, got %q (%v)", id, err)
	}

	_, err = trimProviderPrefix("railway", "flyio-app/m1")
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestSecretEnv(t *testing.T) {
	cfg := domain.AgentConfig{
		Agent: domain.Agent{
			ID:               uuid.New(),
			ModelAPIKey:      "sk-1",
			DiscordBotToken:  "bot",
			DiscordChannelID: "123",
		},
		Env: map[string]string{"OPENCLAW_CONFIG": "{}"},
	}
	env := secretEnv(cfg)
	for _, k := range []string{"OPENCLAW_API_KEY", "DISCORD_BOT_TOKEN", "DISCORD_CHANNEL_ID", "OPENCLAW_CONFIG"} {
		if _, ok := env[k]; !ok {
			t.Fatalf("expected %s in secret env", k)
		}
	}
}

func TestLogLimit(t *testing.T) {
	if logLimit(0) != 100 || logLimit(-3) != 100 || logLimit(7) != 7 {
		t.Fatal("unexpected log limit defaults")
	}
}
