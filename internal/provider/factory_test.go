package provider

import (
	"log/slog"
	"strings"
	"testing"

	"funcagent/internal/config"
	"funcagent/internal/domain"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Providers["dashscope"] = config.ProviderConfig{
		Enabled: true, Type: "openai", APIBase: config.DashScopeBase, APIKey: "sk-test",
	}
	cfg.Providers["ollama"] = config.ProviderConfig{Enabled: true, Type: "ollama"}
	return cfg
}

func TestFactory_GetDefault(t *testing.T) {
	f := NewFactory(testConfig(), testLogger())
	p, err := f.Get("")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name() != "dashscope" {
		t.Fatalf("expected dashscope, got %q", p.Name())
	}
	again, _ := f.Get("dashscope")
	if again != p {
		t.Fatal("providers should be cached")
	}
}

func TestFactory_UnknownAndDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Providers["off"] = config.ProviderConfig{Enabled: false, Type: "openai", APIBase: "http://x"}
	f := NewFactory(cfg, testLogger())

	if _, err := f.Get("missing"); err == nil {
		t.Fatal("expected error for unknown provider")
	}
	if _, err := f.Get("off"); err == nil {
		t.Fatal("expected error for disabled provider")
	}
}

func TestFactory_UnresolvedAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Providers["dashscope"] = config.ProviderConfig{
		Enabled: true, Type: "openai", APIBase: config.DashScopeBase, APIKey: "${DASHSCOPE_API_KEY}",
	}
	_, err := NewFactory(cfg, testLogger()).Get("dashscope")
	if err == nil || !strings.Contains(err.Error(), "API key") {
		t.Fatalf("expected API key error, got %v", err)
	}
}

func TestFactory_FailoverChain(t *testing.T) {
	cfg := testConfig()
	cfg.General.FailoverChain = []string{"dashscope", "ollama"}
	p, err := NewFactory(cfg, testLogger()).Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if p.Name() != "failover(dashscope→ollama)" {
		t.Fatalf("unexpected provider %q", p.Name())
	}
}

func TestFactory_FailoverChainSkipsUnusable(t *testing.T) {
	cfg := testConfig()
	cfg.Providers["dashscope"] = config.ProviderConfig{Enabled: true, Type: "openai", APIBase: "http://x"}
	cfg.General.FailoverChain = []string{"dashscope", "ollama"}
	p, err := NewFactory(cfg, testLogger()).Default()
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if p.Name() != "ollama" {
		t.Fatalf("expected the only usable member, got %q", p.Name())
	}
}

func TestFactory_CustomConstructor(t *testing.T) {
	cfg := testConfig()
	cfg.Providers["canned"] = config.ProviderConfig{Enabled: true, Type: "scripted"}
	f := NewFactory(cfg, testLogger())
	f.RegisterConstructor("scripted", func(string, config.ProviderConfig, *slog.Logger) (domain.Provider, error) {
		return NewScripted("hi"), nil
	})
	p, err := f.Get("canned")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Name() != "scripted" {
		t.Fatalf("expected scripted provider, got %q", p.Name())
	}
}
