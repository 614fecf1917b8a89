package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// --- Validate ---

func TestValidate_ValidConfig(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected valid config, got: %v", err)
	}
}

func TestValidate_MaxSteps(t *testing.T) {
	tests := []struct {
		steps int
		valid bool
	}{
		{0, false},
		{1, true},
		{10, true},
		{200, true},
		{201, false},
	}
	for _, tt := range tests {
		cfg := Defaults()
		cfg.General.MaxSteps = tt.steps
		err := Validate(cfg)
		if tt.valid && err != nil {
			t.Errorf("maxSteps=%d should be valid, got %v", tt.steps, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("maxSteps=%d should be invalid", tt.steps)
		}
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := Defaults()
	cfg.General.LogLevel = "verbose"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown log level")
	}
}

func TestValidate_UnknownDefaultProvider(t *testing.T) {
	cfg := Defaults()
	cfg.General.DefaultProvider = "missing"
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "general.defaultProvider") {
		t.Fatalf("expected defaultProvider error, got %v", err)
	}
}

func TestValidate_FailoverChainReferences(t *testing.T) {
	cfg := Defaults()
	cfg.General.FailoverChain = []string{"dashscope", "nowhere"}
	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "nowhere") {
		t.Fatalf("expected failover chain error, got %v", err)
	}
}

func TestValidate_ProviderType(t *testing.T) {
	cfg := Defaults()
	cfg.Providers["custom"] = ProviderConfig{Enabled: true, Type: "carrier-pigeon"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for unknown provider type")
	}
}

func TestValidate_OpenAIRequiresBase(t *testing.T) {
	cfg := Defaults()
	cfg.Providers["custom"] = ProviderConfig{Enabled: true, Type: "openai"}
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for missing apiBase")
	}
}

func TestValidate_NegativeRateLimit(t *testing.T) {
	cfg := Defaults()
	cfg.RateLimit.RequestsPerMinute = -1
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for negative rate")
	}
}

func TestValidate_JournalRequiresPath(t *testing.T) {
	cfg := Defaults()
	cfg.Journal.DBPath = ""
	if err := Validate(cfg); err == nil {
		t.Fatal("expected error for enabled journal without a path")
	}
	cfg.Journal.Enabled = false
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled journal needs no path: %v", err)
	}
}

// --- Load / Save ---

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	original := Defaults()
	original.General.MaxSteps = 7
	original.Tools.DeniedTools = []string{"fetch"}

	if err := Save(path, original); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.General.MaxSteps != 7 {
		t.Fatalf("expected 7, got %d", loaded.General.MaxSteps)
	}
	if len(loaded.Tools.DeniedTools) != 1 || loaded.Tools.DeniedTools[0] != "fetch" {
		t.Fatalf("unexpected denied tools %v", loaded.Tools.DeniedTools)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.json")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	os.WriteFile(path, []byte("{not json}"), 0o644)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestLoad_ValidatesConfig(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{"general": {"maxSteps": 0}}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(cfgFile); err == nil {
		t.Fatal("expected validation error for maxSteps=0")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	if err := os.WriteFile(cfgFile, []byte(`{"general": {"logLevel": "debug", "maxSteps": 3, "defaultProvider": "dashscope", "temperature": 0.2, "maxTokens": 512}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.General.MaxSteps != 3 || cfg.General.LogLevel != "debug" {
		t.Fatalf("file values not applied: %+v", cfg.General)
	}
	if cfg.Providers["dashscope"].APIBase != DashScopeBase {
		t.Fatal("default provider entry should survive a partial file")
	}
	if !cfg.Tools.Fetch.Enabled {
		t.Fatal("tool defaults should survive a partial file")
	}
}

func TestLoad_WithEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_FUNCAGENT_KEY", "sk-from-env")

	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.json")
	content := `{
		"providers": {
			"dashscope": {
				"enabled": true,
				"type": "openai",
				"apiBase": "${TEST_FUNCAGENT_BASE:-https://example.test/v1}",
				"apiKey": "${TEST_FUNCAGENT_KEY}"
			}
		}
	}`
	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	pc := cfg.Providers["dashscope"]
	if pc.APIKey != "sk-from-env" {
		t.Fatalf("expected key from env, got %q", pc.APIKey)
	}
	if pc.APIBase != "https://example.test/v1" {
		t.Fatalf("expected default base, got %q", pc.APIBase)
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	t.Setenv("DASHSCOPE_API_KEY", "sk-default")

	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadOrDefault: %v", err)
	}
	if cfg.Providers["dashscope"].APIKey != "sk-default" {
		t.Fatalf("defaults should be env-expanded, got %q", cfg.Providers["dashscope"].APIKey)
	}
	if filepath.Base(cfg.Journal.DBPath) != "runs.db" || strings.HasPrefix(cfg.Journal.DBPath, "~") {
		t.Fatalf("journal path should be expanded, got %q", cfg.Journal.DBPath)
	}
}

func TestLoadOrDefault_InvalidFileIsAnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(path, []byte("{"), 0o644)
	if _, err := LoadOrDefault(path); err == nil {
		t.Fatal("an unreadable config must not silently fall back to defaults")
	}
}

// --- .env ---

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("FUNCAGENT_DOTENV_TEST=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("FUNCAGENT_DOTENV_TEST") })

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("FUNCAGENT_DOTENV_TEST"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

func TestLoadDotEnv_NoFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("missing .env files should be ignored: %v", err)
	}
}

// --- Accessor ---

func TestGetByPath_ValidPaths(t *testing.T) {
	cfg := Defaults()

	val, err := GetByPath(cfg, "general.defaultProvider")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "dashscope" {
		t.Fatalf("expected 'dashscope', got %v", val)
	}
}

func TestGetByPath_InvalidPath(t *testing.T) {
	cfg := Defaults()
	if _, err := GetByPath(cfg, "nonexistent.path"); err == nil {
		t.Fatal("expected error for nonexistent path")
	}
}

func TestSetByPath_StringValue(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "general.defaultProvider", "ollama"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.General.DefaultProvider != "ollama" {
		t.Fatalf("expected 'ollama', got %q", cfg.General.DefaultProvider)
	}
}

func TestSetByPath_BoolConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "journal.enabled", "false"); err != nil {
		t.Fatalf("set bool: %v", err)
	}
	if cfg.Journal.Enabled {
		t.Fatal("expected journal.enabled=false")
	}
}

func TestSetByPath_NumberConversion(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "general.maxSteps", "50"); err != nil {
		t.Fatalf("set int: %v", err)
	}
	if cfg.General.MaxSteps != 50 {
		t.Fatalf("expected 50, got %d", cfg.General.MaxSteps)
	}
	if err := SetByPath(cfg, "rateLimit.requestsPerMinute", "1.5"); err != nil {
		t.Fatalf("set float: %v", err)
	}
	if cfg.RateLimit.RequestsPerMinute != 1.5 {
		t.Fatalf("expected 1.5, got %v", cfg.RateLimit.RequestsPerMinute)
	}
}

func TestSetByPath_ListField(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "tools.deniedTools", "fetch"); err != nil {
		t.Fatalf("set list: %v", err)
	}
	if len(cfg.Tools.DeniedTools) != 1 || cfg.Tools.DeniedTools[0] != "fetch" {
		t.Fatalf("expected [fetch], got %v", cfg.Tools.DeniedTools)
	}

	if err := SetByPath(cfg, "general.failoverChain", "dashscope, ollama,"); err != nil {
		t.Fatalf("set list: %v", err)
	}
	if want := []string{"dashscope", "ollama"}; !slices.Equal(cfg.General.FailoverChain, want) {
		t.Fatalf("expected %v, got %v", want, cfg.General.FailoverChain)
	}

	if err := SetByPath(cfg, "tools.deniedTools", ""); err != nil {
		t.Fatalf("clear list: %v", err)
	}
	if len(cfg.Tools.DeniedTools) != 0 {
		t.Fatalf("expected empty list, got %v", cfg.Tools.DeniedTools)
	}
}

func TestSetByPath_NumericTextStaysString(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "general.systemPrompt", "42"); err != nil {
		t.Fatalf("set string: %v", err)
	}
	if cfg.General.SystemPrompt != "42" {
		t.Fatalf("expected \"42\", got %q", cfg.General.SystemPrompt)
	}
	if err := SetByPath(cfg, "providers.ollama.defaultModel", "true"); err != nil {
		t.Fatalf("set string: %v", err)
	}
	if cfg.Providers["ollama"].DefaultModel != "true" {
		t.Fatalf("expected \"true\", got %q", cfg.Providers["ollama"].DefaultModel)
	}
}

func TestSetByPath_RejectsBadValues(t *testing.T) {
	cfg := Defaults()
	tests := []struct{ path, value string }{
		{"general.maxSteps", "many"},
		{"journal.enabled", "maybe"},
		{"general.nope", "1"},
		{"general", "x"},
		{"general.maxSteps.deeper", "1"},
	}
	for _, tt := range tests {
		if err := SetByPath(cfg, tt.path, tt.value); err == nil {
			t.Errorf("SetByPath(%q, %q): expected error", tt.path, tt.value)
		}
	}
	if cfg.General.MaxSteps != 10 || !cfg.Journal.Enabled {
		t.Fatal("config should be unchanged after failed sets")
	}
}

func TestSetByPath_NewProviderEntry(t *testing.T) {
	cfg := Defaults()
	if err := SetByPath(cfg, "providers.local.type", "ollama"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if cfg.Providers["local"].Type != "ollama" {
		t.Fatalf("expected new provider entry, got %+v", cfg.Providers["local"])
	}
	if cfg.Providers["dashscope"].APIBase != DashScopeBase {
		t.Fatal("existing providers should be kept")
	}
}

func TestGetByPath_OmittedFieldIsZero(t *testing.T) {
	val, err := GetByPath(Defaults(), "tools.deniedTools")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if list, ok := val.([]string); !ok || len(list) != 0 {
		t.Fatalf("expected empty []string, got %#v", val)
	}
}

// --- Sanitize ---

func TestSanitize_MasksAPIKeys(t *testing.T) {
	cfg := Defaults()
	cfg.Providers["dashscope"] = ProviderConfig{
		Enabled: true,
		Type:    "openai",
		APIBase: DashScopeBase,
		APIKey:  "sk-1234567890abcdefghijklmnop",
	}

	sanitized := Sanitize(cfg)
	if sanitized.Providers["dashscope"].APIKey != "sk-1****mnop" {
		t.Fatalf("API key should be masked, got %q", sanitized.Providers["dashscope"].APIKey)
	}
	if cfg.Providers["dashscope"].APIKey != "sk-1234567890abcdefghijklmnop" {
		t.Fatal("original config should not be modified")
	}
}

func TestSanitize_ShortAndUnresolvedKeys(t *testing.T) {
	cfg := Defaults()
	cfg.Providers["short"] = ProviderConfig{Type: "openai", APIKey: "short"}

	sanitized := Sanitize(cfg)
	if sanitized.Providers["short"].APIKey != "***" {
		t.Fatalf("short secret should be '***', got %q", sanitized.Providers["short"].APIKey)
	}
	if sanitized.Providers["dashscope"].APIKey != "${DASHSCOPE_API_KEY}" {
		t.Fatalf("unresolved reference should be shown as-is, got %q", sanitized.Providers["dashscope"].APIKey)
	}
}

// --- ListPaths ---

func TestListPaths_ReturnsAllLeaves(t *testing.T) {
	paths := ListPaths(Defaults())
	for _, expected := range []string{"general.maxSteps", "general.logLevel", "journal.enabled", "tools.fetch.timeoutSeconds"} {
		if _, ok := paths[expected]; !ok {
			t.Errorf("missing expected path: %s", expected)
		}
	}
}

// --- ExpandEnvVars ---

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_API_KEY", "sk-abc123")
	t.Setenv("MY_PORT", "9090")
	t.Setenv("EMPTY_VAR", "")
	os.Unsetenv("TOTALLY_UNSET_VAR_XYZ")

	tests := []struct {
		name, in, want string
	}{
		{"simple", `{"apiKey": "${TEST_API_KEY}"}`, `{"apiKey": "sk-abc123"}`},
		{"default used", `"${TOTALLY_UNSET_VAR_XYZ:-8080}"`, `"8080"`},
		{"set overrides default", `"${MY_PORT:-8080}"`, `"9090"`},
		{"multiple", `"${TEST_API_KEY}:${MY_PORT}"`, `"sk-abc123:9090"`},
		{"unset kept", `"${TOTALLY_UNSET_VAR_XYZ}"`, `"${TOTALLY_UNSET_VAR_XYZ}"`},
		{"empty uses default", `"${EMPTY_VAR:-fallback}"`, `"fallback"`},
		{"no vars", `{"key": "value", "number": 42}`, `{"key": "value", "number": 42}`},
		{"bare dollar", `"$HOME is not substituted"`, `"$HOME is not substituted"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnvVars(tt.in); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIsUnresolved(t *testing.T) {
	if !IsUnresolved("${DASHSCOPE_API_KEY}") {
		t.Fatal("reference should be unresolved")
	}
	if IsUnresolved("sk-real") {
		t.Fatal("plain value is resolved")
	}
}
