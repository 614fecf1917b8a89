package config

const (
	DashScopeBase  = "https://dashscope.aliyuncs.com/compatible-mode/v1"
	DashScopeModel = "qwen-plus"
)

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:        "info",
			MaxSteps:        10,
			DefaultProvider: "dashscope",
			Temperature:     0.7,
			MaxTokens:       4096,
		},
		Providers: map[string]ProviderConfig{
			"dashscope": {
				Enabled:        true,
				Type:           "openai",
				APIBase:        DashScopeBase,
				APIKey:         "${DASHSCOPE_API_KEY}",
				DefaultModel:   DashScopeModel,
				TimeoutSeconds: 60,
			},
			"ollama": {
				Enabled:      false,
				Type:         "ollama",
				APIBase:      "http://localhost:11434",
				DefaultModel: "qwen2.5:7b",
			},
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			Burst:             5,
		},
		Tools: ToolsConfig{
			Fetch: FetchToolConfig{
				Enabled:        true,
				TimeoutSeconds: 30,
			},
		},
		Journal: JournalConfig{
			Enabled: true,
			DBPath:  "~/.funcagent/runs.db",
		},
	}
}
