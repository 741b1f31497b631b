// Package config loads server configuration from defaults overridden by
// AGENTE_* environment variables.
package config

type Config struct {
	Server   ServerConfig
	LLM      LLMConfig
	Auth     AuthConfig
	Calendar CalendarConfig
	Agent    AgentConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type LLMConfig struct {
	// Provider selects the backend: "sim" or "apifreellm".
	Provider  string
	APIKey    string
	BaseURL   string
	Model     string
	ChunkSize int
}

type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
}

type CalendarConfig struct {
	// Provider selects the calendar client: "memory" or "http".
	Provider string
	BaseURL  string
	Token    string
	Timezone string
}

type AgentConfig struct {
	MaxHistoryMessages int
	NotifyOnComplete   bool
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 8000,
		},
		LLM: LLMConfig{
			Provider:  "sim",
			BaseURL:   "https://apifreellm.com/api/v1/chat",
			Model:     "default",
			ChunkSize: 40,
		},
		Auth: AuthConfig{
			JWTSecret:       "change-me-in-production",
			TokenTTLMinutes: 60,
		},
		Calendar: CalendarConfig{
			Provider: "memory",
			Timezone: "UTC",
		},
		Agent: AgentConfig{
			MaxHistoryMessages: 10,
			NotifyOnComplete:   true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults with AGENTE_* environment
// variables layered on top.
func Load() Config {
	cfg := defaults()
	applyEnvOverrides(&cfg)
	return cfg
}
