package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kBool
)

type keySpec struct {
	env   string
	typ   keyType
	apply func(cfg *Config, v any)
}

var specs = []keySpec{
	{
		env: "AGENTE_SERVER_PORT", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
	},
	{
		env: "AGENTE_LLM_PROVIDER", typ: kString,
		apply: func(cfg *Config, v any) { cfg.LLM.Provider = v.(string) },
	},
	{
		env: "AGENTE_LLM_API_KEY", typ: kString,
		apply: func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
	},
	{
		env: "AGENTE_LLM_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
	},
	{
		env: "AGENTE_LLM_MODEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
	},
	{
		env: "AGENTE_LLM_CHUNK_SIZE", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.LLM.ChunkSize = v.(int) },
	},
	{
		env: "AGENTE_AUTH_JWT_SECRET", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Auth.JWTSecret = v.(string) },
	},
	{
		env: "AGENTE_AUTH_TOKEN_TTL_MINUTES", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Auth.TokenTTLMinutes = v.(int) },
	},
	{
		env: "AGENTE_CALENDAR_PROVIDER", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Calendar.Provider = v.(string) },
	},
	{
		env: "AGENTE_CALENDAR_BASE_URL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Calendar.BaseURL = v.(string) },
	},
	{
		env: "AGENTE_CALENDAR_TOKEN", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Calendar.Token = v.(string) },
	},
	{
		env: "AGENTE_CALENDAR_TIMEZONE", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Calendar.Timezone = v.(string) },
	},
	{
		env: "AGENTE_AGENT_MAX_HISTORY", typ: kInt,
		apply: func(cfg *Config, v any) { cfg.Agent.MaxHistoryMessages = v.(int) },
	},
	{
		env: "AGENTE_AGENT_NOTIFY_ON_COMPLETE", typ: kBool,
		apply: func(cfg *Config, v any) { cfg.Agent.NotifyOnComplete = v.(bool) },
	},
	{
		env: "AGENTE_LOG_LEVEL", typ: kString,
		apply: func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
	},
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kBool:
			if b, err := strconv.ParseBool(raw); err == nil {
				s.apply(cfg, b)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse bool from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
