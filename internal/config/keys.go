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
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var getenv = os.Getenv

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "AINOTER_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "storage.data_dir", typ: kString, env: "AINOTER_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "AINOTER_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "scheduler.interval_ms", typ: kInt, env: "AINOTER_SCHEDULER_INTERVAL_MS",
		apply:   func(cfg *Config, v any) { cfg.Scheduler.IntervalMS = v.(int) },
		extract: func(cfg Config) any { return cfg.Scheduler.IntervalMS },
	},
	{
		key: "scheduler.sound_file", typ: kString, env: "AINOTER_SCHEDULER_SOUND_FILE",
		apply:   func(cfg *Config, v any) { cfg.Scheduler.SoundFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Scheduler.SoundFile },
	},
	{
		key: "exchange.poll_interval_ms", typ: kInt, env: "AINOTER_EXCHANGE_POLL_INTERVAL_MS",
		apply:   func(cfg *Config, v any) { cfg.Exchange.PollIntervalMS = v.(int) },
		extract: func(cfg Config) any { return cfg.Exchange.PollIntervalMS },
	},
	{
		key: "deepseek.api_key", typ: kString, env: "AINOTER_DEEPSEEK_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.DeepSeek.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.DeepSeek.APIKey },
	},
	{
		key: "deepseek.base_url", typ: kString, env: "AINOTER_DEEPSEEK_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.DeepSeek.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.DeepSeek.BaseURL },
	},
	{
		key: "deepseek.model", typ: kString, env: "AINOTER_DEEPSEEK_MODEL",
		apply:   func(cfg *Config, v any) { cfg.DeepSeek.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.DeepSeek.Model },
	},
	{
		key: "deepseek.system_prompt", typ: kString, env: "AINOTER_DEEPSEEK_SYSTEM_PROMPT",
		apply:   func(cfg *Config, v any) { cfg.DeepSeek.SystemPrompt = v.(string) },
		extract: func(cfg Config) any { return cfg.DeepSeek.SystemPrompt },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := getenv(s.env)
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
		}
	}
}
