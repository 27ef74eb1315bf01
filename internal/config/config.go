package config

import (
	"strings"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Log       LogConfig
	Scheduler SchedulerConfig
	Exchange  ExchangeConfig
	DeepSeek  DeepSeekConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type SchedulerConfig struct {
	IntervalMS int
	SoundFile  string // relative paths resolve against Storage.DataDir
}

type ExchangeConfig struct {
	PollIntervalMS int
}

type DeepSeekConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
}

// PlaceholderAPIKey is the value shipped in sample configuration files; it
// counts as "not configured".
const PlaceholderAPIKey = "your_api_key_here"

// Configured reports whether a usable API key is present.
func (c DeepSeekConfig) Configured() bool {
	return usableKey(c.APIKey)
}

func usableKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderAPIKey
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		Scheduler: SchedulerConfig{
			IntervalMS: 5000,
			SoundFile:  "alarm.wav",
		},
		Exchange: ExchangeConfig{
			PollIntervalMS: 2000,
		},
		DeepSeek: DeepSeekConfig{
			BaseURL:      "https://api.deepseek.com/v1",
			Model:        "deepseek-chat",
			SystemPrompt: "Answer briefly and clearly. Keep the answer under 500 tokens.",
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.ainoter.app) and the API
// key falls back to macOS Keychain.
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/ainoter/config.json
// and the API key falls back to secrets.json inside the data directory.
//
// Environment variables (AINOTER_*) override backend values on all platforms.
// A missing API key is not an error; see DeepSeekConfig.Configured.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), nil)
}

// keychain abstracts secret store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if kc == nil {
		kc = secretReader{dataDir: cfg.Storage.DataDir}
	}
	if !cfg.DeepSeek.Configured() {
		if key, err := kc.Get(secretService, secretAPIKeyAccount); err == nil && usableKey(key) {
			cfg.DeepSeek.APIKey = strings.TrimSpace(key)
		}
	}

	return cfg, nil
}

const (
	secretService       = "ainoter"
	secretAPIKeyAccount = "deepseek_api_key"
)

// secretReader reads from the platform secret store.
type secretReader struct {
	dataDir string
}

func (r secretReader) Get(service, account string) (string, error) {
	out, err := keychainGet(r.dataDir, service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// APIKey re-reads the DeepSeek API key from the environment and the secret
// store. It returns "" when no usable key is configured.
func APIKey(dataDir string) string {
	return apiKeyWith(secretReader{dataDir: dataDir})
}

func apiKeyWith(kc keychain) string {
	for _, s := range specs {
		if s.key != "deepseek.api_key" {
			continue
		}
		if v := strings.TrimSpace(getenv(s.env)); usableKey(v) {
			return v
		}
	}
	if key, err := kc.Get(secretService, secretAPIKeyAccount); err == nil && usableKey(key) {
		return strings.TrimSpace(key)
	}
	return ""
}

// SetAPIKey stores the DeepSeek API key in the platform secret store.
func SetAPIKey(dataDir, key string) error {
	return keychainSet(dataDir, secretService, secretAPIKeyAccount, strings.TrimSpace(key))
}
