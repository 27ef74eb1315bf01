package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "missing.json")

	cfg, err := loadWith(newFileBackend(path), mockKeychain{err: errors.New("no secret")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.Scheduler.IntervalMS != 5000 {
		t.Errorf("Scheduler.IntervalMS = %d, want 5000", cfg.Scheduler.IntervalMS)
	}
	if cfg.Exchange.PollIntervalMS != 2000 {
		t.Errorf("Exchange.PollIntervalMS = %d, want 2000", cfg.Exchange.PollIntervalMS)
	}
	if cfg.DeepSeek.Model != "deepseek-chat" {
		t.Errorf("DeepSeek.Model = %q, want deepseek-chat", cfg.DeepSeek.Model)
	}
	if cfg.DeepSeek.BaseURL != "https://api.deepseek.com/v1" {
		t.Errorf("DeepSeek.BaseURL = %q", cfg.DeepSeek.BaseURL)
	}
	if cfg.DeepSeek.Configured() {
		t.Error("expected API key to be unconfigured by default")
	}
}

func TestFileParsing(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{
  "server": {"port": 5000},
  "storage": {"data_dir": "/tmp/ainoter-test"},
  "scheduler": {"interval_ms": 250, "sound_file": "/usr/share/sounds/bell.wav"},
  "deepseek": {"model": "deepseek-reasoner"}
}`)

	cfg, err := loadWith(newFileBackend(path), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/tmp/ainoter-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Scheduler.IntervalMS != 250 {
		t.Errorf("Scheduler.IntervalMS = %d, want 250", cfg.Scheduler.IntervalMS)
	}
	if cfg.Scheduler.SoundFile != "/usr/share/sounds/bell.wav" {
		t.Errorf("Scheduler.SoundFile = %q", cfg.Scheduler.SoundFile)
	}
	if cfg.DeepSeek.Model != "deepseek-reasoner" {
		t.Errorf("DeepSeek.Model = %q", cfg.DeepSeek.Model)
	}
	// Untouched keys keep their defaults.
	if cfg.Exchange.PollIntervalMS != 2000 {
		t.Errorf("Exchange.PollIntervalMS = %d, want 2000", cfg.Exchange.PollIntervalMS)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `{"server": {"port": 5000}}`)
	t.Setenv("AINOTER_SERVER_PORT", "6000")
	t.Setenv("AINOTER_DEEPSEEK_API_KEY", "env-key")

	cfg, err := loadWith(newFileBackend(path), mockKeychain{value: "keychain-key"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000", cfg.Server.Port)
	}
	if cfg.DeepSeek.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env-key", cfg.DeepSeek.APIKey)
	}
}

func TestInvalidEnvIntKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("AINOTER_SCHEDULER_INTERVAL_MS", "soon")

	cfg, err := loadWith(newFileBackend(filepath.Join(t.TempDir(), "c.json")), mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Scheduler.IntervalMS != 5000 {
		t.Errorf("Scheduler.IntervalMS = %d, want 5000", cfg.Scheduler.IntervalMS)
	}
}

func TestKeychainFallback(t *testing.T) {
	clearEnv(t)
	cfg, err := loadWith(newFileBackend(filepath.Join(t.TempDir(), "c.json")), mockKeychain{value: " stored-key\n"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DeepSeek.APIKey != "stored-key" {
		t.Errorf("APIKey = %q, want stored-key", cfg.DeepSeek.APIKey)
	}
}

func TestPlaceholderKeyIsNotConfigured(t *testing.T) {
	clearEnv(t)
	t.Setenv("AINOTER_DEEPSEEK_API_KEY", PlaceholderAPIKey)

	cfg, err := loadWith(newFileBackend(filepath.Join(t.TempDir(), "c.json")), mockKeychain{err: errors.New("none")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DeepSeek.Configured() {
		t.Error("placeholder key must not count as configured")
	}
	if got := apiKeyWith(mockKeychain{value: PlaceholderAPIKey}); got != "" {
		t.Errorf("apiKeyWith = %q, want empty", got)
	}
}

func TestAPIKeyPrefersEnv(t *testing.T) {
	clearEnv(t)
	if got := apiKeyWith(mockKeychain{value: "kc"}); got != "kc" {
		t.Errorf("apiKeyWith = %q, want kc", got)
	}
	t.Setenv("AINOTER_DEEPSEEK_API_KEY", "env")
	if got := apiKeyWith(mockKeychain{value: "kc"}); got != "env" {
		t.Errorf("apiKeyWith = %q, want env", got)
	}
}

func TestSetKeyRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	b := newFileBackend(path)

	if err := setKeyWith(b, "server.port", "4242"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}
	if err := setKeyWith(b, "deepseek.model", "deepseek-coder"); err != nil {
		t.Fatalf("setKeyWith: %v", err)
	}

	cfg, err := loadWith(newFileBackend(path), mockKeychain{})
	if err != nil {
		t.Fatalf("loadWith: %v", err)
	}
	if cfg.Server.Port != 4242 {
		t.Errorf("Server.Port = %d, want 4242", cfg.Server.Port)
	}
	if cfg.DeepSeek.Model != "deepseek-coder" {
		t.Errorf("DeepSeek.Model = %q", cfg.DeepSeek.Model)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file mode = %o, want 600", perm)
	}
}

func TestSetKeyErrors(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "c.json"))

	if err := setKeyWith(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyWith(b, "no.such.key", "x"); err == nil || !strings.Contains(err.Error(), "unknown config key") {
		t.Errorf("err = %v, want unknown config key", err)
	}
	if err := setKeyWith(b, "deepseek.api_key", "x"); err == nil || !strings.Contains(err.Error(), "set-key") {
		t.Errorf("err = %v, want secret rejection", err)
	}
}

func TestDeleteRestoresDefault(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "c.json")
	b := newFileBackend(path)
	if err := b.SetInt("server.port", 9999); err != nil {
		t.Fatal(err)
	}
	if err := b.SetString("log.level", "debug"); err != nil {
		t.Fatal(err)
	}
	if err := b.Delete("server.port"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	cfg, err := loadWith(newFileBackend(path), mockKeychain{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want default 4100", cfg.Server.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.DeepSeek.APIKey = "sk-secret"
	for _, ki := range ShowAll(cfg) {
		if ki.Key == "deepseek.api_key" {
			t.Fatal("ShowAll must not list secret keys")
		}
		if strings.Contains(ki.Value, "sk-secret") {
			t.Fatalf("secret leaked via %s", ki.Key)
		}
	}
	for _, k := range ValidKeys() {
		if k == "deepseek.api_key" {
			t.Fatal("ValidKeys must not list secret keys")
		}
	}
}
