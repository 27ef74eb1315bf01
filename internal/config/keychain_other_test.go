//go:build !darwin

package config

import (
	"os"
	"testing"
)

func TestSecretsFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	if err := keychainSet(dir, secretService, secretAPIKeyAccount, "sk-123"); err != nil {
		t.Fatalf("keychainSet: %v", err)
	}
	got, err := keychainGet(dir, secretService, secretAPIKeyAccount)
	if err != nil {
		t.Fatalf("keychainGet: %v", err)
	}
	if string(got) != "sk-123" {
		t.Errorf("got %q, want sk-123", got)
	}

	info, err := os.Stat(secretsFilePath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("secrets file mode = %o, want 600", perm)
	}

	clearEnv(t)
	if key := APIKey(dir); key != "sk-123" {
		t.Errorf("APIKey = %q, want sk-123", key)
	}
}

func TestSecretsFileMissing(t *testing.T) {
	if _, err := keychainGet(t.TempDir(), secretService, secretAPIKeyAccount); err == nil {
		t.Fatal("expected error for missing secrets file")
	}
}
