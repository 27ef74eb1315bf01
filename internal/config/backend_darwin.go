//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// defaultsDomain is the UserDefaults domain holding ainoter settings.
const defaultsDomain = "com.ainoter.app"

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ainoter-data"
	}
	return filepath.Join(home, "Library", "Application Support", "ainoter")
}

// darwinBackend stores settings with the `defaults` tool. Missing keys are
// reported through ok=false and deleting one is not an error.
type darwinBackend struct {
	domain string
}

func newPlatformBackend() ConfigBackend {
	return &darwinBackend{domain: defaultsDomain}
}

// defaults runs `defaults <verb> <domain> args...`. missing reports the exit
// status 1 that `defaults` uses for an absent key.
func (b *darwinBackend) defaults(verb string, args ...string) (out string, missing bool, err error) {
	raw, err := exec.Command("defaults", append([]string{verb, b.domain}, args...)...).CombinedOutput()
	out = strings.TrimSpace(string(raw))
	if err == nil {
		return out, false, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
		return "", true, nil
	}
	return "", false, fmt.Errorf("defaults %s %s: %w (%s)", verb, strings.Join(args, " "), err, out)
}

func (b *darwinBackend) GetString(key string) (string, bool, error) {
	out, missing, err := b.defaults("read", key)
	return out, !missing && err == nil, err
}

func (b *darwinBackend) GetInt(key string) (int, bool, error) {
	out, ok, err := b.GetString(key)
	if !ok {
		return 0, false, err
	}
	i, err := strconv.Atoi(out)
	if err != nil {
		return 0, true, fmt.Errorf("%s: %q is not an integer", key, out)
	}
	return i, true, nil
}

func (b *darwinBackend) SetString(key, val string) error {
	_, _, err := b.defaults("write", key, "-string", val)
	return err
}

func (b *darwinBackend) SetInt(key string, val int) error {
	_, _, err := b.defaults("write", key, "-int", strconv.Itoa(val))
	return err
}

func (b *darwinBackend) Delete(key string) error {
	_, _, err := b.defaults("delete", key)
	return err
}
