//go:build darwin

package config

import (
	"fmt"
	"os/exec"
)

// The macOS Keychain holds the API key as a generic password; the data
// directory is unused here.

func keychainGet(_ string, service, account string) ([]byte, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
	if err != nil {
		return nil, fmt.Errorf("keychain lookup %s/%s: %w", service, account, err)
	}
	return out, nil
}

func keychainSet(_ string, service, account, value string) error {
	// -U updates an existing item instead of failing on a duplicate.
	out, err := exec.Command("security", "add-generic-password", "-U", "-s", service, "-a", account, "-w", value).CombinedOutput()
	if err != nil {
		return fmt.Errorf("keychain store %s/%s: %w (%s)", service, account, err, out)
	}
	return nil
}
