package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// WaitForCondition polls fn until it returns true or the timeout passes
func WaitForCondition(fn func() bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	interval := 5 * time.Millisecond
	if timeout > 5*time.Second {
		interval = 25 * time.Millisecond
	}

	for time.Now().Before(deadline) {
		if fn() {
			return nil
		}
		time.Sleep(interval)
	}
	if fn() {
		return nil
	}
	return fmt.Errorf("condition not met within %v timeout", timeout)
}

// WaitForConditionWithMessage is WaitForCondition with context in the error
func WaitForConditionWithMessage(fn func() bool, timeout time.Duration, message string) error {
	if err := WaitForCondition(fn, timeout); err != nil {
		return fmt.Errorf("%s: %w", message, err)
	}
	return nil
}

// Eventually fails the test if fn does not return true within timeout
func Eventually(t *testing.T, fn func() bool, timeout time.Duration, message string) {
	t.Helper()
	if err := WaitForCondition(fn, timeout); err != nil {
		t.Errorf("%s: %v", message, err)
	}
}

// AssertContainsAll checks that haystack contains every needle
func AssertContainsAll(t *testing.T, haystack string, needles ...string) {
	t.Helper()
	for _, needle := range needles {
		if !strings.Contains(haystack, needle) {
			t.Errorf("expected output to contain %q", needle)
		}
	}
}

// TempConfigDir points HOME and XDG_CONFIG_HOME at a fresh temp dir for the
// duration of the test.
func TempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	return dir
}

// WriteFile writes content to name inside a temp dir and returns the path
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
