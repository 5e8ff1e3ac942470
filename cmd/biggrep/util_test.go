//go:build unix

package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFakeYara(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "yara")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatalf("write fake yara: %v", err)
	}
	return path
}

func TestValidateYaraRulesAcceptsCompilableRules(t *testing.T) {
	yara := writeFakeYara(t, "exit 0\n")
	if err := validateYaraRules(yara, "/tmp/rules.yar"); err != nil {
		t.Fatalf("validateYaraRules: %v", err)
	}
}

func TestValidateYaraRulesRejectsCompileError(t *testing.T) {
	yara := writeFakeYara(t, "echo 'error: syntax error' 1>&2\nexit 1\n")
	if err := validateYaraRules(yara, "/tmp/rules.yar"); err == nil {
		t.Fatal("expected a compile error")
	}
}
