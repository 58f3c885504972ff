package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tools.zach/dev/dropsminer/internal/catalog"
)

func TestGenlangWritesTemplate(t *testing.T) {
	out := filepath.Join(t.TempDir(), "lang", "Template.json")

	var stdout bytes.Buffer
	cmd := newRootCmd(&stdout)
	cmd.SetArgs([]string{"-o", out})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stdout.String(), out) {
		t.Errorf("stdout = %q, want it to name %s", stdout.String(), out)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("template is not JSON: %v", err)
	}
	if _, ok := doc[catalog.ReservedKey]; ok {
		t.Errorf("template contains reserved key %q", catalog.ReservedKey)
	}
	if _, ok := doc["gui"]; !ok {
		t.Error("template missing gui section")
	}
}

func TestGenlangRejectsArgs(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Error("expected error for positional argument")
	}
}
