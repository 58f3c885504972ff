package main

import (
	"strings"
	"testing"

	rootpkg "tools.zach/dev/dropsminer"
	"tools.zach/dev/dropsminer/internal/config"
)

// ///////////////////////////////////////////////
// render Tests
// ///////////////////////////////////////////////

func TestRenderMatchesEmbeddedDefault(t *testing.T) {
	got, err := render(config.ExampleConfig(), config.ConfigDocs)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != string(rootpkg.DefaultConfigTOML) {
		t.Errorf("config.default.toml is stale; run go generate ./internal/config\n--- got ---\n%s", got)
	}
}

func TestRenderAnnotates(t *testing.T) {
	docs := map[string]config.FieldDoc{
		"language":        {Comment: "line one\nline two", Alternatives: []string{`language = "Deutsch"`}},
		"remote.endpoint": {Comment: "probe target"},
	}
	got, err := render(config.DefaultConfig(), docs)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"# line one\n# line two\nlanguage = \"English\"\n# language = \"Deutsch\"\n",
		"# ///// Remote /////\n\n[remote]\n# probe target\nendpoint = ",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("render output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "  endpoint") {
		t.Error("encoder indentation not stripped")
	}
}

// ///////////////////////////////////////////////
// parseSectionPath / sectionName Tests
// ///////////////////////////////////////////////

func TestParseSectionPath(t *testing.T) {
	tests := []struct {
		name    string
		section string
		want    []string
	}{
		{"single segment", "remote", []string{"remote"}},
		{"two segments", "remote.auth", []string{"remote", "auth"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseSectionPath(tt.section)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("parseSectionPath(%q) = %q, want %q", tt.section, got, tt.want)
			}
		})
	}
}

func TestSectionName(t *testing.T) {
	tests := []struct {
		name    string
		section string
		want    string
	}{
		{"single segment", "remote", "Remote"},
		{"last of two", "remote.auth", "Auth"},
		{"already capitalized", "Log", "Log"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sectionName(tt.section); got != tt.want {
				t.Errorf("sectionName(%q) = %q, want %q", tt.section, got, tt.want)
			}
		})
	}
}

// ///////////////////////////////////////////////
// injectOmitted Tests
// ///////////////////////////////////////////////

func TestInjectOmittedNoSection(t *testing.T) {
	var out []string
	injectOmitted(&out, config.ConfigDocs, nil, map[string]bool{})
	if len(out) != 0 {
		t.Errorf("injectOmitted with nil sectionStack produced %d lines, want 0", len(out))
	}
}

func TestInjectOmittedAddsMissing(t *testing.T) {
	docs := map[string]config.FieldDoc{
		"remote.endpoint": {Comment: "emitted"},
		"remote.token":    {Comment: "secret", Alternatives: []string{`token = "abc"`}},
		"remote.auth.key": {Comment: "nested, skipped"},
	}
	var out []string
	emitted := map[string]bool{"remote.endpoint": true}
	injectOmitted(&out, docs, []string{"remote"}, emitted)

	want := []string{"", "# secret", `# token = "abc"`}
	if strings.Join(out, "\n") != strings.Join(want, "\n") {
		t.Errorf("out = %q, want %q", out, want)
	}
	if !emitted["remote.token"] {
		t.Error("injected key not marked emitted")
	}
}
