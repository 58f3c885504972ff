package catalog

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// overlayExts lists the accepted overlay file extensions in priority order:
// when several files share a stem, the earliest extension wins.
var overlayExts = []string{".json", ".toml", ".yaml", ".yml"}

// overlayPattern matches every overlay file directly inside the language directory.
const overlayPattern = "*.{json,toml,yaml,yml}"

// ///////////////////////////////////////////////
// Registry
// ///////////////////////////////////////////////

// Registry is the ordered set of available language identifiers. The default
// language is always first and no identifier appears twice.
type Registry struct {
	// ids holds the language identifiers, default first, the rest collated.
	ids []string
	// files maps each overlay language to its file path.
	files map[string]string
}

// ScanRegistry builds a Registry from the overlay files in dir. A missing
// directory is not an error: only the default language is available then.
func ScanRegistry(dir string) (*Registry, error) {
	r := &Registry{ids: []string{DefaultLanguage}, files: map[string]string{}}
	if dir == "" {
		return r, nil
	}
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("stat language dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("language dir %s is not a directory", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), overlayPattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scan language dir: %w", err)
	}
	slices.SortFunc(matches, func(a, b string) int {
		return extRank(a) - extRank(b)
	})

	var others []string
	for _, name := range matches {
		id := strings.TrimSuffix(name, path.Ext(name))
		if id == "" || id == DefaultLanguage {
			continue
		}
		if _, seen := r.files[id]; seen {
			continue
		}
		r.files[id] = filepath.Join(dir, name)
		others = append(others, id)
	}
	collate.New(language.Und).SortStrings(others)
	r.ids = append(r.ids, others...)
	return r, nil
}

// extRank returns the priority of name's extension within overlayExts.
func extRank(name string) int {
	ext := strings.ToLower(path.Ext(name))
	if i := slices.Index(overlayExts, ext); i >= 0 {
		return i
	}
	return len(overlayExts)
}

// IDs returns a copy of the language identifiers, default first.
func (r *Registry) IDs() []string {
	return slices.Clone(r.ids)
}

// Contains reports whether id is an available language.
func (r *Registry) Contains(id string) bool {
	return slices.Contains(r.ids, id)
}

// File returns the overlay file for id. The default language has none.
func (r *Registry) File(id string) (string, bool) {
	f, ok := r.files[id]
	return f, ok
}
