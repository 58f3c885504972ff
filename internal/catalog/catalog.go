// Package catalog holds the user-facing message catalog.
//
// A catalog is a nested mapping from path segments to message templates. The
// English base catalog is compiled in and exhaustive; other languages are
// overlay files (JSON, TOML or YAML) layered on top of it, so any path an
// overlay omits falls back to English. Templates keep their {placeholders};
// substitution is the caller's job (see [Fill]).
//
// A [Catalog] is built once at startup and passed to whoever needs localized
// text. The active language may be read concurrently but should only be
// changed before steady-state operation begins.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

// ErrInvalidArgument is returned for an empty lookup path or an unknown language.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrReservedKey is returned when an overlay file defines [ReservedKey].
var ErrReservedKey = errors.New("overlay defines reserved key")

// MissingKeyError reports a lookup path absent from the effective catalog.
// It only happens for overlays whose shape has diverged from the base.
type MissingKeyError struct {
	Language string
	Path     []string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("%s translation is missing the %q translation key", e.Language, strings.Join(e.Path, "."))
}

// ///////////////////////////////////////////////
// Catalog
// ///////////////////////////////////////////////

// Catalog resolves message paths in the active language.
type Catalog struct {
	// registry lists the languages that SetLanguage accepts.
	registry *Registry

	// mu guards current and active.
	mu sync.RWMutex
	// current is the active language identifier.
	current string
	// active is the effective catalog: base, or overlay merged onto base.
	active section
}

// New returns a Catalog in the default language, with overlays discovered in
// langDir. An empty langDir means only the default language is available.
func New(langDir string) (*Catalog, error) {
	reg, err := ScanRegistry(langDir)
	if err != nil {
		return nil, err
	}
	return &Catalog{registry: reg, current: DefaultLanguage, active: base}, nil
}

// Languages returns the available language identifiers, default first.
func (c *Catalog) Languages() []string {
	return c.registry.IDs()
}

// Current returns the active language identifier.
func (c *Catalog) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// SetLanguage switches the active language. Selecting the default language
// restores the in-memory base catalog. Any other language loads its overlay
// file; if that fails, the previously active language stays in effect.
func (c *Catalog) SetLanguage(id string) error {
	if !c.registry.Contains(id) {
		return fmt.Errorf("%w: unrecognized language %q", ErrInvalidArgument, id)
	}
	if c.Current() == id {
		return nil
	}

	next := base
	if id != DefaultLanguage {
		file, _ := c.registry.File(id)
		overlay, err := loadOverlay(file)
		if err != nil {
			return fmt.Errorf("load language %q: %w", id, err)
		}
		next = merge(base, overlay)
	}

	c.mu.Lock()
	c.current = id
	c.active = next
	c.mu.Unlock()
	return nil
}

// Lookup returns the message template at path in the active language.
func (c *Catalog) Lookup(path ...string) (string, error) {
	if len(path) == 0 {
		return "", fmt.Errorf("%w: empty message path", ErrInvalidArgument)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(path) == 1 && path[0] == ReservedKey {
		return c.current, nil
	}
	if msg, ok := resolve(c.active, path); ok {
		return msg, nil
	}
	return "", &MissingKeyError{Language: c.current, Path: append([]string(nil), path...)}
}

// Text is the forgiving form of [Catalog.Lookup] for log and status lines.
// If the active catalog lacks path, the base template is used; failing that,
// the dotted path itself is returned.
func (c *Catalog) Text(path ...string) string {
	if msg, err := c.Lookup(path...); err == nil {
		return msg
	}
	if msg, ok := resolve(base, path); ok {
		return msg
	}
	return strings.Join(path, ".")
}

// resolve walks path through s and returns the leaf string it names.
func resolve(s section, path []string) (string, bool) {
	var node any = s
	for _, key := range path {
		sec, ok := node.(section)
		if !ok {
			return "", false
		}
		if node, ok = sec[key]; !ok {
			return "", false
		}
	}
	msg, ok := node.(string)
	return msg, ok
}

// ///////////////////////////////////////////////
// Formatting
// ///////////////////////////////////////////////

// Fill substitutes {name} placeholders in tmpl. kv alternates names and
// values; a trailing name without a value is ignored.
func Fill(tmpl string, kv ...string) string {
	if len(kv) < 2 {
		return tmpl
	}
	pairs := make([]string, 0, len(kv)&^1)
	for i := 0; i+1 < len(kv); i += 2 {
		pairs = append(pairs, "{"+kv[i]+"}", kv[i+1])
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
