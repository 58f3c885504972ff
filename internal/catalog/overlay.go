package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ///////////////////////////////////////////////
// Overlay Loading
// ///////////////////////////////////////////////

// loadOverlay reads and validates the overlay file at path. The decoder is
// chosen by extension. Values must be strings or nested sections, and the
// top level must not define [ReservedKey].
func loadOverlay(path string) (section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay: %w", err)
	}

	raw := map[string]any{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, &raw)
	case ".toml":
		err = toml.Unmarshal(data, &raw)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		return nil, fmt.Errorf("unsupported overlay format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse overlay %s: %w", filepath.Base(path), err)
	}

	if _, ok := raw[ReservedKey]; ok {
		return nil, fmt.Errorf("%w: %s defines %q", ErrReservedKey, filepath.Base(path), ReservedKey)
	}
	return normalize(raw, nil)
}

// normalize checks that every value in m is a string or a section and
// returns it as a section. prefix is the dotted path used in error messages.
func normalize(m map[string]any, prefix []string) (section, error) {
	out := make(section, len(m))
	for k, v := range m {
		at := append(prefix[:len(prefix):len(prefix)], k)
		switch tv := v.(type) {
		case string:
			out[k] = tv
		case map[string]any:
			sub, err := normalize(tv, at)
			if err != nil {
				return nil, err
			}
			out[k] = sub
		default:
			return nil, fmt.Errorf("overlay key %q: unsupported value of type %T", strings.Join(at, "."), v)
		}
	}
	return out, nil
}

// ///////////////////////////////////////////////
// Merging
// ///////////////////////////////////////////////

// merge layers overlay on top of a deep copy of fallback. Sections present
// on both sides are merged recursively; anything else in the overlay replaces
// the fallback value outright, even if the kinds differ.
func merge(fallback, overlay section) section {
	out := clone(fallback)
	for k, ov := range overlay {
		fsec, fok := fallback[k].(section)
		osec, ook := ov.(section)
		if fok && ook {
			out[k] = merge(fsec, osec)
			continue
		}
		out[k] = ov
	}
	return out
}

// clone deep-copies s.
func clone(s section) section {
	out := make(section, len(s))
	for k, v := range s {
		if sub, ok := v.(section); ok {
			out[k] = clone(sub)
			continue
		}
		out[k] = v
	}
	return out
}
