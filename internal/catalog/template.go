package catalog

import "tools.zach/dev/dropsminer/internal/atomicfile"

// WriteTemplate writes the base catalog to path as indented JSON. Translators
// copy the result, rename it after their language and translate the values.
// The reserved language-name key is never written.
func WriteTemplate(path string) error {
	return atomicfile.WriteJSON(path, base, 0o644)
}
