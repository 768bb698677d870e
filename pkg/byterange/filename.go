package byterange

import (
	"net/url"
	"path/filepath"
)

// Filename returns the URL-encoded download name for a resource named original.
// A non-empty override replaces the base name and keeps the original extension.
func Filename(override, original string) string {
	name := original
	if override != "" {
		name = override + filepath.Ext(original)
	}
	return url.QueryEscape(name)
}
