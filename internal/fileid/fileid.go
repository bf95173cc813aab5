// Package fileid derives document IDs from file names.
package fileid

import (
	"path/filepath"
	"strings"
)

// DocumentID returns the ID for a document ingested from name: the base name
// without its final extension. "docs/hr-policy.pdf" and "hr-policy.txt" both
// map to "hr-policy", so re-uploading a file in another format replaces it.
// Windows separators are honored regardless of platform, since uploaded file
// names come from arbitrary clients.
func DocumentID(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		// Dotfiles such as ".env" keep their name.
		return name
	}
	return stem
}
