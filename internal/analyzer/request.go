package analyzer

import (
	"path/filepath"
	"strings"

	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/sanitize"
)

// Fingerprint identifies a request by content. Two requests with equal
// fingerprints produce the same document.
func (r Request) Fingerprint() string {
	key := map[string]any{
		"file":      sanitize.Fingerprint(r.Data),
		"ext":       strings.ToLower(filepath.Ext(r.Filename)),
		"platform":  strings.ToLower(strings.TrimSpace(r.Platform)),
		"overrides": r.Overrides,
	}
	if r.Returns != nil {
		key["returns"] = sanitize.Fingerprint(r.Returns.Data)
		key["returns_ext"] = strings.ToLower(filepath.Ext(r.Returns.Filename))
	}

	b, err := sanitize.Canonical(key)
	if err != nil {
		return ""
	}
	return sanitize.Fingerprint(b)
}
