package htmlpack

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// src/href attribute values, single or double quoted
var assetAttrRe = regexp.MustCompile(`(?i)(?:src|href)\s*=\s*["'](.*?)["']`)

// CollectAssets extracts local asset paths referenced by an HTML file,
// returned relative to root. Remote URLs, data URIs and fragments are
// skipped; backslash separators are normalised first.
func CollectAssets(htmlPath, root string) (map[string]bool, error) {
	assets := map[string]bool{}

	content, err := os.ReadFile(htmlPath)
	if err != nil {
		return nil, err
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	for _, match := range assetAttrRe.FindAllStringSubmatch(string(content), -1) {
		raw := strings.ReplaceAll(match[1], `\`, "/")
		if raw == "" ||
			strings.HasPrefix(raw, "http://") ||
			strings.HasPrefix(raw, "https://") ||
			strings.HasPrefix(raw, "data:") ||
			strings.HasPrefix(raw, "#") {
			continue
		}

		// strip query strings & fragments before resolving
		if idx := strings.IndexAny(raw, "?#"); idx >= 0 {
			raw = raw[:idx]
		}
		if raw == "" {
			continue
		}

		absPath, err := filepath.Abs(filepath.Join(filepath.Dir(htmlPath), raw))
		if err != nil {
			continue
		}
		relPath, err := filepath.Rel(rootAbs, absPath)
		if err != nil || strings.HasPrefix(relPath, "..") {
			// outside the tree, not packaged
			continue
		}
		assets[relPath] = true
	}

	return assets, nil
}
