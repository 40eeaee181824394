package model

import (
	"path/filepath"
	"strings"
)

var titleReplacer = strings.NewReplacer(
	"<", "_",
	">", "_",
	":", "_",
	`"`, "_",
	"/", "_",
	`\`, "_",
	"|", "_",
	"?", "_",
	"*", "_",
)

// SanitizeTitle replaces every character that is invalid in a folder name
// with an underscore. Distinct titles may collide after sanitizing.
func SanitizeTitle(title string) string {
	return titleReplacer.Replace(title)
}

// AssetRef is one image to fetch and the directory it lands in.
type AssetRef struct {
	URL string
	Dir string
}

// AssetDir mirrors the hierarchy: <root>/<year>/<sanitized title>.
func AssetDir(root, year, title string) string {
	return filepath.Join(root, year, SanitizeTitle(title))
}

// AssetRefs derives one ref per image link of the record.
func AssetRefs(root string, rec Record) []AssetRef {
	links := rec.ImageLinks()
	if len(links) == 0 {
		return nil
	}
	dir := AssetDir(root, rec.Article.Year, rec.Title)
	refs := make([]AssetRef, 0, len(links))
	for _, link := range links {
		refs = append(refs, AssetRef{URL: link, Dir: dir})
	}
	return refs
}
