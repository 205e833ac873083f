package core

// ids.go holds the two directory id schemes. They are not interoperable: a
// listing imported over HTTP can never be matched by a seed-script upsert
// and vice versa.
//
//   - StableID (HTTP import): 32 hex chars of SHA-256 over the lowercased
//     "website|name". '|' cannot occur in a normalized website.
//   - SlugAllocator (seed script): readable "name-country" slugs, suffixed
//     -2, -3, ... on collision within one run.

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

// stableIDBytes is the digest prefix kept for StableID.
const stableIDBytes = 16

// StableID derives the deterministic listing id for a normalized website
// and name. Both inputs are lowercased before hashing.
func StableID(website, name string) string {
	key := strings.ToLower(website) + "|" + strings.ToLower(name)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:stableIDBytes])
}

// slugSymbols replaces the symbols slug.Make would otherwise spell out.
// Only '&' keeps a word; '@' separates like any other punctuation.
var slugSymbols = strings.NewReplacer("&", " and ", "@", " ")

// Slugify lowercases s, transliterates diacritics, spells out '&' and
// collapses every non-alphanumeric run to a single hyphen.
func Slugify(s string) string {
	out := slug.Make(slugSymbols.Replace(s))
	out = strings.ReplaceAll(out, "_", "-")
	for strings.Contains(out, "--") {
		out = strings.ReplaceAll(out, "--", "-")
	}
	return strings.Trim(out, "-")
}

// SlugAllocator hands out unique slug ids for a single seed run.
// It is not safe for concurrent use.
type SlugAllocator struct {
	seen map[string]struct{}
}

// NewSlugAllocator returns an empty allocator.
func NewSlugAllocator() *SlugAllocator {
	return &SlugAllocator{seen: make(map[string]struct{})}
}

// Allocate returns the slug id for name and country, or "" when the name
// has no sluggable characters.
func (a *SlugAllocator) Allocate(name, country string) string {
	base := Slugify(name)
	if base == "" {
		return ""
	}
	if c := Slugify(country); c != "" {
		base += "-" + c
	}

	id := base
	for n := 2; ; n++ {
		if _, taken := a.seen[id]; !taken {
			break
		}
		id = base + "-" + strconv.Itoa(n)
	}
	a.seen[id] = struct{}{}
	return id
}
