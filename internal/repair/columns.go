package repair

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonWordRE    = regexp.MustCompile(`[^\p{L}\p{N}\p{M}_\s\p{Z}]`)
	spaceRunRE   = regexp.MustCompile(`[\s\p{Z}]+`)
	underscoreRE = regexp.MustCompile(`_+`)
)

// SnakeCase canonicalizes a raw header token. An empty result is "col".
func SnakeCase(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonWordRE.ReplaceAllString(s, "")
	s = spaceRunRE.ReplaceAllString(s, "_")
	s = underscoreRE.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "col"
	}
	return s
}

// uniqueNames snake_cases every name and suffixes repeats with _2, _3, ...
// counted per base name. A suffixed name never collides with a later or
// earlier name.
func uniqueNames(raw []string) []string {
	base := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))
	for i, r := range raw {
		base[i] = SnakeCase(r)
	}

	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, b := range base {
		seen[b]++
		name := b
		if seen[b] > 1 || taken[b] {
			for {
				if seen[b] < 2 {
					seen[b] = 2
				}
				name = b + "_" + strconv.Itoa(seen[b])
				if !taken[name] {
					break
				}
				seen[b]++
			}
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

// renameColumns canonicalizes the table header in place.
func renameColumns(t *Table, log *ChangeLog) {
	names := uniqueNames(t.Header)
	changed := false
	for i := range names {
		if names[i] != t.Header[i] {
			changed = true
			break
		}
	}
	t.Header = names
	if changed {
		log.Addf(StageColumns, "Normalized column names (consistent and import-friendly).")
	}
}
