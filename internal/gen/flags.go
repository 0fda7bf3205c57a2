package gen

import (
	"sort"
	"strings"

	"github.com/nasmgo/core/internal/insndb"
)

// FlagTable is the deduplicated, sorted set of every flag token seen
// across a database — the Go-native equivalent of the historical -fh
// enumeration header and -fc initializer array, which this package keeps
// as one sorted string slice rather than splitting into two renderings.
type FlagTable []string

// Has reports whether name (case-sensitive, matching insns.dat's own
// flag-token casing) is present in the table.
func (f FlagTable) Has(name string) bool {
	i := sort.SearchStrings(f, name)
	return i < len(f) && f[i] == name
}

func splitFlags(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func hasFlag(tokens []string, name string) bool {
	for _, t := range tokens {
		if t == name {
			return true
		}
	}
	return false
}

// flagsOf collects the sorted, deduplicated flag vocabulary across every
// pattern in the database.
func flagsOf(patterns []insndb.Pattern) FlagTable {
	seen := make(map[string]bool)
	for _, p := range patterns {
		for _, tok := range splitFlags(p.Flags) {
			seen[tok] = true
		}
	}
	out := make(FlagTable, 0, len(seen))
	for tok := range seen {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}
