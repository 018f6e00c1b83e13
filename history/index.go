package history

import (
	"fmt"
	"regexp"
)

// Index answers failure signature lookups over loaded history entries.
type Index struct {
	seen  map[string]struct{}
	legit []*regexp.Regexp
}

// NewIndex indexes the failures of entries. Signatures matching any of
// legitPatterns are considered legitimate errors.
func NewIndex(entries []Entry, legitPatterns []string) (*Index, error) {
	idx := &Index{seen: make(map[string]struct{})}
	for _, entry := range entries {
		for _, failure := range entry.History.Failures {
			idx.seen[failure.Signature] = struct{}{}
		}
	}
	for _, pattern := range legitPatterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid legit error pattern %q: %w", pattern, err)
		}
		idx.legit = append(idx.legit, re)
	}
	return idx, nil
}

// Seen reports whether the signature was recorded before.
func (i *Index) Seen(signature string) bool {
	_, ok := i.seen[signature]
	return ok
}

// Legit reports whether the signature matches a legitimate error pattern.
func (i *Index) Legit(signature string) bool {
	for _, re := range i.legit {
		if re.MatchString(signature) {
			return true
		}
	}
	return false
}

// Len returns the number of distinct signatures known.
func (i *Index) Len() int {
	return len(i.seen)
}
