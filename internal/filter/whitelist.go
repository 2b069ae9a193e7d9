package filter

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultWhitelist holds the paths whose findings are expected. go.sum is
// full of hashes that entropy detectors always report.
var DefaultWhitelist = MustWhitelist("go.sum", "src/unit-test/example_private_key")

// DefaultRequired lists the paths that must show up in every report. A report
// without go.sum means the scanner did not cover the repository.
var DefaultRequired = []string{"go.sum"}

const globMeta = "*?[{"

type pattern struct {
	raw     string
	matcher glob.Glob
}

// Whitelist is an immutable set of paths. Entries containing glob
// metacharacters match with '/' as the separator; all others match exactly.
type Whitelist struct {
	entries []string
	exact   map[string]struct{}
	globs   []pattern
}

func NewWhitelist(entries ...string) (Whitelist, error) {
	w := Whitelist{exact: map[string]struct{}{}}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		w.entries = append(w.entries, e)

		if !strings.ContainsAny(e, globMeta) {
			w.exact[e] = struct{}{}
			continue
		}
		g, err := glob.Compile(e, '/')
		if err != nil {
			return Whitelist{}, fmt.Errorf("whitelist pattern %q: %w", e, err)
		}
		w.globs = append(w.globs, pattern{raw: e, matcher: g})
	}
	return w, nil
}

func MustWhitelist(entries ...string) Whitelist {
	w, err := NewWhitelist(entries...)
	if err != nil {
		panic(err)
	}
	return w
}

// Contains reports whether path is whitelisted.
func (w Whitelist) Contains(path string) bool {
	_, ok := w.match(path)
	return ok
}

func (w Whitelist) match(path string) (string, bool) {
	if _, ok := w.exact[path]; ok {
		return path, true
	}
	for _, p := range w.globs {
		if p.matcher.Match(path) {
			return p.raw, true
		}
	}
	return "", false
}

func (w Whitelist) Entries() []string {
	return append([]string(nil), w.entries...)
}
