package filter

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Filter decides which directories are skipped and which files are checked.
type Filter struct {
	ignoreDirs []string
	globs      []glob.Glob
}

// New creates a Filter from absolute ignore directories and base name glob patterns.
// Patterns are compiled without separators, so '*' matches any run of characters.
func New(ignoreDirs, patterns []string) (*Filter, error) {
	var globs []glob.Glob
	for _, pat := range patterns {
		g, err := glob.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("invalid scan pattern %q: %w", pat, err)
		}
		globs = append(globs, g)
	}
	return &Filter{ignoreDirs: ignoreDirs, globs: globs}, nil
}

// IsIgnored returns true if dir starts with any ignore directory.
// This is a plain string prefix test: ignoring /a/b also ignores /a/bc.
func (f *Filter) IsIgnored(dir string) bool {
	for _, ig := range f.ignoreDirs {
		if strings.HasPrefix(dir, ig) {
			return true
		}
	}
	return false
}

// Matches returns true if name matches any scan pattern, or if there are none.
func (f *Filter) Matches(name string) bool {
	if len(f.globs) == 0 {
		return true
	}
	for _, g := range f.globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
