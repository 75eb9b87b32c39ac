package scanner

import (
	"io/fs"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/mahyarmirrashed/noeol/internal/eol"
	"github.com/mahyarmirrashed/noeol/internal/filter"
	"github.com/mahyarmirrashed/noeol/internal/report"
)

// CheckFunc tests a single file for a trailing EOL.
type CheckFunc func(path string) (bool, error)

// Result counts what a scan saw.
type Result struct {
	Checked int // Files handed to the checker
	Failed  int // Files without a trailing EOL
	Errored int // Files that could not be read
}

// Add accumulates other into r.
func (r *Result) Add(other Result) {
	r.Checked += other.Checked
	r.Failed += other.Failed
	r.Errored += other.Errored
}

// Scanner walks directories and reports files missing a trailing EOL.
type Scanner struct {
	filter   *filter.Filter
	reporter *report.Reporter
	check    CheckFunc

	// Observe, when set, is called with the outcome of every successful check.
	Observe func(path string, hasEOL bool)
}

// New creates a Scanner using eol.Check.
func New(f *filter.Filter, r *report.Reporter) *Scanner {
	return &Scanner{filter: f, reporter: r, check: eol.Check}
}

// Filter returns the filter the scanner applies.
func (s *Scanner) Filter() *filter.Filter {
	return s.filter
}

// Run scans each directory in order and returns the combined result.
func (s *Scanner) Run(dirs []string) Result {
	var res Result
	for _, dir := range dirs {
		res.Add(s.ScanDir(dir))
	}
	return res
}

// ScanDir walks the tree rooted at root. Unreadable directories and a
// missing root are skipped silently.
func (s *Scanner) ScanDir(root string) Result {
	var res Result
	_ = Walk(root, s.filter, func(path string) {
		res.Add(s.CheckFile(path))
	})
	return res
}

// Check runs the checker on path without reporting anything.
func (s *Scanner) Check(path string) (bool, error) {
	return s.check(path)
}

// CheckFile checks one file and reports it. Read errors are reported and
// never stop the caller.
func (s *Scanner) CheckFile(path string) Result {
	res := Result{Checked: 1}

	ok, err := s.check(path)
	if err != nil {
		log.Debugf("Check failed for %s: %v", path, err)
		s.reporter.Error(path)
		res.Errored++
		return res
	}
	if s.Observe != nil {
		s.Observe(path, ok)
	}
	if !ok {
		s.reporter.Failed(path)
		res.Failed++
	}
	return res
}

// Walk calls fn for every file under root that f lets through.
// Directories whose path starts with an ignore directory are pruned.
// Symlinked directories below root are not followed; root itself is. A root
// that is not a directory yields nothing.
func Walk(root string, f *filter.Filter, fn func(path string)) error {
	if info, err := os.Lstat(root); err == nil && info.Mode()&fs.ModeSymlink != 0 {
		if target, err := os.Stat(root); err == nil && target.IsDir() {
			// A trailing separator makes WalkDir resolve the link.
			root += string(filepath.Separator)
		}
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debugf("Skipping %s: %v", path, err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root && !d.IsDir() {
			log.Debugf("Not a directory: %s", path)
			return nil
		}

		if d.IsDir() {
			if f.IsIgnored(path) {
				log.Debugf("Ignored: %s", path)
				return filepath.SkipDir
			}
			return nil
		}

		if !Candidate(path, d.Type()) || !f.Matches(d.Name()) {
			return nil
		}

		fn(path)
		return nil
	})
}

// Candidate reports whether a non-directory entry should be checked: regular
// files, and symlinks that do not resolve to a directory. Dangling symlinks
// are candidates so that the checker reports them.
func Candidate(path string, mode fs.FileMode) bool {
	switch {
	case mode.IsRegular():
		return true
	case mode&fs.ModeSymlink != 0:
		info, err := os.Stat(path)
		return err != nil || !info.IsDir()
	default:
		return false
	}
}
