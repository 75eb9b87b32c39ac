package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/mahyarmirrashed/noeol/internal/config"
)

// Reporter prints scan results as they are found.
type Reporter struct {
	out    io.Writer
	errOut io.Writer
	short  bool

	// headerShown flips on the first failure and never resets.
	headerShown bool

	bold   *color.Color
	red    *color.Color
	banner *color.Color
}

// New creates a Reporter writing the report to out and per-file errors to errOut.
// Colors are always emitted unless noColor is set.
func New(out, errOut io.Writer, short, noColor bool) *Reporter {
	r := &Reporter{
		out:    out,
		errOut: errOut,
		short:  short,
		bold:   color.New(color.Bold),
		red:    color.New(color.FgHiRed),
		banner: color.New(color.FgHiGreen, color.Bold),
	}
	for _, c := range []*color.Color{r.bold, r.red, r.banner} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return r
}

// Settings echoes the scan configuration. Nothing is printed in short mode.
func (r *Reporter) Settings(cfg *config.Config) {
	if r.short {
		return
	}

	r.section("Dirs to scan:", cfg.Paths)
	if len(cfg.IgnoreDirs) > 0 {
		r.section("Ignore dirs:", cfg.IgnoreDirs)
	}
	if len(cfg.ScanPatterns) > 0 {
		r.section("Scan ONLY these files:", cfg.ScanPatterns)
	}
}

func (r *Reporter) section(title string, items []string) {
	fmt.Fprintln(r.out, r.bold.Sprint(title))
	for _, item := range items {
		fmt.Fprintln(r.out, " - "+item)
	}
	fmt.Fprintln(r.out)
}

// Failed reports a file without a trailing EOL.
func (r *Reporter) Failed(path string) {
	if r.short {
		fmt.Fprintln(r.out, path)
		return
	}

	if !r.headerShown {
		fmt.Fprintln(r.out, r.bold.Sprint("No EOL:"))
		r.headerShown = true
	}
	fmt.Fprintln(r.out, r.red.Sprint(" - ")+path)
}

// Error reports a file that could not be checked.
func (r *Reporter) Error(path string) {
	fmt.Fprintf(r.errOut, "Error on file %s\n", path)
}

// Summary prints the success banner when no file failed.
func (r *Reporter) Summary(failed int) {
	if failed == 0 {
		fmt.Fprintln(r.out, r.banner.Sprint("All files have EOL"))
	}
}
