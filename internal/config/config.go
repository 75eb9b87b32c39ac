package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mahyarmirrashed/noeol/internal/utils"
)

// DefaultConfigFilename is looked up in the working directory when --config is not given.
const DefaultConfigFilename = ".noeol.yaml"

// DefaultPath is the directory scanned when no path is configured.
const DefaultPath = "."

// Config holds the scanner configuration, from the YAML file and flags.
type Config struct {
	Paths         []string      `yaml:"paths"`         // Directories to scan
	IgnoreDirs    []string      `yaml:"ignore_dirs"`   // Subtrees to skip (string prefix match)
	ScanPatterns  []string      `yaml:"scan_patterns"` // Base name globs; empty means all files
	Short         bool          `yaml:"short"`         // One path per line, no headers
	NoColor       bool          `yaml:"no_color"`      // Disable ANSI colors
	ExitCode      bool          `yaml:"exit_code"`     // Exit 1 when a file lacks an EOL
	LogLevel      string        `yaml:"log_level"`     // Logging level: debug, info, warn, error
	Watch         bool          `yaml:"watch"`         // Keep watching after the initial scan
	Daemonize     bool          `yaml:"daemonize"`     // Run the watcher in the background
	Delay         time.Duration `yaml:"delay"`         // Time to wait before checking a changed file
	Notifications bool          `yaml:"notifications"` // Send desktop notifications in watch mode
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Paths:    []string{DefaultPath},
		LogLevel: "warn",
	}
}

// LoadConfig reads a YAML config file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return cfg, nil
}

// Normalize converts every directory to a cleaned absolute path and drops
// duplicates, keeping the first occurrence. An empty path list falls back
// to the current directory.
func (c *Config) Normalize() error {
	if len(c.Paths) == 0 {
		c.Paths = []string{DefaultPath}
	}

	paths, err := absPaths(c.Paths)
	if err != nil {
		return fmt.Errorf("could not resolve scan dirs: %w", err)
	}
	c.Paths = paths

	ignore, err := absPaths(c.IgnoreDirs)
	if err != nil {
		return fmt.Errorf("could not resolve ignore dirs: %w", err)
	}
	c.IgnoreDirs = ignore

	return nil
}

func absPaths(dirs []string) ([]string, error) {
	seen := make(map[string]bool, len(dirs))
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(utils.ExpandTilde(d))
		if err != nil {
			return nil, err
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		out = append(out, abs)
	}
	return out, nil
}
