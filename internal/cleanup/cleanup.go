package cleanup

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/parnexcodes/dbxup/internal/logging"
)

// Result is the outcome of a cleanup.
type Result int

const (
	// Success means every cache artifact looked for was removed.
	Success Result = iota
	// NoneFound means at least one source had no artifact to remove (or
	// there was nothing to clean at all) and no removal failed.
	NoneFound
	// Failure means at least one artifact could not be removed.
	Failure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case NoneFound:
		return "none-found"
	case Failure:
		return "failure"
	default:
		return "unknown"
	}
}

// Worst returns the more severe of a and b, ordered
// Success < NoneFound < Failure.
func Worst(a, b Result) Result {
	if b > a {
		return b
	}
	return a
}

// Rules decide which files are sources and how their artifact is named.
type Rules struct {
	SourceSuffixes []string `mapstructure:"source_suffixes"`
	Marker         string   `mapstructure:"marker"`
}

// DefaultRules match Python sources and their .pyc bytecode.
func DefaultRules() Rules {
	return Rules{
		SourceSuffixes: []string{".py"},
		Marker:         "c",
	}
}

// IsSource reports whether name has one of the source suffixes.
func (r Rules) IsSource(name string) bool {
	if r.Marker == "" {
		return false
	}
	for _, suffix := range r.SourceSuffixes {
		if suffix != "" && strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// Artifact returns the cache artifact path paired with source.
func (r Rules) Artifact(source string) string {
	return source + r.Marker
}

// Cleaner removes cache artifacts next to source files.
type Cleaner struct {
	rules Rules
	log   *logging.Logger
}

// New creates a Cleaner.
func New(log *logging.Logger, rules Rules) *Cleaner {
	return &Cleaner{rules: rules, log: log}
}

// Clean removes the artifact of a source file, or of every source file
// below a directory. Other paths have nothing to clean. Removal errors
// are logged and reported through the result, never returned.
func (c *Cleaner) Clean(path string) Result {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return c.cleanDir(path)
	}
	if c.rules.IsSource(path) {
		return c.cleanFile(path)
	}
	return NoneFound
}

func (c *Cleaner) cleanDir(root string) Result {
	result := NoneFound
	seen := false

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			c.log.Info("Error while scanning %q: %v", path, err)
			result = Worst(result, Failure)
			seen = true
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !c.rules.IsSource(d.Name()) {
			return nil
		}

		child := c.cleanFile(path)
		if !seen {
			result = child
			seen = true
		} else {
			result = Worst(result, child)
		}
		return nil
	})
	if err != nil {
		c.log.Info("Error while scanning %q: %v", root, err)
		return Failure
	}

	return result
}

func (c *Cleaner) cleanFile(source string) Result {
	artifact := c.rules.Artifact(source)

	info, err := os.Stat(artifact)
	if err != nil || !info.Mode().IsRegular() {
		return NoneFound
	}

	if err := os.Remove(artifact); err != nil {
		c.log.Info("Error while removing %q: %v", artifact, err)
		return Failure
	}

	c.log.Info("Removed %q", artifact)
	return Success
}
