package pathutil

import (
	"path/filepath"
	"strings"
)

// Normalize converts a path using either slash convention to the form
// "/path/to/file": leading slash, no empty segments, no trailing slash.
// An empty path (or one made only of separators) stays empty.
func Normalize(path string) string {
	path = strings.ReplaceAll(path, `\`, "/")

	var segments []string
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			segments = append(segments, segment)
		}
	}

	if len(segments) == 0 {
		return ""
	}
	return "/" + strings.Join(segments, "/")
}

// Parent returns the normalized parent of path, or "" for a top-level entry.
func Parent(path string) string {
	path = Normalize(path)
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return ""
	}
	return path[:idx]
}

// Base returns the last segment of path.
func Base(path string) string {
	path = Normalize(path)
	return path[strings.LastIndex(path, "/")+1:]
}

// Join normalizes and concatenates the given parts.
func Join(parts ...string) string {
	return Normalize(strings.Join(parts, "/"))
}

// Local maps a normalized path to an OS path relative to the working directory.
func Local(path string) string {
	return filepath.FromSlash(strings.TrimPrefix(Normalize(path), "/"))
}

// Destination computes the remote folder a local file is uploaded into.
// Without pps everything is flattened into location; with pps the file's
// ancestry is kept under location.
func Destination(location, file string, pps bool) string {
	if !pps {
		return Normalize(location)
	}
	return Join(location, Parent(file))
}
