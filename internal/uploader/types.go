package uploader

import (
	"context"
	"encoding/json"
	"time"

	"github.com/parnexcodes/dbxup/internal/remote"
)

// Request describes one upload session.
type Request struct {
	// Paths are the inputs in either slash convention. They are resolved
	// against Root with any leading slash stripped.
	Paths []string
	// Location is the remote base folder.
	Location string
	// Root is the local directory inputs are relative to, "." by default.
	Root string

	PreservePaths bool
	Replace       bool
	Cleanup       bool
}

// FileInfo represents a file found while walking a folder
type FileInfo struct {
	// Path is normalized and relative to the request root.
	Path     string
	Size     int64
	Modified time.Time
	// Err is set when the entry could not be read.
	Err error
}

// Scanner walks a local folder.
type Scanner interface {
	Scan(ctx context.Context, root, dir string, visit func(FileInfo) error) error
}

// Entry is one row of a Result.
type Entry struct {
	Path     string           `json:"path"`
	Metadata *remote.Metadata `json:"metadata"`
}

// Result maps normalized local paths to the metadata of their upload, nil
// meaning the upload failed. Iteration follows insertion order.
type Result struct {
	keys    []string
	entries map[string]*remote.Metadata
}

// NewResult returns an empty Result.
func NewResult() *Result {
	return &Result{entries: make(map[string]*remote.Metadata)}
}

// Set records path. A path seen before keeps its original position.
func (r *Result) Set(path string, metadata *remote.Metadata) {
	if _, ok := r.entries[path]; !ok {
		r.keys = append(r.keys, path)
	}
	r.entries[path] = metadata
}

// Get returns the metadata for path and whether path was recorded.
func (r *Result) Get(path string) (*remote.Metadata, bool) {
	metadata, ok := r.entries[path]
	return metadata, ok
}

// Len returns the number of recorded paths.
func (r *Result) Len() int {
	return len(r.keys)
}

// Keys returns the recorded paths in processing order.
func (r *Result) Keys() []string {
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}

// Entries returns the recorded rows in processing order.
func (r *Result) Entries() []Entry {
	entries := make([]Entry, 0, len(r.keys))
	for _, key := range r.keys {
		entries = append(entries, Entry{Path: key, Metadata: r.entries[key]})
	}
	return entries
}

// Succeeded counts paths with metadata.
func (r *Result) Succeeded() int {
	n := 0
	for _, metadata := range r.entries {
		if metadata != nil {
			n++
		}
	}
	return n
}

// Failed counts paths without metadata.
func (r *Result) Failed() int {
	return r.Len() - r.Succeeded()
}

// MarshalJSON encodes the result as an array of entries in order.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Entries())
}
