package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/parnexcodes/dbxup/internal/uploader"
)

// Handler writes the end-of-session summary
type Handler interface {
	// HandleResult reports result. sessionErr is the error that ended the
	// session early, or nil.
	HandleResult(result *uploader.Result, sessionErr error) error
}

// NewHandler creates a new output handler for the specified format
func NewHandler(format string, w io.Writer) (Handler, error) {
	switch strings.ToLower(format) {
	case "json":
		return NewJSONHandler(w), nil
	case "text":
		return NewTextHandler(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}
