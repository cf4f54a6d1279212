package output

import (
	"fmt"
	"io"

	"github.com/parnexcodes/dbxup/internal/uploader"
)

// formatBytes formats bytes into human readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// TextHandler implements Handler for human-readable text output
type TextHandler struct {
	output io.Writer
}

// NewTextHandler creates a new text handler
func NewTextHandler(w io.Writer) *TextHandler {
	return &TextHandler{
		output: w,
	}
}

// HandleResult writes one line per file and a closing tally
func (t *TextHandler) HandleResult(result *uploader.Result, sessionErr error) error {
	if result == nil {
		result = uploader.NewResult()
	}

	for _, entry := range result.Entries() {
		if entry.Metadata == nil {
			if _, err := fmt.Fprintf(t.output, "FAILED  %s\n", entry.Path); err != nil {
				return err
			}
			continue
		}

		if _, err := fmt.Fprintf(t.output,
			"SUCCESS %s (%s) -> %s://%s\n",
			entry.Path,
			formatBytes(entry.Metadata.Size),
			entry.Metadata.Backend,
			entry.Metadata.PathDisplay,
		); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(t.output, "%d uploaded, %d failed\n", result.Succeeded(), result.Failed()); err != nil {
		return err
	}
	if sessionErr != nil {
		if _, err := fmt.Fprintf(t.output, "session failed: %v\n", sessionErr); err != nil {
			return err
		}
	}
	return nil
}
