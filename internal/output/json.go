package output

import (
	"encoding/json"
	"io"

	"github.com/parnexcodes/dbxup/internal/uploader"
)

// Summary is the JSON document written after a session
type Summary struct {
	Status   string           `json:"status"`
	Error    string           `json:"error,omitempty"`
	Uploaded int              `json:"uploaded"`
	Failed   int              `json:"failed"`
	Files    *uploader.Result `json:"files"`
}

// JSONHandler implements Handler for JSON output
type JSONHandler struct {
	encoder *json.Encoder
}

// NewJSONHandler creates a new JSON handler
func NewJSONHandler(w io.Writer) *JSONHandler {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return &JSONHandler{encoder: encoder}
}

// HandleResult writes the summary as one JSON object
func (j *JSONHandler) HandleResult(result *uploader.Result, sessionErr error) error {
	if result == nil {
		result = uploader.NewResult()
	}

	summary := Summary{
		Status:   "completed",
		Uploaded: result.Succeeded(),
		Failed:   result.Failed(),
		Files:    result,
	}
	if sessionErr != nil {
		summary.Status = "failed"
		summary.Error = sessionErr.Error()
	}

	return j.encoder.Encode(summary)
}
