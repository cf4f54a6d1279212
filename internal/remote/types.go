package remote

import (
	"context"
	"errors"
	"io"
	"time"
)

// WriteMode selects what happens when the remote path already exists.
type WriteMode int

const (
	// ModeAdd never overwrites; with autorename a free name is picked.
	ModeAdd WriteMode = iota
	// ModeOverwrite replaces the existing file.
	ModeOverwrite
)

func (m WriteMode) String() string {
	switch m {
	case ModeAdd:
		return "add"
	case ModeOverwrite:
		return "overwrite"
	default:
		return "unknown"
	}
}

// Metadata describes a file stored on the remote after an upload
type Metadata struct {
	Name string `json:"name"`

	// Server-confirmed path; differs from the requested one after autorename.
	PathDisplay string `json:"path_display"`

	ID             string    `json:"id,omitempty"`
	Rev            string    `json:"rev,omitempty"`
	Size           int64     `json:"size"`
	ServerModified time.Time `json:"server_modified,omitempty"`
	Backend        string    `json:"backend"`
}

// Account identifies the owner of the credentials a client was built with
type Account struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Client is a remote storage backend.
type Client interface {
	Name() string
	// Upload stores content at path, an absolute "/a/b" style path.
	Upload(ctx context.Context, path string, content io.Reader, mode WriteMode, autorename bool) (*Metadata, error)
	// CurrentAccount validates the credentials eagerly.
	CurrentAccount(ctx context.Context) (*Account, error)
}

// Limited is implemented by clients that cap single-call upload size.
type Limited interface {
	MaxUploadSize() int64
}

// ErrorType represents different categories of remote errors
type ErrorType int

const (
	ErrorTypeUnknown        ErrorType = iota
	ErrorTypeNetwork                  // Network connectivity issues
	ErrorTypeAPI                      // API-level errors from the backend
	ErrorTypeAuthentication           // Invalid or expired credentials
	ErrorTypeQuota                    // Storage quota exceeded or rate limited
	ErrorTypeConflict                 // Path exists and overwriting was not allowed
	ErrorTypeFileTooLarge             // File exceeds the single-call upload limit
	ErrorTypeInvalidArgument          // Rejected before reaching the backend
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeAPI:
		return "api"
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeQuota:
		return "quota"
	case ErrorTypeConflict:
		return "conflict"
	case ErrorTypeFileTooLarge:
		return "file_too_large"
	case ErrorTypeInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Error represents a structured remote error
type Error struct {
	Type    ErrorType `json:"type"`
	Backend string    `json:"backend"`
	Op      string    `json:"op"`
	Path    string    `json:"path,omitempty"`
	Code    string    `json:"code,omitempty"` // Backend-specific error code
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := e.Backend + " " + e.Op
	if e.Path != "" {
		msg += " " + e.Path
	}
	msg += ": " + e.Message
	if e.Code != "" {
		msg += " (code: " + e.Code + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches another *Error of the same type
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Type == t.Type
	}
	return false
}

// NewError creates a new Error
func NewError(errorType ErrorType, backend, op, path, message string, cause error) *Error {
	return &Error{
		Type:    errorType,
		Backend: backend,
		Op:      op,
		Path:    path,
		Message: message,
		Cause:   cause,
	}
}

// Sentinels for errors.Is checks against a category.
var (
	ErrNetwork         = &Error{Type: ErrorTypeNetwork}
	ErrAPI             = &Error{Type: ErrorTypeAPI}
	ErrAuthentication  = &Error{Type: ErrorTypeAuthentication}
	ErrQuota           = &Error{Type: ErrorTypeQuota}
	ErrConflict        = &Error{Type: ErrorTypeConflict}
	ErrFileTooLarge    = &Error{Type: ErrorTypeFileTooLarge}
	ErrInvalidArgument = &Error{Type: ErrorTypeInvalidArgument}
)

// GetErrorType extracts the ErrorType from an error
func GetErrorType(err error) ErrorType {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Type
	}
	return ErrorTypeUnknown
}
