package core

import (
	"errors"
	"fmt"

	"github.com/valter-silva-au/tasklists/pkg/models"
)

// ErrMissingCredentials is returned when a sync is attempted without a
// token, repository or file path.
var ErrMissingCredentials = errors.New("missing credentials")

// ErrSyncInProgress is returned when a session already has a sync running.
var ErrSyncInProgress = errors.New("a sync operation is already in progress")

// ErrSingleSelectionRequired is returned when editing with zero or several
// tasks selected.
var ErrSingleSelectionRequired = errors.New("select exactly one task to edit")

// InvalidIndexError reports a task position outside the list bounds.
type InvalidIndexError struct {
	List  models.ListID
	Index int
	Len   int
}

func (e *InvalidIndexError) Error() string {
	return fmt.Sprintf("invalid index %d for %s (%d tasks)", e.Index, e.List.DisplayName(), e.Len)
}

// UnknownListError reports a list identifier outside the fixed set.
type UnknownListError struct {
	List models.ListID
}

func (e *UnknownListError) Error() string {
	return fmt.Sprintf("unknown list %q", string(e.List))
}

// RemoteReadError carries the HTTP status of a failed load.
type RemoteReadError struct {
	Status int
}

func (e *RemoteReadError) Error() string {
	return fmt.Sprintf("failed to load from GitHub: status code %d", e.Status)
}

// RemoteWriteError carries the HTTP status of a failed save.
type RemoteWriteError struct {
	Status int
}

func (e *RemoteWriteError) Error() string {
	return fmt.Sprintf("failed to save to GitHub: status code %d", e.Status)
}

// SyncError wraps a transport or decoding failure. Msg is kept verbatim for
// display.
type SyncError struct {
	Msg string
	Err error
}

func (e *SyncError) Error() string {
	return "sync error: " + e.Msg
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

func newSyncError(err error) *SyncError {
	return &SyncError{Msg: err.Error(), Err: err}
}

// StatusMessage renders err as the one-line status shown to the user.
// A nil error renders as the empty string.
func StatusMessage(err error) string {
	if err == nil {
		return ""
	}

	var idxErr *InvalidIndexError
	var listErr *UnknownListError
	var readErr *RemoteReadError
	var writeErr *RemoteWriteError
	var syncErr *SyncError

	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "Please provide GitHub token, repository name, and file path"
	case errors.Is(err, ErrSyncInProgress):
		return "A save or load is already running"
	case errors.Is(err, ErrSingleSelectionRequired):
		return "Select exactly one task to edit"
	case errors.As(err, &readErr):
		return fmt.Sprintf("Failed to load from GitHub. Status code: %d", readErr.Status)
	case errors.As(err, &writeErr):
		return fmt.Sprintf("Failed to save to GitHub. Status code: %d", writeErr.Status)
	case errors.As(err, &syncErr):
		return "Error: " + syncErr.Msg
	case errors.As(err, &idxErr):
		return fmt.Sprintf("Task %d does not exist in %s", idxErr.Index+1, idxErr.List.DisplayName())
	case errors.As(err, &listErr):
		return fmt.Sprintf("Unknown list %q", string(listErr.List))
	default:
		return "Error: " + err.Error()
	}
}
