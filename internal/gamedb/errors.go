package gamedb

import "fmt"

// BackupError means the pre-mutation backup copy could not be made. The
// live squad file is untouched when this is returned.
type BackupError struct {
	Path string // backup destination that failed
	Err  error  // underlying error, if any
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("squad database backup failed at %s: %v", e.Path, e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

// WriteError means the final write or the post-write verification failed.
// The backup created earlier in the run is left in place for manual
// recovery.
type WriteError struct {
	Path   string // squad file path
	Reason string // what went wrong
	Err    error  // underlying error, if any
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("squad database write failed at %s: %s", e.Path, e.Reason)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}
