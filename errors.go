package migrate

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoChange = errors.New("no change")
	ErrLocked   = errors.New("migrate locked")
)

// ChecksumMismatchError means an applied migration's file was edited after
// it was applied.
type ChecksumMismatchError struct {
	Version  string
	Source   string
	Stored   string
	Computed string
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch for version %v (%v): stored %v, file %v", e.Version, e.Source, e.Stored, e.Computed)
}

// MissingFileError means an applied migration has no file in the source.
type MissingFileError struct {
	Version string
	Source  string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("migration %v (%v) is applied but its file is missing", e.Version, e.Source)
}

// TransactionError is a failed statement. The migration it belongs to was
// rolled back.
type TransactionError struct {
	Version   string
	Statement string
	Err       error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("migration %v failed in statement %q: %v", e.Version, e.Statement, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

type MigrationNotFoundError struct {
	Target string
}

func (e *MigrationNotFoundError) Error() string {
	return fmt.Sprintf("no applied migration matches %q", e.Target)
}

// ValidationError is returned by a fail fast Validate.
type ValidationError struct {
	Failures []Failure
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.String())
	}
	return fmt.Sprintf("validation failed with %d failure(s): %s", len(e.Failures), strings.Join(msgs, "; "))
}
