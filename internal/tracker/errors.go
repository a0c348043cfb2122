package tracker

import (
	"fmt"
	"strings"
)

type sentinelError string

func (e sentinelError) Error() string { return string(e) }

const (
	// ErrNotFound reports an unknown entry or invoice id.
	ErrNotFound = sentinelError("not found")
	// ErrInvalidState reports an operation that is illegal for the entry's
	// current lifecycle state, such as stopping an already-stopped timer.
	ErrInvalidState = sentinelError("invalid state")
	// ErrConflict reports an attempt to mutate or delete a billed entry.
	ErrConflict = sentinelError("conflict")
	// ErrInvalidInput reports a malformed request, such as an entry id list
	// that references missing, cross-project, running, or already-billed
	// entries.
	ErrInvalidInput = sentinelError("invalid input")
)

// InvalidInputError carries the entry ids that failed invoice validation so
// the caller can see exactly which ids to drop before retrying with a fresh
// unbilled set. It matches ErrInvalidInput under errors.Is.
type InvalidInputError struct {
	Reason   string
	EntryIDs []int64
}

func (e *InvalidInputError) Error() string {
	if len(e.EntryIDs) == 0 {
		return e.Reason
	}
	ids := make([]string, len(e.EntryIDs))
	for i, id := range e.EntryIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("%s (entry ids: %s)", e.Reason, strings.Join(ids, ", "))
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }
