package rangedb

import (
	"errors"
	"fmt"
)

var (
	// ErrBadMagic: the file does not start with the format marker.
	ErrBadMagic = errors.New("unknown magic marker")

	// ErrBadVersion: the format version is one this loader does not
	// recognize. Refuse rather than guess.
	ErrBadVersion = errors.New("unsupported format version")

	// ErrWrongDataset: a valid database file of another dataset kind.
	ErrWrongDataset = errors.New("unexpected dataset kind")

	// ErrTruncated: the byte stream ended before decoding finished.
	ErrTruncated = errors.New("truncated or corrupt database")
)

// FormatError describes why a database file could not be loaded. One
// failing database never prevents the others from loading.
type FormatError struct {
	Path    string
	Dataset Dataset
	Err     error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot load %s database from %s: %v", e.Dataset, e.Path, e.Err)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// InvariantError is a programming error: a table that violates
// sortedness or non-overlap reached the encoder. It is never the
// result of bad input data, which is filtered long before encoding.
type InvariantError struct {
	Dataset Dataset
	Family  Family
	Index   int
	Reason  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation in %s/%s table at record %d: %s",
		e.Dataset, e.Family, e.Index, e.Reason)
}
