package atlas

import "errors"

var (
	// ErrMalformedIP: the query string is not an IP address of either
	// family. Rejected outright, never matched against a table.
	ErrMalformedIP = errors.New("malformed ip address")

	// ErrNotLoaded: the dataset's database is not part of the current
	// snapshot, either because LoadAll has not run or because that one
	// file failed to load.
	ErrNotLoaded = errors.New("database is not loaded")

	// ErrLoadFailed is returned by strict loading when any database
	// fails; non-strict callers get partial capability instead.
	ErrLoadFailed = errors.New("cannot load all databases")
)
