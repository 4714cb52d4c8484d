package models

import "errors"

// Error kinds. Wrap with fmt.Errorf("...: %w", ErrX) and test with errors.Is.
var (
	// ErrFetchFailure covers transport errors, timeouts, and non-2xx responses.
	ErrFetchFailure = errors.New("fetch failure")
	// ErrExtractionFailure means the raw bytes could not be turned into text.
	ErrExtractionFailure = errors.New("extraction failure")
	// ErrIndexFailure is a write or query error on the chunk store or indices.
	ErrIndexFailure = errors.New("index failure")
	// ErrConfiguration is a missing capability or invalid setting; fatal at startup.
	ErrConfiguration = errors.New("configuration error")
)
