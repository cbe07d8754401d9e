package domain

import "errors"

var (
	// ErrMalformedRow is returned when a raw catalog row cannot be turned into a search record
	ErrMalformedRow = errors.New("malformed catalog row")

	// ErrEmptyIndex is returned when an index build produced no usable records
	ErrEmptyIndex = errors.New("no usable records to index")

	// ErrInvalidQuery is returned when query text or limit is invalid
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrSourceUnavailable is returned when the dataset source cannot produce rows
	ErrSourceUnavailable = errors.New("dataset source unavailable")

	// ErrRebuildInProgress is returned when a rebuild is requested while one is running
	ErrRebuildInProgress = errors.New("index rebuild already in progress")

	// ErrIndexNotReady is returned when no index has been built yet
	ErrIndexNotReady = errors.New("index not built yet")
)
