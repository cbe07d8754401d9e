package domain

import "context"

// RowProvider defines the interface for fetching a dataset snapshot from the
// external source (download, disk cache, column mapping all live behind it).
type RowProvider interface {
	// FetchRows returns the latest snapshot. force bypasses any cached copy.
	// Returns ErrSourceUnavailable (possibly wrapped) when no data can be produced.
	FetchRows(ctx context.Context, force bool) (*Snapshot, error)

	// LatestVersion returns the source's current version marker without
	// necessarily downloading the full dataset.
	LatestVersion(ctx context.Context) (string, error)
}
