package usecase

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/pricewatch/backend/internal/domain"
)

// RefreshController owns the single live index reference shared by all query
// callers. Replacement indexes are built fully off to the side and published
// with one swap under the write lock, so concurrent searches always observe
// either the old index or the new one, never a mix, and never block on a
// build in progress. A rebuild requested while one is in flight is rejected
// with ErrRebuildInProgress.
type RefreshController struct {
	provider domain.RowProvider
	builder  *IndexBuilder

	mutex   sync.RWMutex
	current *Index

	rebuilding         atomic.Bool
	enableDebugLogging bool
}

// NewRefreshController creates a controller over the given provider and builder
func NewRefreshController(provider domain.RowProvider, builder *IndexBuilder, enableDebugLogging bool) *RefreshController {
	return &RefreshController{
		provider:           provider,
		builder:            builder,
		enableDebugLogging: enableDebugLogging,
	}
}

// Current returns the live index, or ErrIndexNotReady before the first
// successful build.
func (c *RefreshController) Current() (*Index, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.current == nil {
		return nil, domain.ErrIndexNotReady
	}
	return c.current, nil
}

// MaybeRebuild rebuilds the index when the source reports a newer version
// marker than the live index was built from. Returns the live index and
// whether it was replaced. When the source is unavailable the prior index
// stays live and the error is surfaced alongside it.
func (c *RefreshController) MaybeRebuild(ctx context.Context) (*Index, bool, error) {
	current, err := c.Current()
	if err != nil {
		// First build
		report, buildErr := c.rebuild(ctx, false)
		if buildErr != nil {
			return nil, false, buildErr
		}
		idx, _ := c.Current()
		if c.enableDebugLogging {
			log.Printf("[REFRESH] Initial build: %d products from %d rows", idx.RecordCount(), report.TotalRows)
		}
		return idx, true, nil
	}

	latest, err := c.provider.LatestVersion(ctx)
	if err != nil {
		return current, false, fmt.Errorf("%w: version check failed: %v", domain.ErrSourceUnavailable, err)
	}
	if latest == current.Version() {
		return current, false, nil
	}

	if c.enableDebugLogging {
		log.Printf("[REFRESH] Version changed %q -> %q, rebuilding", current.Version(), latest)
	}
	if _, err := c.rebuild(ctx, false); err != nil {
		// Stale but available beats unavailable
		return current, false, err
	}
	idx, _ := c.Current()
	return idx, true, nil
}

// ForceRefresh rebuilds unconditionally from a fresh snapshot. On failure the
// prior index remains live and queryable.
func (c *RefreshController) ForceRefresh(ctx context.Context) (*domain.BuildReport, error) {
	return c.rebuild(ctx, true)
}

// rebuild fetches a snapshot, builds the replacement index aside, and swaps
// it in only after a successful build
func (c *RefreshController) rebuild(ctx context.Context, force bool) (*domain.BuildReport, error) {
	if !c.rebuilding.CompareAndSwap(false, true) {
		return nil, domain.ErrRebuildInProgress
	}
	defer c.rebuilding.Store(false)

	snapshot, err := c.provider.FetchRows(ctx, force)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}

	index, report, err := c.builder.Build(snapshot)
	if err != nil {
		return report, err
	}

	c.mutex.Lock()
	c.current = index
	c.mutex.Unlock()

	if c.enableDebugLogging {
		log.Printf("[REFRESH] Swapped in index version %q: %d products (%d rows skipped)",
			index.Version(), index.RecordCount(), report.SkippedRows)
	}

	return report, nil
}
