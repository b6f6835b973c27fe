package incorporate

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"marrowmap/pkg/domain"
)

// Apply runs MergeRegion across every region of the dataset. Regions are
// independent, so the map is data-parallel with a barrier join before the
// merged dataset is assembled. A region without candidates passes through
// unchanged. A failed region keeps its original content and is reported in
// the returned ApplyError together with every other failed region; one bad
// region never aborts or corrupts the rest.
func Apply(ctx context.Context, ds domain.Dataset, candidates map[string][]domain.SyntheticCell, opts Options) (domain.Dataset, error) {
	out := domain.Dataset{Name: ds.Name, Description: ds.Description}
	out.Regions = make([]domain.Region, len(ds.Regions))

	var (
		mu     sync.Mutex
		failed []domain.RegionError
	)

	eg, egCtx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		eg.SetLimit(opts.Workers)
	}
	for i := range ds.Regions {
		region := ds.Regions[i]
		slot := i
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			merged, err := MergeRegion(region, candidates[region.ID], opts)
			if err != nil {
				mu.Lock()
				failed = append(failed, domain.RegionError{RegionID: region.ID, Err: err})
				mu.Unlock()
				out.Regions[slot] = region
				return nil
			}
			out.Regions[slot] = merged
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		// Only context cancellation reaches here; merge failures are
		// collected per region above.
		return domain.Dataset{}, err
	}
	if len(failed) > 0 {
		return out, &domain.ApplyError{Regions: failed}
	}
	return out, nil
}
