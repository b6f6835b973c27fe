package incorporate

import (
	"errors"

	"marrowmap/internal/geometry"
	"marrowmap/pkg/domain"
)

// CandidateSet holds the per-region synthetic cells built from one story,
// plus the malformed polygons that were filtered out. Skipped entries are
// reported for logging; they never abort the remaining polygons.
type CandidateSet struct {
	ByRegion map[string][]domain.SyntheticCell
	Skipped  []domain.MalformedAnnotationError
}

// Total counts candidate cells across regions.
func (s CandidateSet) Total() int {
	n := 0
	for _, cells := range s.ByRegion {
		n += len(cells)
	}
	return n
}

// BuildCandidates reduces every polygon of the story to a synthetic cell
// under the given policy. Candidate coordinates stay in working space; the
// merge flips them into stored orientation.
func BuildCandidates(story domain.Story, policy geometry.Policy, label string) (CandidateSet, error) {
	set := CandidateSet{ByRegion: make(map[string][]domain.SyntheticCell)}
	for regionID, polygons := range story.Regions {
		for _, poly := range polygons {
			centroid, err := geometry.Reduce(regionID, poly, policy)
			if err != nil {
				var malformed domain.MalformedAnnotationError
				if errors.As(err, &malformed) {
					set.Skipped = append(set.Skipped, malformed)
					continue
				}
				return CandidateSet{}, err
			}
			set.ByRegion[regionID] = append(set.ByRegion[regionID], domain.SyntheticCell{
				RegionID:  regionID,
				SourceROI: poly.ID,
				X:         centroid.X,
				Y:         centroid.Y,
				Label:     label,
			})
		}
	}
	return set, nil
}
