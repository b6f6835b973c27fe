// Package validate provides post-incorporation checks: do the regions that
// received synthetic cells actually expose the expected labels, and do the
// synthetic coordinates land inside their region's bounds. An overlay
// renderer produces PNGs for visual spot checks against reference imagery.
package validate

import (
	"fmt"

	"marrowmap/pkg/domain"
)

// Issue is one validation finding. Issues are collected, not returned as
// errors, so a report can list everything wrong in one pass.
type Issue struct {
	RegionID string
	Detail   string
}

func (i Issue) String() string {
	return fmt.Sprintf("region %s: %s", i.RegionID, i.Detail)
}

// Expectation states how many cells with the given label a region should
// carry in the annotation column after incorporation.
type Expectation struct {
	RegionID string
	Label    string
	Count    int
}

// CheckLabels verifies each expectation against the dataset. A region that
// is missing, lacks the annotation column, or carries the wrong number of
// labeled cells yields an issue.
func CheckLabels(ds domain.Dataset, column string, expectations []Expectation) []Issue {
	var issues []Issue
	for _, exp := range expectations {
		region, ok := ds.Region(exp.RegionID)
		if !ok {
			issues = append(issues, Issue{RegionID: exp.RegionID, Detail: "region not in dataset"})
			continue
		}
		col := region.Metadata.Column(column)
		if col == nil {
			issues = append(issues, Issue{RegionID: exp.RegionID,
				Detail: fmt.Sprintf("annotation column %q missing", column)})
			continue
		}
		count := 0
		for _, v := range col.Values {
			if v != nil && *v == exp.Label {
				count++
			}
		}
		if count != exp.Count {
			issues = append(issues, Issue{RegionID: exp.RegionID,
				Detail: fmt.Sprintf("label %q count = %d, want %d", exp.Label, count, exp.Count)})
		}
	}
	return issues
}

// CheckPlacement verifies that every cell carrying one of the given labels
// sits inside its region's [0,width] x [0,height] bounds. Regions without
// declared bounds are skipped.
func CheckPlacement(ds domain.Dataset, column string, labels []string) []Issue {
	labelSet := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		labelSet[l] = struct{}{}
	}
	var issues []Issue
	for _, region := range ds.Regions {
		if region.Width <= 0 || region.Height <= 0 {
			continue
		}
		col := region.Metadata.Column(column)
		if col == nil {
			continue
		}
		for i, cellID := range region.Metadata.CellIDs {
			if i >= len(col.Values) || col.Values[i] == nil {
				continue
			}
			if _, watched := labelSet[*col.Values[i]]; !watched {
				continue
			}
			cell, found := cellByID(region, cellID)
			if !found {
				issues = append(issues, Issue{RegionID: region.ID,
					Detail: fmt.Sprintf("cell %d has metadata but no coordinates", cellID)})
				continue
			}
			if cell.X < 0 || cell.X > region.Width || cell.Y < 0 || cell.Y > region.Height {
				issues = append(issues, Issue{RegionID: region.ID,
					Detail: fmt.Sprintf("cell %d at (%g, %g) outside %gx%g bounds",
						cellID, cell.X, cell.Y, region.Width, region.Height)})
			}
		}
	}
	return issues
}

func cellByID(region domain.Region, localID int) (domain.Cell, bool) {
	for _, c := range region.Cells {
		if c.LocalID == localID {
			return c, true
		}
	}
	return domain.Cell{}, false
}
