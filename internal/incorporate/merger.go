// Package incorporate merges synthetic cells derived from ROI annotations
// into the per-region tables of a spatial dataset.
package incorporate

import (
	"fmt"
	"sort"

	"marrowmap/internal/geometry"
	"marrowmap/pkg/domain"
)

// Options configures a merge pass.
type Options struct {
	// AnnotationColumn is the categorical metadata column that receives the
	// fixed label for synthesized cells. Defaults to "cell_type".
	AnnotationColumn string
	// Label is the literal annotation value written for every synthetic cell
	// of the pass ("FAT", "MEGAKARYOCYTE", ...).
	Label string
	// Workers bounds the dataset-level fan-out. Zero means one worker per
	// region.
	Workers int
}

func (o Options) annotationColumn() string {
	if o.AnnotationColumn == "" {
		return "cell_type"
	}
	return o.AnnotationColumn
}

// MergeRegion incorporates the candidate cells into one region. With no
// candidates the input region is returned unchanged. Otherwise the merge is
// all-or-none: it operates on a deep clone and the clone is returned only
// after every per-cell table has been updated, so a failure leaves no
// partial state behind.
func MergeRegion(region domain.Region, candidates []domain.SyntheticCell, opts Options) (domain.Region, error) {
	if len(candidates) == 0 {
		return region, nil
	}
	if opts.Label == "" {
		return domain.Region{}, fmt.Errorf("merge options: label required")
	}
	if err := checkSchema(region); err != nil {
		return domain.Region{}, err
	}

	out := region.Clone()

	existing := make(map[int]struct{}, len(out.Cells))
	for _, c := range out.Cells {
		existing[c.LocalID] = struct{}{}
	}
	next := out.MaxLocalID() + 1

	minted := make([]int, 0, len(candidates))
	for range candidates {
		if _, collides := existing[next]; collides {
			return domain.Region{}, domain.IdentifierCollisionError{RegionID: region.ID, LocalID: next}
		}
		minted = append(minted, next)
		next++
	}

	// Coordinate table. Candidate centroids are working-space; one flip
	// anchors them to the stored orientation the originals already use.
	for i, cand := range candidates {
		stored := geometry.FlipY(domain.Point{X: cand.X, Y: cand.Y}, out.Height)
		out.Cells = append(out.Cells, domain.Cell{LocalID: minted[i], X: stored.X, Y: stored.Y})
	}

	// Expression matrices: one zero-filled column per synthetic cell, same
	// channel set, appended to each matrix's own columns.
	for mi := range out.Expression {
		m := &out.Expression[mi]
		m.CellIDs = append(m.CellIDs, minted...)
		for ci := range m.Values {
			m.Values[ci] = append(m.Values[ci], make([]float64, len(minted))...)
		}
	}

	mergeMetadata(&out.Metadata, minted, opts.annotationColumn(), opts.Label)
	return out, nil
}

// mergeMetadata performs the outer merge keyed by cell id: synthetic rows
// carry the annotation label, stay unset in every other cell-scoped column,
// and inherit region-level values through forward fill of project columns.
func mergeMetadata(table *domain.MetadataTable, minted []int, column, label string) {
	table.CellIDs = append(table.CellIDs, minted...)

	if table.Column(column) == nil {
		table.Columns = append(table.Columns, domain.MetadataColumn{
			Name:   column,
			Scope:  domain.ScopeCell,
			Values: make([]*string, len(table.CellIDs)-len(minted)),
		})
	}

	for i := range table.Columns {
		col := &table.Columns[i]
		pad := make([]*string, len(minted))
		if col.Name == column {
			for j := range pad {
				v := label
				pad[j] = &v
			}
		} else if col.Scope == domain.ScopeProject {
			if fill := firstSet(col.Values); fill != nil {
				for j := range pad {
					v := *fill
					pad[j] = &v
				}
			}
		}
		col.Values = append(col.Values, pad...)
	}
}

func firstSet(values []*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// checkSchema verifies that every expression matrix still mirrors the
// coordinate table before any rows are appended. Drift is fatal for the
// region: zero-filled placeholder columns would otherwise be attached to the
// wrong cells.
func checkSchema(region domain.Region) error {
	cellIDs := make([]int, 0, len(region.Cells))
	for _, c := range region.Cells {
		cellIDs = append(cellIDs, c.LocalID)
	}
	sort.Ints(cellIDs)

	for _, m := range region.Expression {
		if len(m.Values) != len(m.Channels) {
			return domain.SchemaMismatchError{
				RegionID: region.ID, Matrix: m.Name,
				Detail: fmt.Sprintf("%d value rows for %d channels", len(m.Values), len(m.Channels)),
			}
		}
		for ci, row := range m.Values {
			if len(row) != len(m.CellIDs) {
				return domain.SchemaMismatchError{
					RegionID: region.ID, Matrix: m.Name,
					Detail: fmt.Sprintf("channel %s has %d values for %d cells", m.Channels[ci], len(row), len(m.CellIDs)),
				}
			}
		}
		if len(m.CellIDs) != len(cellIDs) {
			return domain.SchemaMismatchError{
				RegionID: region.ID, Matrix: m.Name,
				Detail: fmt.Sprintf("%d matrix cells for %d coordinate rows", len(m.CellIDs), len(cellIDs)),
			}
		}
		matIDs := append([]int(nil), m.CellIDs...)
		sort.Ints(matIDs)
		for i := range matIDs {
			if matIDs[i] != cellIDs[i] {
				return domain.SchemaMismatchError{
					RegionID: region.ID, Matrix: m.Name,
					Detail: fmt.Sprintf("cell id set differs from coordinate table (first divergence %d vs %d)", matIDs[i], cellIDs[i]),
				}
			}
		}
	}
	return nil
}
