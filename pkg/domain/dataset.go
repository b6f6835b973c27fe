// Package domain defines the core value types for spatial single-cell
// datasets: regions, cell tables, expression matrices, ROI annotations, and
// the synthetic cells derived from them.
package domain

import (
	"fmt"
	"sort"
)

// Point is a coordinate in either stored or working (viewer) space.
// Which space a point lives in is a property of the code path, not the type;
// conversions go through the orientation flip.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Cell is one row of a region's coordinate table. LocalID is unique within
// the owning region; coordinates are in stored orientation.
type Cell struct {
	LocalID int     `json:"local_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
}

// ColumnScope distinguishes per-cell metadata from region-level (project)
// metadata that every cell of a region shares.
type ColumnScope string

const (
	// ScopeCell marks a column holding per-cell values.
	ScopeCell ColumnScope = "cell"
	// ScopeProject marks a region-level column; synthetic cells inherit its
	// value via forward fill during merge.
	ScopeProject ColumnScope = "project"
)

// MetadataColumn is one named column of a region's metadata table. Values
// align with the table's cell order; nil means unset.
type MetadataColumn struct {
	Name   string      `json:"name"`
	Scope  ColumnScope `json:"scope"`
	Values []*string   `json:"values"`
}

// MetadataTable holds per-cell metadata in columnar form, row-aligned with
// the owning region's coordinate table.
type MetadataTable struct {
	CellIDs []int            `json:"cell_ids"`
	Columns []MetadataColumn `json:"columns"`
}

// Column returns the named column, or nil when absent.
func (t *MetadataTable) Column(name string) *MetadataColumn {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Value returns the column value for the given local cell id. The second
// return reports whether the cell exists and the value is set.
func (t *MetadataTable) Value(column string, localID int) (string, bool) {
	col := t.Column(column)
	if col == nil {
		return "", false
	}
	for i, id := range t.CellIDs {
		if id == localID {
			if i >= len(col.Values) || col.Values[i] == nil {
				return "", false
			}
			return *col.Values[i], true
		}
	}
	return "", false
}

// Clone returns a deep copy of the table.
func (t MetadataTable) Clone() MetadataTable {
	out := MetadataTable{CellIDs: append([]int(nil), t.CellIDs...)}
	out.Columns = make([]MetadataColumn, len(t.Columns))
	for i, col := range t.Columns {
		values := make([]*string, len(col.Values))
		for j, v := range col.Values {
			if v != nil {
				s := *v
				values[j] = &s
			}
		}
		out.Columns[i] = MetadataColumn{Name: col.Name, Scope: col.Scope, Values: values}
	}
	return out
}

// Matrix is one expression matrix of a region: rows are channels, columns
// are cells keyed by local id. A region may own several (raw, normalized,
// background-subtracted, ...), all over the same channel set.
type Matrix struct {
	Name     string      `json:"name"`
	Channels []string    `json:"channels"`
	CellIDs  []int       `json:"cell_ids"`
	Values   [][]float64 `json:"values"`
}

// Clone returns a deep copy of the matrix.
func (m Matrix) Clone() Matrix {
	out := Matrix{
		Name:     m.Name,
		Channels: append([]string(nil), m.Channels...),
		CellIDs:  append([]int(nil), m.CellIDs...),
	}
	out.Values = make([][]float64, len(m.Values))
	for i, row := range m.Values {
		out.Values[i] = append([]float64(nil), row...)
	}
	return out
}

// Region is one spatial acquisition unit of a dataset. All per-cell tables
// are keyed by the local cell identifier; Height is the vertical pixel
// extent used by the orientation flip.
type Region struct {
	ID         string        `json:"id"`
	Height     float64       `json:"height"`
	Width      float64       `json:"width"`
	Cells      []Cell        `json:"cells"`
	Expression []Matrix      `json:"expression"`
	Metadata   MetadataTable `json:"metadata"`
}

// MaxLocalID returns the largest local cell identifier in the region, or -1
// when the region holds no cells.
func (r Region) MaxLocalID() int {
	max := -1
	for _, c := range r.Cells {
		if c.LocalID > max {
			max = c.LocalID
		}
	}
	return max
}

// GlobalID composes the exposed, dataset-wide identifier for a local cell id.
func (r Region) GlobalID(localID int) string {
	return fmt.Sprintf("%s-%d", r.ID, localID)
}

// Clone returns a deep copy of the region.
func (r Region) Clone() Region {
	out := Region{ID: r.ID, Height: r.Height, Width: r.Width}
	out.Cells = append([]Cell(nil), r.Cells...)
	out.Expression = make([]Matrix, len(r.Expression))
	for i, m := range r.Expression {
		out.Expression[i] = m.Clone()
	}
	out.Metadata = r.Metadata.Clone()
	return out
}

// Dataset is the whole-study object: a set of regions plus a name used for
// persistence keys.
type Dataset struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Regions     []Region `json:"regions"`
}

// Region returns the region with the given id, or false when absent.
func (d Dataset) Region(id string) (Region, bool) {
	for _, r := range d.Regions {
		if r.ID == id {
			return r, true
		}
	}
	return Region{}, false
}

// RegionIDs returns the sorted region identifiers.
func (d Dataset) RegionIDs() []string {
	ids := make([]string, 0, len(d.Regions))
	for _, r := range d.Regions {
		ids = append(ids, r.ID)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of the dataset.
func (d Dataset) Clone() Dataset {
	out := Dataset{Name: d.Name, Description: d.Description}
	out.Regions = make([]Region, len(d.Regions))
	for i, r := range d.Regions {
		out.Regions[i] = r.Clone()
	}
	return out
}
