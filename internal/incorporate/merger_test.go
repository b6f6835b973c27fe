package incorporate

import (
	"errors"
	"reflect"
	"testing"

	"marrowmap/pkg/domain"
)

func sptr(s string) *string { return &s }

// testRegion builds a region with three segmented cells and two matrices.
func testRegion() domain.Region {
	return domain.Region{
		ID:     "reg001",
		Height: 100,
		Width:  100,
		Cells: []domain.Cell{
			{LocalID: 1, X: 10, Y: 90},
			{LocalID: 2, X: 20, Y: 80},
			{LocalID: 3, X: 30, Y: 70},
		},
		Expression: []domain.Matrix{
			{
				Name:     "raw",
				Channels: []string{"CD34", "CD61", "CD71"},
				CellIDs:  []int{1, 2, 3},
				Values: [][]float64{
					{1, 2, 3},
					{4, 5, 6},
					{7, 8, 9},
				},
			},
			{
				Name:     "background",
				Channels: []string{"CD34", "CD61", "CD71"},
				CellIDs:  []int{1, 2, 3},
				Values: [][]float64{
					{0.1, 0.2, 0.3},
					{0.4, 0.5, 0.6},
					{0.7, 0.8, 0.9},
				},
			},
		},
		Metadata: domain.MetadataTable{
			CellIDs: []int{1, 2, 3},
			Columns: []domain.MetadataColumn{
				{Name: "cell_type", Scope: domain.ScopeCell, Values: []*string{sptr("HSC"), sptr("Erythroid"), sptr("HSC")}},
				{Name: "size_um", Scope: domain.ScopeCell, Values: []*string{sptr("8"), sptr("9"), nil}},
				{Name: "donor", Scope: domain.ScopeProject, Values: []*string{sptr("D12"), sptr("D12"), sptr("D12")}},
			},
		},
	}
}

func TestMergeRegionNoCandidatesIsIdentity(t *testing.T) {
	region := testRegion()
	out, err := MergeRegion(region, nil, Options{Label: "FAT"})
	if err != nil {
		t.Fatalf("MergeRegion: %v", err)
	}
	if !reflect.DeepEqual(out, region) {
		t.Fatalf("identity transform expected for empty candidate set")
	}
}

func TestMergeRegionAppendsConsistentRows(t *testing.T) {
	region := testRegion()
	cands := []domain.SyntheticCell{
		{RegionID: "reg001", SourceROI: "roi-a", X: 40, Y: 10, Label: "FAT"},
		{RegionID: "reg001", SourceROI: "roi-b", X: 50, Y: 20, Label: "FAT"},
	}

	out, err := MergeRegion(region, cands, Options{Label: "FAT"})
	if err != nil {
		t.Fatalf("MergeRegion: %v", err)
	}

	// input untouched
	if len(region.Cells) != 3 || len(region.Metadata.CellIDs) != 3 {
		t.Fatalf("input region mutated")
	}

	// every per-cell table grew by exactly len(cands)
	if len(out.Cells) != 5 {
		t.Fatalf("coordinate rows = %d, want 5", len(out.Cells))
	}
	if len(out.Metadata.CellIDs) != 5 {
		t.Fatalf("metadata rows = %d, want 5", len(out.Metadata.CellIDs))
	}
	for _, m := range out.Expression {
		if len(m.CellIDs) != 5 {
			t.Fatalf("matrix %s cells = %d, want 5", m.Name, len(m.CellIDs))
		}
		if len(m.Channels) != 3 {
			t.Fatalf("matrix %s channel set changed", m.Name)
		}
		for ci, row := range m.Values {
			if len(row) != 5 {
				t.Fatalf("matrix %s channel %d has %d values", m.Name, ci, len(row))
			}
			if row[3] != 0 || row[4] != 0 {
				t.Fatalf("matrix %s placeholder values not zero: %v", m.Name, row)
			}
		}
	}

	// minted ids continue from max existing, strictly increasing
	if out.Cells[3].LocalID != 4 || out.Cells[4].LocalID != 5 {
		t.Fatalf("minted ids = %d,%d want 4,5", out.Cells[3].LocalID, out.Cells[4].LocalID)
	}

	// working-space centroid anchored to stored orientation via flip
	if out.Cells[3].X != 40 || out.Cells[3].Y != 90 {
		t.Fatalf("stored coordinate = (%v,%v), want (40,90)", out.Cells[3].X, out.Cells[3].Y)
	}

	// annotation column set, all other cell-scoped fields unset
	for _, id := range []int{4, 5} {
		if v, ok := out.Metadata.Value("cell_type", id); !ok || v != "FAT" {
			t.Fatalf("cell %d annotation = %q,%v", id, v, ok)
		}
		if _, ok := out.Metadata.Value("size_um", id); ok {
			t.Fatalf("cell %d inherited a cell-scoped field", id)
		}
		if v, ok := out.Metadata.Value("donor", id); !ok || v != "D12" {
			t.Fatalf("cell %d project column = %q,%v, want forward-filled D12", id, v, ok)
		}
	}

	// existing rows untouched
	if v, ok := out.Metadata.Value("cell_type", 1); !ok || v != "HSC" {
		t.Fatalf("existing annotation changed: %q,%v", v, ok)
	}
}

func TestMergeRegionCreatesAnnotationColumn(t *testing.T) {
	region := testRegion()
	region.Metadata.Columns = region.Metadata.Columns[1:] // drop cell_type

	out, err := MergeRegion(region, []domain.SyntheticCell{{X: 1, Y: 1, Label: "FAT"}}, Options{Label: "FAT"})
	if err != nil {
		t.Fatalf("MergeRegion: %v", err)
	}
	col := out.Metadata.Column("cell_type")
	if col == nil {
		t.Fatalf("annotation column not created")
	}
	if v, ok := out.Metadata.Value("cell_type", 4); !ok || v != "FAT" {
		t.Fatalf("synthetic annotation = %q,%v", v, ok)
	}
	if _, ok := out.Metadata.Value("cell_type", 1); ok {
		t.Fatalf("existing cells must stay unset in a freshly created column")
	}
}

func TestMergeRegionSchemaMismatchIsFatal(t *testing.T) {
	region := testRegion()
	region.Expression[1].CellIDs = []int{1, 2} // background matrix lost a cell
	region.Expression[1].Values = [][]float64{{0.1, 0.2}, {0.4, 0.5}, {0.7, 0.8}}

	_, err := MergeRegion(region, []domain.SyntheticCell{{X: 1, Y: 1, Label: "FAT"}}, Options{Label: "FAT"})
	var mismatch domain.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want SchemaMismatchError, got %v", err)
	}
	if mismatch.Matrix != "background" || mismatch.RegionID != "reg001" {
		t.Fatalf("mismatch misattributed: %+v", mismatch)
	}
}

func TestMergeRegionRaggedMatrixIsFatal(t *testing.T) {
	region := testRegion()
	region.Expression[0].Values[2] = []float64{7, 8} // short channel row

	_, err := MergeRegion(region, []domain.SyntheticCell{{X: 1, Y: 1, Label: "FAT"}}, Options{Label: "FAT"})
	var mismatch domain.SchemaMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want SchemaMismatchError, got %v", err)
	}
}

func TestMergeRegionRequiresLabel(t *testing.T) {
	if _, err := MergeRegion(testRegion(), []domain.SyntheticCell{{X: 1, Y: 1}}, Options{}); err == nil {
		t.Fatalf("missing label accepted")
	}
}

func TestMergeRegionFailureLeavesNoPartialState(t *testing.T) {
	region := testRegion()
	region.Expression[1].CellIDs = []int{1, 2}
	region.Expression[1].Values = [][]float64{{0.1, 0.2}, {0.4, 0.5}, {0.7, 0.8}}
	before := region.Clone()

	if _, err := MergeRegion(region, []domain.SyntheticCell{{X: 1, Y: 1, Label: "FAT"}}, Options{Label: "FAT"}); err == nil {
		t.Fatalf("expected failure")
	}
	if !reflect.DeepEqual(region, before) {
		t.Fatalf("failed merge mutated its input")
	}
}
