package domain

import "testing"

func sptr(s string) *string { return &s }

func sampleRegion() Region {
	return Region{
		ID:     "reg001",
		Height: 100,
		Width:  200,
		Cells: []Cell{
			{LocalID: 1, X: 10, Y: 20},
			{LocalID: 5, X: 30, Y: 40},
		},
		Expression: []Matrix{{
			Name:     "raw",
			Channels: []string{"CD34", "CD61"},
			CellIDs:  []int{1, 5},
			Values:   [][]float64{{0.5, 1.5}, {2.0, 3.0}},
		}},
		Metadata: MetadataTable{
			CellIDs: []int{1, 5},
			Columns: []MetadataColumn{
				{Name: "cell_type", Scope: ScopeCell, Values: []*string{sptr("HSC"), nil}},
				{Name: "donor", Scope: ScopeProject, Values: []*string{sptr("D12"), sptr("D12")}},
			},
		},
	}
}

func TestRegionMaxLocalID(t *testing.T) {
	r := sampleRegion()
	if got := r.MaxLocalID(); got != 5 {
		t.Fatalf("MaxLocalID = %d, want 5", got)
	}
	if got := (Region{}).MaxLocalID(); got != -1 {
		t.Fatalf("empty region MaxLocalID = %d, want -1", got)
	}
}

func TestRegionGlobalID(t *testing.T) {
	r := sampleRegion()
	if got := r.GlobalID(501); got != "reg001-501" {
		t.Fatalf("GlobalID = %q", got)
	}
}

func TestMetadataTableValue(t *testing.T) {
	r := sampleRegion()
	if v, ok := r.Metadata.Value("cell_type", 1); !ok || v != "HSC" {
		t.Fatalf("Value(cell_type,1) = %q,%v", v, ok)
	}
	if _, ok := r.Metadata.Value("cell_type", 5); ok {
		t.Fatalf("unset value should report false")
	}
	if _, ok := r.Metadata.Value("missing", 1); ok {
		t.Fatalf("missing column should report false")
	}
	if _, ok := r.Metadata.Value("cell_type", 99); ok {
		t.Fatalf("unknown cell should report false")
	}
}

func TestRegionCloneIsDeep(t *testing.T) {
	orig := sampleRegion()
	clone := orig.Clone()

	clone.Cells[0].X = 999
	clone.Expression[0].Values[0][0] = 999
	*clone.Metadata.Columns[0].Values[0] = "changed"
	clone.Metadata.CellIDs[0] = 999

	if orig.Cells[0].X != 10 {
		t.Fatalf("clone shares coordinate backing array")
	}
	if orig.Expression[0].Values[0][0] != 0.5 {
		t.Fatalf("clone shares matrix backing array")
	}
	if *orig.Metadata.Columns[0].Values[0] != "HSC" {
		t.Fatalf("clone shares metadata string pointers")
	}
	if orig.Metadata.CellIDs[0] != 1 {
		t.Fatalf("clone shares metadata id slice")
	}
}

func TestDatasetRegionLookup(t *testing.T) {
	ds := Dataset{Name: "bm", Regions: []Region{sampleRegion(), {ID: "reg002"}}}
	if _, ok := ds.Region("reg002"); !ok {
		t.Fatalf("reg002 expected")
	}
	if _, ok := ds.Region("nope"); ok {
		t.Fatalf("unknown region should report false")
	}
	ids := ds.RegionIDs()
	if len(ids) != 2 || ids[0] != "reg001" || ids[1] != "reg002" {
		t.Fatalf("RegionIDs = %v", ids)
	}
}
