package validate

import (
	"bytes"
	"image/png"
	"testing"

	"marrowmap/pkg/domain"
)

func sptr(s string) *string { return &s }

func annotatedRegion() domain.Region {
	return domain.Region{
		ID:     "reg001",
		Height: 100,
		Width:  100,
		Cells: []domain.Cell{
			{LocalID: 1, X: 10, Y: 20},
			{LocalID: 2, X: 50, Y: 60},
			{LocalID: 501, X: 40, Y: 90},
		},
		Metadata: domain.MetadataTable{
			CellIDs: []int{1, 2, 501},
			Columns: []domain.MetadataColumn{{
				Name:   "cell_type",
				Scope:  domain.ScopeCell,
				Values: []*string{sptr("CD4 T cell"), nil, sptr("FAT")},
			}},
		},
	}
}

func TestCheckLabels(t *testing.T) {
	ds := domain.Dataset{Name: "codex-bm", Regions: []domain.Region{annotatedRegion()}}

	if issues := CheckLabels(ds, "cell_type", []Expectation{{RegionID: "reg001", Label: "FAT", Count: 1}}); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	for _, tc := range []struct {
		name string
		exp  Expectation
	}{
		{"wrong count", Expectation{RegionID: "reg001", Label: "FAT", Count: 3}},
		{"missing region", Expectation{RegionID: "reg999", Label: "FAT", Count: 1}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			issues := CheckLabels(ds, "cell_type", []Expectation{tc.exp})
			if len(issues) != 1 {
				t.Fatalf("issues = %v", issues)
			}
		})
	}

	issues := CheckLabels(ds, "other_column", []Expectation{{RegionID: "reg001", Label: "FAT", Count: 1}})
	if len(issues) != 1 {
		t.Fatalf("missing column issues = %v", issues)
	}
}

func TestCheckPlacement(t *testing.T) {
	region := annotatedRegion()
	ds := domain.Dataset{Regions: []domain.Region{region}}
	if issues := CheckPlacement(ds, "cell_type", []string{"FAT"}); len(issues) != 0 {
		t.Fatalf("unexpected issues: %v", issues)
	}

	region.Cells[2].Y = 150 // above the region's vertical extent
	ds = domain.Dataset{Regions: []domain.Region{region}}
	issues := CheckPlacement(ds, "cell_type", []string{"FAT"})
	if len(issues) != 1 || issues[0].RegionID != "reg001" {
		t.Fatalf("issues = %v", issues)
	}

	// unwatched labels never produce placement issues
	if issues := CheckPlacement(ds, "cell_type", []string{"MEGAKARYOCYTE"}); len(issues) != 0 {
		t.Fatalf("unwatched label issues = %v", issues)
	}
}

func TestCheckPlacementOrphanMetadataRow(t *testing.T) {
	region := annotatedRegion()
	region.Cells = region.Cells[:2] // metadata still references cell 501
	ds := domain.Dataset{Regions: []domain.Region{region}}
	issues := CheckPlacement(ds, "cell_type", []string{"FAT"})
	if len(issues) != 1 {
		t.Fatalf("issues = %v", issues)
	}
}

func TestRenderOverlay(t *testing.T) {
	data, err := RenderOverlay(annotatedRegion(), "cell_type", []string{"FAT"})
	if err != nil {
		t.Fatalf("RenderOverlay: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != 101 || bounds.Dy() != 101 {
		t.Fatalf("bounds = %v", bounds)
	}
	// synthetic cell at stored (40, 90) renders near canvas (40, 10)
	r, g, b, _ := img.At(40, 10).RGBA()
	if r>>8 != 204 || g>>8 != 0 || b>>8 != 51 {
		t.Fatalf("highlight pixel = (%d, %d, %d)", r>>8, g>>8, b>>8)
	}

	if _, err := RenderOverlay(domain.Region{ID: "flat"}, "cell_type", nil); err == nil {
		t.Fatalf("boundless region accepted")
	}
}
