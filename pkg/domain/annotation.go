package domain

// Polygon is one manually drawn ROI: an identifier plus an ordered vertex
// list in working (viewer) space.
type Polygon struct {
	ID       string  `json:"id"`
	Vertices []Point `json:"vertices"`
}

// Story is a named group of ROIs exported from the annotation tool, keyed by
// the acquisition (region) identifier they were drawn on.
type Story struct {
	Name    string               `json:"name"`
	Regions map[string][]Polygon `json:"regions"`
}

// SyntheticCell is a cell fabricated from one ROI centroid rather than from
// automated segmentation. X and Y are the reduced centroid in working space;
// the merge step flips them into stored orientation.
type SyntheticCell struct {
	RegionID  string  `json:"region_id"`
	SourceROI string  `json:"source_roi"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Label     string  `json:"label"`
}
