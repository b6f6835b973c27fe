package roi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"marrowmap/pkg/domain"
)

// FileSource reads stories from a JSON annotation export. The export format
// is a flat list of ROI records tagged with story name, acquisition id, and
// ordered vertex coordinates, matching what the viewer's export endpoint
// produces.
type FileSource struct {
	stories map[string]domain.Story
}

type exportFile struct {
	ROIs []exportROI `json:"rois"`
}

type exportROI struct {
	Story         string      `json:"story"`
	AcquisitionID string      `json:"acquisition_id"`
	ID            string      `json:"id"`
	Vertices      [][]float64 `json:"vertices"`
}

// NewFileSource parses the export file once and serves stories from memory.
func NewFileSource(path string) (*FileSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read annotation export: %w", err)
	}
	var export exportFile
	if err := json.Unmarshal(raw, &export); err != nil {
		return nil, fmt.Errorf("decode annotation export %s: %w", path, err)
	}

	stories := make(map[string]domain.Story)
	for _, rec := range export.ROIs {
		if rec.Story == "" || rec.AcquisitionID == "" {
			return nil, fmt.Errorf("annotation export %s: roi %q missing story or acquisition id", path, rec.ID)
		}
		story, ok := stories[rec.Story]
		if !ok {
			story = domain.Story{Name: rec.Story, Regions: make(map[string][]domain.Polygon)}
		}
		poly := domain.Polygon{ID: rec.ID}
		for _, v := range rec.Vertices {
			if len(v) != 2 {
				return nil, fmt.Errorf("annotation export %s: roi %q has a vertex with %d components", path, rec.ID, len(v))
			}
			poly.Vertices = append(poly.Vertices, domain.Point{X: v[0], Y: v[1]})
		}
		story.Regions[rec.AcquisitionID] = append(story.Regions[rec.AcquisitionID], poly)
		stories[rec.Story] = story
	}
	return &FileSource{stories: stories}, nil
}

// LoadStory returns the named story.
func (s *FileSource) LoadStory(_ context.Context, name string) (domain.Story, error) {
	story, ok := s.stories[name]
	if !ok {
		return domain.Story{}, ErrStoryNotFound{Name: name}
	}
	return story, nil
}

// Stories lists available story names, sorted.
func (s *FileSource) Stories(_ context.Context) ([]string, error) {
	names := make([]string, 0, len(s.stories))
	for name := range s.stories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
