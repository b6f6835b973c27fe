// Package roi loads named ROI annotation groups ("stories") produced by the
// external annotation viewer, keyed by acquisition id.
package roi

import (
	"context"
	"fmt"

	"marrowmap/pkg/domain"
)

// Source yields annotation stories by name. Implementations must return
// ErrStoryNotFound (wrapped) when the story does not exist so callers can
// distinguish a misnamed story from a transport failure.
type Source interface {
	// LoadStory fetches one named story with all its per-region polygons.
	LoadStory(ctx context.Context, name string) (domain.Story, error)
	// Stories lists the story names the source can serve, sorted.
	Stories(ctx context.Context) ([]string, error)
}

// ErrStoryNotFound reports a story name unknown to the source.
type ErrStoryNotFound struct {
	Name string
}

func (e ErrStoryNotFound) Error() string {
	return fmt.Sprintf("story %q not found", e.Name)
}
