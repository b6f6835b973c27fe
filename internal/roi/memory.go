package roi

import (
	"context"
	"sort"
	"sync"

	"marrowmap/pkg/domain"
)

// MemorySource is an in-memory Source for tests.
type MemorySource struct {
	mu      sync.RWMutex
	stories map[string]domain.Story
}

// NewMemorySource constructs a source preloaded with the given stories.
func NewMemorySource(stories ...domain.Story) *MemorySource {
	s := &MemorySource{stories: make(map[string]domain.Story, len(stories))}
	for _, story := range stories {
		s.stories[story.Name] = story
	}
	return s
}

// Add registers or replaces a story.
func (s *MemorySource) Add(story domain.Story) {
	s.mu.Lock()
	s.stories[story.Name] = story
	s.mu.Unlock()
}

// LoadStory returns the named story.
func (s *MemorySource) LoadStory(_ context.Context, name string) (domain.Story, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	story, ok := s.stories[name]
	if !ok {
		return domain.Story{}, ErrStoryNotFound{Name: name}
	}
	return story, nil
}

// Stories lists story names, sorted.
func (s *MemorySource) Stories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.stories))
	for name := range s.stories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
