// Package snapshot persists whole datasets as immutable, revisioned blobs.
// Each saved revision is a gzip-compressed JSON document; revisions are
// never overwritten, so any past state of a dataset can be reloaded.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"marrowmap/internal/blob"
	"marrowmap/pkg/domain"
)

const (
	keyPrefix = "datasets"
	keySuffix = ".json.gz"
)

// Revision identifies one saved state of a dataset. Revisions sort
// lexicographically in creation order.
type Revision struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	SizeBytes int64     `json:"size_bytes"`
}

// Repository reads and writes dataset snapshots through a blob store.
type Repository struct {
	store blob.Store
}

// NewRepository returns a repository over the given store.
func NewRepository(store blob.Store) *Repository {
	return &Repository{store: store}
}

func datasetPrefix(name string) string {
	return keyPrefix + "/" + name + "/"
}

func revisionKey(name, revisionID string) string {
	return datasetPrefix(name) + revisionID + keySuffix
}

// newRevisionID produces a lexicographically sortable identifier: a UTC
// timestamp plus a short random suffix to break same-instant ties.
func newRevisionID(now time.Time) string {
	return now.UTC().Format("20060102T150405.000000000") + "-" + uuid.NewString()[:8]
}

// Save writes the dataset as a new revision and returns its descriptor. The
// underlying Put is create-only, so an existing revision can never be
// clobbered.
func (r *Repository) Save(ctx context.Context, ds domain.Dataset) (Revision, error) {
	if strings.TrimSpace(ds.Name) == "" {
		return Revision{}, fmt.Errorf("dataset name required")
	}
	now := time.Now()
	revID := newRevisionID(now)
	key := revisionKey(ds.Name, revID)

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := json.NewEncoder(gz).Encode(ds); err != nil {
		return Revision{}, fmt.Errorf("encode dataset %s: %w", ds.Name, err)
	}
	if err := gz.Close(); err != nil {
		return Revision{}, fmt.Errorf("compress dataset %s: %w", ds.Name, err)
	}

	info, err := r.store.Put(ctx, key, &buf, blob.PutOptions{
		ContentType: "application/gzip",
		Metadata:    map[string]string{"dataset": ds.Name, "revision": revID},
	})
	if err != nil {
		return Revision{}, fmt.Errorf("save dataset %s: %w", ds.Name, err)
	}
	return Revision{ID: revID, Key: key, CreatedAt: now.UTC(), SizeBytes: info.Size}, nil
}

// Load reads a specific revision of a dataset.
func (r *Repository) Load(ctx context.Context, name, revisionID string) (domain.Dataset, error) {
	return r.loadKey(ctx, revisionKey(name, revisionID))
}

// LoadLatest reads the most recent revision of a dataset.
func (r *Repository) LoadLatest(ctx context.Context, name string) (domain.Dataset, Revision, error) {
	revs, err := r.Revisions(ctx, name)
	if err != nil {
		return domain.Dataset{}, Revision{}, err
	}
	if len(revs) == 0 {
		return domain.Dataset{}, Revision{}, fmt.Errorf("dataset %s has no revisions", name)
	}
	latest := revs[len(revs)-1]
	ds, err := r.loadKey(ctx, latest.Key)
	if err != nil {
		return domain.Dataset{}, Revision{}, err
	}
	return ds, latest, nil
}

// Revisions lists the saved revisions of a dataset in creation order.
func (r *Repository) Revisions(ctx context.Context, name string) ([]Revision, error) {
	infos, err := r.store.List(ctx, datasetPrefix(name))
	if err != nil {
		return nil, fmt.Errorf("list revisions of %s: %w", name, err)
	}
	revs := make([]Revision, 0, len(infos))
	for _, info := range infos {
		base := path.Base(info.Key)
		if !strings.HasSuffix(base, keySuffix) {
			continue
		}
		revs = append(revs, Revision{
			ID:        strings.TrimSuffix(base, keySuffix),
			Key:       info.Key,
			CreatedAt: info.LastModified,
			SizeBytes: info.Size,
		})
	}
	sort.Slice(revs, func(i, j int) bool { return revs[i].ID < revs[j].ID })
	return revs, nil
}

func (r *Repository) loadKey(ctx context.Context, key string) (domain.Dataset, error) {
	_, rc, err := r.store.Get(ctx, key)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	defer rc.Close()
	gz, err := gzip.NewReader(rc)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("decompress snapshot %s: %w", key, err)
	}
	defer gz.Close()
	var ds domain.Dataset
	if err := json.NewDecoder(gz).Decode(&ds); err != nil {
		return domain.Dataset{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return ds, nil
}
