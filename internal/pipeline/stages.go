package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"marrowmap/internal/geometry"
	"marrowmap/internal/incorporate"
	"marrowmap/internal/metastore"
	"marrowmap/internal/roi"
	"marrowmap/internal/snapshot"
	"marrowmap/internal/validate"
	"marrowmap/pkg/domain"
)

// Environment bundles the external dependencies the standard stages need.
type Environment struct {
	ROIs      roi.Source
	Snapshots *snapshot.Repository
	Metadata  metastore.Store
	Logger    *zap.Logger
}

// BuildStages assembles the standard stage sequence for a run configuration:
// load, one incorporation pass per story, optional relabel, validate, save,
// and metadata push.
func BuildStages(cfg Config, env Environment) ([]Stage, error) {
	if env.ROIs == nil || env.Snapshots == nil || env.Metadata == nil {
		return nil, fmt.Errorf("roi source, snapshot repository, and metastore are required")
	}
	logger := env.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// expectations accumulate across incorporation stages and feed the
	// validate stage; the relabel stage rewrites their labels in step with
	// the dataset.
	var expected []validate.Expectation
	var watchedLabels []string

	stages := []Stage{{
		Name: "load",
		Run: func(ctx context.Context, _ domain.Dataset) (domain.Dataset, error) {
			ds, rev, err := env.Snapshots.LoadLatest(ctx, cfg.Dataset)
			if err != nil {
				return domain.Dataset{}, err
			}
			logger.Info("dataset loaded",
				zap.String("dataset", cfg.Dataset),
				zap.String("revision", rev.ID),
				zap.Int("regions", len(ds.Regions)))
			return ds, nil
		},
	}}

	for _, spec := range cfg.Stories {
		spec := spec
		policy, err := geometry.ParsePolicy(spec.Policy)
		if err != nil {
			return nil, err
		}
		watchedLabels = append(watchedLabels, spec.Label)
		stages = append(stages, Stage{
			Name: "incorporate:" + spec.Story,
			Run: func(ctx context.Context, ds domain.Dataset) (domain.Dataset, error) {
				story, err := env.ROIs.LoadStory(ctx, spec.Story)
				if err != nil {
					return domain.Dataset{}, err
				}
				candidates, err := incorporate.BuildCandidates(story, policy, spec.Label)
				if err != nil {
					return domain.Dataset{}, err
				}
				for _, skipped := range candidates.Skipped {
					logger.Warn("annotation skipped",
						zap.String("story", spec.Story),
						zap.String("region", skipped.RegionID),
						zap.String("roi", skipped.PolygonID),
						zap.Int("vertices", skipped.Vertices))
				}

				opts := incorporate.Options{
					AnnotationColumn: cfg.AnnotationColumn,
					Label:            spec.Label,
					Workers:          cfg.Workers,
				}
				out, err := incorporate.Apply(ctx, ds, candidates.ByRegion, opts)
				var failed *domain.ApplyError
				if err != nil {
					ae, ok := domain.AsApplyError(err)
					if !ok {
						return domain.Dataset{}, err
					}
					// Failed regions keep their prior content; the pass
					// continues with every region that succeeded.
					failed = ae
					for _, re := range ae.Regions {
						logger.Error("region transform failed",
							zap.String("story", spec.Story),
							zap.String("region", re.RegionID),
							zap.Error(re.Err))
					}
				}
				for regionID, cells := range candidates.ByRegion {
					if failed != nil {
						if _, bad := failed.ByRegion(regionID); bad {
							continue
						}
					}
					expected = append(expected, validate.Expectation{
						RegionID: regionID,
						Label:    spec.Label,
						Count:    len(cells),
					})
				}
				logger.Info("story incorporated",
					zap.String("story", spec.Story),
					zap.String("label", spec.Label),
					zap.Int("candidates", candidates.Total()),
					zap.Int("skipped", len(candidates.Skipped)))
				return out, nil
			},
		})
	}

	if len(cfg.Relabel) > 0 {
		stages = append(stages, Stage{
			Name: "relabel",
			Run: func(_ context.Context, ds domain.Dataset) (domain.Dataset, error) {
				out, mapping, err := relabelDataset(ds, cfg.AnnotationColumn, cfg.Relabel)
				if err != nil {
					return domain.Dataset{}, err
				}
				for i := range expected {
					mapped, err := mapping.Apply(expected[i].Label)
					if err != nil {
						return domain.Dataset{}, err
					}
					expected[i].Label = mapped
				}
				for i := range watchedLabels {
					mapped, err := mapping.Apply(watchedLabels[i])
					if err != nil {
						return domain.Dataset{}, err
					}
					watchedLabels[i] = mapped
				}
				return out, nil
			},
		})
	}

	stages = append(stages,
		Stage{
			Name: "validate",
			Run: func(_ context.Context, ds domain.Dataset) (domain.Dataset, error) {
				issues := validate.CheckLabels(ds, cfg.AnnotationColumn, expected)
				issues = append(issues, validate.CheckPlacement(ds, cfg.AnnotationColumn, watchedLabels)...)
				if len(issues) > 0 {
					for _, issue := range issues {
						logger.Error("validation issue", zap.String("detail", issue.String()))
					}
					return domain.Dataset{}, fmt.Errorf("%d validation issue(s), first: %s", len(issues), issues[0])
				}
				return ds, nil
			},
		},
		Stage{
			Name: "save",
			Run: func(ctx context.Context, ds domain.Dataset) (domain.Dataset, error) {
				rev, err := env.Snapshots.Save(ctx, ds)
				if err != nil {
					return domain.Dataset{}, err
				}
				logger.Info("snapshot saved",
					zap.String("revision", rev.ID),
					zap.Int64("size_bytes", rev.SizeBytes))
				return ds, nil
			},
		},
		Stage{
			Name: "push-metadata",
			Run: func(ctx context.Context, ds domain.Dataset) (domain.Dataset, error) {
				col := buildPushColumn(ds, cfg.AnnotationColumn, cfg.Push)
				if err := env.Metadata.PushColumn(ctx, cfg.Dataset, col); err != nil {
					return domain.Dataset{}, err
				}
				logger.Info("metadata column pushed",
					zap.String("column", col.Name),
					zap.Int("values", len(col.Values)))
				return ds, nil
			},
		},
	)
	return stages, nil
}

// relabelDataset rewrites every set value of the annotation column through a
// validated label map. The mapping must cover every label observed across
// the dataset; unmapped labels abort the stage rather than passing through.
func relabelDataset(ds domain.Dataset, column string, mapping map[string]string) (domain.Dataset, domain.LabelMap, error) {
	observedSet := make(map[string]struct{})
	for _, region := range ds.Regions {
		for _, label := range domain.ObservedLabels(region.Metadata, column) {
			observedSet[label] = struct{}{}
		}
	}
	observed := make([]string, 0, len(observedSet))
	for label := range observedSet {
		observed = append(observed, label)
	}

	labelMap, err := domain.NewLabelMap(mapping, observed)
	if err != nil {
		return domain.Dataset{}, domain.LabelMap{}, err
	}

	out := ds.Clone()
	for ri := range out.Regions {
		col := out.Regions[ri].Metadata.Column(column)
		if col == nil {
			continue
		}
		for vi, v := range col.Values {
			if v == nil {
				continue
			}
			mapped, err := labelMap.Apply(*v)
			if err != nil {
				return domain.Dataset{}, domain.LabelMap{}, err
			}
			col.Values[vi] = &mapped
		}
	}
	return out, labelMap, nil
}

// buildPushColumn flattens the annotation column across regions, keying each
// value by the cell's dataset-wide identifier. Unset values are omitted.
func buildPushColumn(ds domain.Dataset, column string, spec PushSpec) metastore.Column {
	col := metastore.Column{
		Name:        spec.Column,
		DType:       spec.DType,
		CellIDField: spec.CellIDField,
		Description: spec.Description,
	}
	for _, region := range ds.Regions {
		src := region.Metadata.Column(column)
		if src == nil {
			continue
		}
		for i, cellID := range region.Metadata.CellIDs {
			if i >= len(src.Values) || src.Values[i] == nil {
				continue
			}
			col.Values = append(col.Values, metastore.Value{
				CellID: region.GlobalID(cellID),
				Value:  *src.Values[i],
			})
		}
	}
	return col
}
