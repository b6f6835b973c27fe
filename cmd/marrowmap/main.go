// Command marrowmap incorporates annotated tissue structures into a spatial
// single-cell dataset: it loads the latest dataset snapshot, reduces ROI
// annotations to synthetic cells, merges them per region, validates the
// result, saves a new snapshot revision, and pushes the annotation column to
// the metadata store.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"marrowmap/internal/blob"
	"marrowmap/internal/metastore"
	"marrowmap/internal/pipeline"
	"marrowmap/internal/roi"
	"marrowmap/internal/snapshot"
	"marrowmap/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stderr)
	exitFunc(code)
}

func cli(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("marrowmap", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath      string
		annotationsPath string
		tracePath       string
	)
	fs.StringVar(&configPath, "config", "run.yaml", "path to the run configuration yaml")
	fs.StringVar(&annotationsPath, "annotations", "", "path to the ROI annotation export json")
	fs.StringVar(&tracePath, "trace", "", "optional path for JSON trace output")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if annotationsPath == "" {
		fmt.Fprintln(stderr, "marrowmap: -annotations is required")
		return 2
	}

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(stderr, "marrowmap: init logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, configPath, annotationsPath, tracePath); err != nil {
		logger.Error("run failed", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, logger *zap.Logger, configPath, annotationsPath, tracePath string) error {
	cfg, err := pipeline.LoadConfig(configPath)
	if err != nil {
		return err
	}

	rois, err := roi.NewFileSource(annotationsPath)
	if err != nil {
		return err
	}

	store, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	meta, err := metastore.Open(ctx)
	if err != nil {
		return fmt.Errorf("open metastore: %w", err)
	}
	defer func() { _ = meta.Close() }()

	var traceWriter io.Writer
	if tracePath != "" {
		f, err := os.Create(tracePath)
		if err != nil {
			return fmt.Errorf("create trace file: %w", err)
		}
		defer func() { _ = f.Close() }()
		traceWriter = f
	}

	env := pipeline.Environment{
		ROIs:      rois,
		Snapshots: snapshot.NewRepository(store),
		Metadata:  meta,
		Logger:    logger,
	}
	stages, err := pipeline.BuildStages(cfg, env)
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(logger,
		pipeline.NewExpvarMetricsRecorder(""),
		pipeline.NewJSONTracer(traceWriter))
	_, report, err := runner.Run(ctx, domain.Dataset{}, stages)
	if err != nil {
		return err
	}
	logger.Info("run summary",
		zap.String("run_id", report.RunID),
		zap.String("dataset", cfg.Dataset),
		zap.Int("stages", len(report.Stages)))
	return nil
}
