package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
	tlog "go.temporal.io/sdk/log"

	"github.com/samirrijal/questgeo/internal/adapters/postgres"
	"github.com/samirrijal/questgeo/internal/ingest"
	"github.com/samirrijal/questgeo/internal/pkg/config"
	"github.com/samirrijal/questgeo/internal/pkg/logging"
	"github.com/samirrijal/questgeo/internal/workflows"
)

type Options struct {
	Manifest    string `short:"m" long:"manifest"    env:"QUESTGEO_MANIFEST" description:"Path to the import manifest" default:"manifest.json"`
	Workflow    bool   `short:"w" long:"workflow"    description:"Submit the import to the import worker instead of running it in-process"`
	BatchSize   int    `short:"b" long:"batch-size"  description:"Rows per database round trip" default:"500"`
	Concurrency int    `short:"p" long:"concurrency" description:"Sources imported at once" default:"4"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	_ = godotenv.Load()

	cfg, err := config.Load("questgeo-ingestor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.Telemetry.ServiceName)

	manifest, err := ingest.LoadManifest(opts.Manifest)
	if err != nil {
		logger.Error("load manifest", "path", opts.Manifest, "error", err)
		os.Exit(1)
	}
	baseDir, err := filepath.Abs(filepath.Dir(opts.Manifest))
	if err != nil {
		logger.Error("resolve manifest dir", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting import",
		"source", manifest.Source,
		"location_files", len(manifest.Locations),
		"target_files", len(manifest.Targets),
		"workflow", opts.Workflow,
	)

	start := time.Now()
	var sum ingest.Summary
	if opts.Workflow {
		sum, err = submit(ctx, cfg, logger, workflows.ImportInput{Manifest: *manifest, BaseDir: baseDir})
	} else {
		sum, err = runLocal(ctx, cfg, logger, opts, manifest, baseDir)
	}
	if err != nil {
		logger.Error("import failed", "error", err)
		os.Exit(1)
	}

	logger.Info("import complete",
		"locations", sum.Locations,
		"targets", sum.Targets,
		"skipped", sum.Skipped,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

func runLocal(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options, m *ingest.Manifest, baseDir string) (ingest.Summary, error) {
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		return ingest.Summary{}, err
	}
	defer db.Close()

	im := ingest.NewImporter(
		postgres.NewLocationRepo(db),
		postgres.NewTargetRepo(db),
		ingest.WithBatchSize(opts.BatchSize),
		ingest.WithConcurrency(opts.Concurrency),
		ingest.WithLogger(logger),
	)
	return im.Run(ctx, m, baseDir)
}

func submit(ctx context.Context, cfg *config.Config, logger *slog.Logger, input workflows.ImportInput) (ingest.Summary, error) {
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    tlog.NewStructuredLogger(logger),
	})
	if err != nil {
		return ingest.Summary{}, err
	}
	defer c.Close()

	run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "import-" + uuid.NewString(),
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.ImportWorkflow, input)
	if err != nil {
		return ingest.Summary{}, err
	}
	logger.Info("workflow started", "workflow_id", run.GetID(), "run_id", run.GetRunID())

	var sum ingest.Summary
	err = run.Get(ctx, &sum)
	return sum, err
}
