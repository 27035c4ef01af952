package workflows

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/questgeo/internal/ingest"
)

// ImportInput is the input for the import workflow.
type ImportInput struct {
	Manifest ingest.Manifest
	// BaseDir resolves relative manifest paths on the worker's filesystem.
	BaseDir string
}

// ImportWorkflow imports every manifest source as its own retried activity.
// Sources run in parallel; a source that still fails after its retries fails
// the workflow once all the others have finished.
func ImportWorkflow(ctx workflow.Context, input ImportInput) (ingest.Summary, error) {
	logger := workflow.GetLogger(ctx)
	sources := input.Manifest.Sources(input.BaseDir)
	logger.Info("Starting import workflow", "source", input.Manifest.Source, "files", len(sources))

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 5 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	futures := make([]workflow.Future, len(sources))
	for i, src := range sources {
		futures[i] = workflow.ExecuteActivity(ctx, "ImportSource", src)
	}

	var (
		sum    ingest.Summary
		failed []string
	)
	for i, f := range futures {
		var part ingest.Summary
		if err := f.Get(ctx, &part); err != nil {
			logger.Warn("Source failed", "path", sources[i].Path, "error", err)
			failed = append(failed, sources[i].Path)
			continue
		}
		sum.Add(part)
	}

	if len(failed) > 0 {
		return ingest.Summary{}, temporal.NewApplicationError(
			fmt.Sprintf("%d of %d sources failed: %s", len(failed), len(sources), strings.Join(failed, ", ")),
			"ImportFailed",
		)
	}

	logger.Info("Import complete", "locations", sum.Locations, "targets", sum.Targets, "skipped", sum.Skipped)
	return sum, nil
}
