package workflows

import (
	"context"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/questgeo/internal/ingest"
)

// ImportActivities holds the activity implementations for the import workflow.
type ImportActivities struct {
	Importer *ingest.Importer
}

// ImportSource imports one CSV source. Rows the parser rejects are counted,
// not failed; only unreadable sources and write errors are returned.
func (a *ImportActivities) ImportSource(ctx context.Context, src ingest.Source) (ingest.Summary, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Importing source", "kind", src.Kind, "path", src.Path)

	sum, err := a.Importer.Import(ctx, src)
	if err != nil {
		return ingest.Summary{}, err
	}

	logger.Info("Imported source", "path", src.Path,
		"locations", sum.Locations, "targets", sum.Targets, "skipped", sum.Skipped)
	return sum, nil
}
