package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/questgeo/internal/core/domain"
)

// DefaultBatchSize is the number of rows sent per database round trip.
const DefaultBatchSize = 500

// Manifest lists the CSV sources to import. Entries are file paths relative
// to the manifest or http(s) URLs.
type Manifest struct {
	Source    string   `json:"source"`
	Locations []string `json:"locations"`
	Targets   []string `json:"targets"`
}

// LoadManifest reads a JSON manifest from path.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

// LocationWriter stores a batch of locations.
type LocationWriter interface {
	UpsertBatch(ctx context.Context, locs []domain.Location) error
}

// TargetWriter stores a batch of quest targets.
type TargetWriter interface {
	UpsertBatch(ctx context.Context, targets []domain.QuestTarget) error
}

// Summary counts what an import wrote and skipped.
type Summary struct {
	Locations int `json:"locations"`
	Targets   int `json:"targets"`
	Skipped   int `json:"skipped"`
}

// Add accumulates o into s.
func (s *Summary) Add(o Summary) {
	s.Locations += o.Locations
	s.Targets += o.Targets
	s.Skipped += o.Skipped
}

// Kind selects the CSV layout of a source.
type Kind string

const (
	KindLocations Kind = "locations"
	KindTargets   Kind = "targets"
)

// Source is one file to import.
type Source struct {
	Kind Kind   `json:"kind"`
	Path string `json:"path"`
}

// Sources flattens the manifest, resolving relative paths against baseDir.
func (m *Manifest) Sources(baseDir string) []Source {
	out := make([]Source, 0, len(m.Locations)+len(m.Targets))
	for _, p := range m.Locations {
		out = append(out, Source{Kind: KindLocations, Path: resolve(baseDir, p)})
	}
	for _, p := range m.Targets {
		out = append(out, Source{Kind: KindTargets, Path: resolve(baseDir, p)})
	}
	return out
}

// Importer loads manifest sources into storage.
type Importer struct {
	locations   LocationWriter
	targets     TargetWriter
	client      *http.Client
	batchSize   int
	concurrency int
	logger      *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithBatchSize overrides DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithConcurrency caps how many sources are read at once.
func WithConcurrency(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.concurrency = n
		}
	}
}

// WithHTTPClient sets the client used for URL sources.
func WithHTTPClient(c *http.Client) Option {
	return func(im *Importer) { im.client = c }
}

// WithLogger sets the logger used for progress and skipped rows.
func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) { im.logger = l }
}

// NewImporter creates a new Importer.
func NewImporter(locations LocationWriter, targets TargetWriter, opts ...Option) *Importer {
	im := &Importer{
		locations:   locations,
		targets:     targets,
		client:      &http.Client{Timeout: 120 * time.Second},
		batchSize:   DefaultBatchSize,
		concurrency: 4,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Run imports every source in m. Relative paths resolve against baseDir.
// The first failing source cancels the rest.
func (im *Importer) Run(ctx context.Context, m *Manifest, baseDir string) (Summary, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)

	sources := m.Sources(baseDir)
	results := make([]Summary, len(sources))
	for i, src := range sources {
		g.Go(func() error {
			res, err := im.Import(ctx, src)
			if err != nil {
				return fmt.Errorf("%s %s: %w", src.Kind, src.Path, err)
			}
			results[i] = res
			return nil
		})
	}
	err := g.Wait()

	var sum Summary
	for _, r := range results {
		sum.Add(r)
	}
	return sum, err
}

// Import reads one source and writes it in batches.
func (im *Importer) Import(ctx context.Context, src Source) (Summary, error) {
	rc, err := im.open(ctx, src.Path)
	if err != nil {
		return Summary{}, err
	}
	defer rc.Close()

	switch src.Kind {
	case KindLocations:
		locs, skipped, err := ParseLocations(rc)
		if err != nil {
			return Summary{}, err
		}
		im.logSkipped(src.Path, skipped)
		if err := writeBatches(ctx, locs, im.batchSize, im.locations.UpsertBatch); err != nil {
			return Summary{}, err
		}
		im.logger.Info("imported locations", "source", src.Path, "rows", len(locs), "skipped", len(skipped))
		return Summary{Locations: len(locs), Skipped: len(skipped)}, nil

	case KindTargets:
		targets, skipped, err := ParseTargets(rc)
		if err != nil {
			return Summary{}, err
		}
		im.logSkipped(src.Path, skipped)
		if err := writeBatches(ctx, targets, im.batchSize, im.targets.UpsertBatch); err != nil {
			return Summary{}, err
		}
		im.logger.Info("imported targets", "source", src.Path, "rows", len(targets), "skipped", len(skipped))
		return Summary{Targets: len(targets), Skipped: len(skipped)}, nil
	}
	return Summary{}, fmt.Errorf("unknown source kind %q", src.Kind)
}

func writeBatches[T any](ctx context.Context, rows []T, size int, write func(context.Context, []T) error) error {
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		if err := write(ctx, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (im *Importer) logSkipped(src string, skipped []RowError) {
	for _, re := range skipped {
		im.logger.Warn("skipped row", "source", src, "line", re.Line, "error", re.Err)
	}
}

func (im *Importer) open(ctx context.Context, src string) (io.ReadCloser, error) {
	if !isURL(src) {
		return os.Open(src)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}
	return resp.Body, nil
}

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

func resolve(baseDir, src string) string {
	if isURL(src) || filepath.IsAbs(src) || baseDir == "" {
		return src
	}
	return filepath.Join(baseDir, src)
}
