package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/samirrijal/questgeo/internal/core/domain"
	"github.com/samirrijal/questgeo/internal/pkg/geospatial"
)

// RowError records a CSV row that was skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

var (
	errMissingID    = errors.New("id is required")
	errMissingName  = errors.New("name is required")
	errBadCoord     = errors.New("lat/lon must be numbers")
	errCoordRange   = errors.New("lat/lon out of range")
	errHalfLocation = errors.New("lat and lon must both be set or both be empty")
	errBadRadius    = errors.New("radius_meters must be a number")
)

// locationColumns are consumed by ParseLocations; any other column lands in Metadata.
var locationColumns = map[string]bool{"id": true, "name": true, "category": true, "lat": true, "lon": true}

type table struct {
	reader *csv.Reader
	cols   map[string]int
	header []string
}

func openTable(r io.Reader, required ...string) (*table, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
	}
	return &table{reader: reader, cols: cols, header: header}, nil
}

// each calls fn for every record. Rows rejected by fn or by the CSV reader
// are reported as RowErrors with their line number.
func (t *table) each(fn func(record []string) error) ([]RowError, error) {
	var skipped []RowError
	for {
		record, err := t.reader.Read()
		if err == io.EOF {
			return skipped, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				skipped = append(skipped, RowError{Line: perr.Line, Err: perr.Err})
				continue
			}
			return skipped, err
		}
		line, _ := t.reader.FieldPos(0)
		if err := fn(record); err != nil {
			skipped = append(skipped, RowError{Line: line, Err: err})
		}
	}
}

// ParseLocations reads a CSV with columns id, name, category, lat, lon.
// Extra columns are kept as string metadata.
func ParseLocations(r io.Reader) ([]domain.Location, []RowError, error) {
	t, err := openTable(r, "id", "name", "lat", "lon")
	if err != nil {
		return nil, nil, err
	}

	var locs []domain.Location
	skipped, err := t.each(func(record []string) error {
		id := getField(record, t.cols, "id")
		name := getField(record, t.cols, "name")
		if id == "" {
			return errMissingID
		}
		if name == "" {
			return errMissingName
		}
		lat, lon, ok, err := parsePoint(getField(record, t.cols, "lat"), getField(record, t.cols, "lon"))
		if err != nil {
			return err
		}
		if !ok {
			return errHalfLocation
		}

		loc := domain.Location{
			ID:       id,
			Name:     name,
			Category: getField(record, t.cols, "category"),
			Location: domain.GeoPoint{Lat: lat, Lon: lon},
		}
		for i, col := range t.header {
			col = normalizeColumn(col)
			if locationColumns[col] || i >= len(record) {
				continue
			}
			if v := strings.TrimSpace(record[i]); v != "" {
				if loc.Metadata == nil {
					loc.Metadata = make(map[string]any)
				}
				loc.Metadata[col] = v
			}
		}
		locs = append(locs, loc)
		return nil
	})
	return locs, skipped, err
}

// ParseTargets reads a CSV with columns id, quest_id, name, lat, lon, radius_meters.
// Empty lat/lon yield an unconfigured target; an empty radius leaves it to the default.
func ParseTargets(r io.Reader) ([]domain.QuestTarget, []RowError, error) {
	t, err := openTable(r, "id", "quest_id", "name", "lat", "lon")
	if err != nil {
		return nil, nil, err
	}

	var targets []domain.QuestTarget
	skipped, err := t.each(func(record []string) error {
		id := getField(record, t.cols, "id")
		if id == "" {
			return errMissingID
		}
		target := domain.QuestTarget{
			ID:      id,
			QuestID: getField(record, t.cols, "quest_id"),
			Name:    getField(record, t.cols, "name"),
		}

		lat, lon, ok, err := parsePoint(getField(record, t.cols, "lat"), getField(record, t.cols, "lon"))
		if err != nil {
			return err
		}
		if ok {
			target.Target.Coordinates = []float64{lon, lat}
		}

		if raw := getField(record, t.cols, "radius_meters"); raw != "" {
			r, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return errBadRadius
			}
			target.Target.RadiusMeters = &r
		}

		targets = append(targets, target)
		return nil
	})
	return targets, skipped, err
}

// parsePoint returns ok=false when both fields are empty.
func parsePoint(rawLat, rawLon string) (lat, lon float64, ok bool, err error) {
	if rawLat == "" && rawLon == "" {
		return 0, 0, false, nil
	}
	if rawLat == "" || rawLon == "" {
		return 0, 0, false, errHalfLocation
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lon, errLon := strconv.ParseFloat(rawLon, 64)
	if errLat != nil || errLon != nil {
		return 0, 0, false, errBadCoord
	}
	if !geospatial.IsValidCoordinates(lat, lon) {
		return 0, 0, false, errCoordRange
	}
	return lat, lon, true, nil
}

func normalizeColumn(col string) string {
	// Strip BOM from first column
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\xef\xbb\xbf")))
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, col := range header {
		m[normalizeColumn(col)] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}
