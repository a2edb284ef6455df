package vectorio

import (
	"context"
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"rookery/internal/fileutil"
	"rookery/internal/nests"
)

// Geometry type names recorded for nest outputs.
const (
	GeometryPoint   = "POINT"
	GeometryPolygon = "POLYGON"
)

// DetectionSet is a decoded detection table.
type DetectionSet struct {
	Detections []nests.Detection
	CRS        string
	Format     Format
}

// NestTable is a nest table as read back from disk.
type NestTable struct {
	Nests        []nests.Nest
	CRS          string
	GeometryType string
	Format       Format
}

// record is one feature or line before column decoding.
type record struct {
	values row
	bound  *orb.Bound
}

type table struct {
	records      []record
	crs          string
	geometryType string
}

func readTable(ctx context.Context, path string, format Format) (*table, error) {
	switch format {
	case FormatGeoPackage:
		return readGeoPackage(ctx, path)
	case FormatGeoJSON:
		return readGeoJSON(path)
	case FormatCSV:
		return readCSV(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// ReadDetections loads a detection table. defaultCRS applies when the file
// does not carry a reference system.
func ReadDetections(ctx context.Context, path, defaultCRS string) (*DetectionSet, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	tbl, err := readTable(ctx, path, format)
	if err != nil {
		return nil, fmt.Errorf("read detections %s: %w", path, err)
	}

	set := &DetectionSet{
		Detections: make([]nests.Detection, 0, len(tbl.records)),
		CRS:        CanonicalCRS(tbl.crs),
		Format:     format,
	}
	if set.CRS == "" {
		set.CRS = CanonicalCRS(defaultCRS)
	}
	for i, rec := range tbl.records {
		det, err := decodeDetection(rec.values, rec.bound, i+1)
		if err != nil {
			return nil, fmt.Errorf("read detections %s: %w", path, err)
		}
		set.Detections = append(set.Detections, det)
	}
	return set, nil
}

// ReadNests loads a nest table previously written by WriteNests.
func ReadNests(ctx context.Context, path string) (*NestTable, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	tbl, err := readTable(ctx, path, format)
	if err != nil {
		return nil, fmt.Errorf("read nests %s: %w", path, err)
	}
	out := &NestTable{
		Nests:        make([]nests.Nest, 0, len(tbl.records)),
		CRS:          CanonicalCRS(tbl.crs),
		GeometryType: strings.ToUpper(tbl.geometryType),
		Format:       format,
	}
	for i, rec := range tbl.records {
		n, err := decodeNest(rec.values, i+1)
		if err != nil {
			return nil, fmt.Errorf("read nests %s: %w", path, err)
		}
		out.Nests = append(out.Nests, n)
	}
	return out, nil
}

// WriteNests replaces path with a nest table in the format its extension
// names. Point geometry sits at (xmean, ymean). An empty slice still produces
// a file declaring every column, with POLYGON as its geometry type.
func WriteNests(ctx context.Context, path string, rows []nests.Nest, crs string) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	crs = CanonicalCRS(crs)

	write := func(tmpPath string) error {
		switch format {
		case FormatGeoPackage:
			return writeGeoPackage(ctx, tmpPath, layerName(path), rows, crs)
		case FormatGeoJSON:
			return writeGeoJSON(tmpPath, rows, crs)
		case FormatCSV:
			return writeCSV(tmpPath, rows)
		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
		}
	}

	err = fileutil.WithLock(ctx, path, func() error {
		return fileutil.ReplaceFile(path, write)
	})
	if err != nil {
		return fmt.Errorf("write nests %s: %w", path, err)
	}
	return nil
}

func geometryTypeFor(rows []nests.Nest) string {
	if len(rows) == 0 {
		return GeometryPolygon
	}
	return GeometryPoint
}

func nestPoint(n nests.Nest) orb.Point {
	return orb.Point{n.XMean, n.YMean}
}
