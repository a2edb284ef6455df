package vectorio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"rookery/internal/textutil"
)

// Format names a supported table encoding.
type Format string

const (
	FormatGeoPackage Format = "gpkg"
	FormatGeoJSON    Format = "geojson"
	FormatCSV        Format = "csv"
)

// ErrUnsupportedFormat reports an unknown extension or format name.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Formats lists every supported encoding.
var Formats = []Format{FormatGeoPackage, FormatGeoJSON, FormatCSV}

// ParseFormat resolves a format name such as "gpkg", ".geojson" or "json".
func ParseFormat(name string) (Format, error) {
	normalized := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	switch normalized {
	case "gpkg", "geopackage":
		return FormatGeoPackage, nil
	case "geojson", "json":
		return FormatGeoJSON, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
}

// FormatFromPath picks the encoding from a file extension.
func FormatFromPath(path string) (Format, error) {
	ext := filepath.Ext(path)
	if ext == "" {
		return "", fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	return ParseFormat(ext)
}

// Supported reports whether path has a readable extension.
func Supported(path string) bool {
	_, err := FormatFromPath(path)
	return err == nil
}

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	return string(f)
}

// OutputPath returns {savedir}/{site}_{year}_processed_nests.{ext}.
func OutputPath(savedir, site, year string, format Format) string {
	name := fmt.Sprintf("%s_%s_processed_nests.%s",
		textutil.SanitizeSegment(site),
		textutil.SanitizeSegment(year),
		format.Ext(),
	)
	return filepath.Join(savedir, name)
}

// layerName derives a table name for GeoPackage layers from the file name.
func layerName(path string) string {
	base := filepath.Base(path)
	return textutil.SanitizeToken(strings.TrimSuffix(base, filepath.Ext(base)))
}
