package vectorio

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb/geojson"

	"rookery/internal/nests"
)

// Foreign members written on nest collections.
const (
	memberCRS    = "crs"
	memberSchema = "schema"
)

type schemaColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type collectionSchema struct {
	Geometry string         `json:"geometry"`
	Columns  []schemaColumn `json:"columns"`
}

func nestSchema(rows []nests.Nest) collectionSchema {
	schema := collectionSchema{Geometry: geometryTypeFor(rows)}
	for _, column := range nests.Columns {
		schema.Columns = append(schema.Columns, schemaColumn{Name: column, Type: columnTypes[column]})
	}
	return schema
}

func writeGeoJSON(path string, rows []nests.Nest, crs string) error {
	fc := geojson.NewFeatureCollection()
	fc.ExtraMembers = geojson.Properties{memberSchema: nestSchema(rows)}
	if crs != "" {
		fc.ExtraMembers[memberCRS] = map[string]any{
			"type":       "name",
			"properties": map[string]any{"name": crsURN(crs)},
		}
	}

	for _, n := range rows {
		feature := geojson.NewFeature(nestPoint(n))
		values := nestValues(n)
		for i, column := range nests.Columns {
			feature.Properties[column] = values[i]
		}
		fc.Append(feature)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func readGeoJSON(path string) (*table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	tbl := &table{records: make([]record, 0, len(fc.Features))}
	tbl.crs = collectionCRS(fc.ExtraMembers)
	if schema, ok := fc.ExtraMembers[memberSchema].(map[string]any); ok {
		if geom, ok := schema["geometry"].(string); ok {
			tbl.geometryType = strings.ToUpper(geom)
		}
	}

	for _, feature := range fc.Features {
		rec := record{values: row(feature.Properties)}
		if rec.values == nil {
			rec.values = row{}
		}
		if feature.Geometry != nil {
			bound := feature.Geometry.Bound()
			rec.bound = &bound
			if tbl.geometryType == "" {
				tbl.geometryType = strings.ToUpper(feature.Geometry.GeoJSONType())
			}
		}
		tbl.records = append(tbl.records, rec)
	}
	return tbl, nil
}

// collectionCRS reads the legacy named "crs" member.
func collectionCRS(members geojson.Properties) string {
	raw, ok := members[memberCRS].(map[string]any)
	if !ok {
		return ""
	}
	props, ok := raw["properties"].(map[string]any)
	if !ok {
		return ""
	}
	name, _ := props["name"].(string)
	return name
}
