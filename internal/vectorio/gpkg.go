package vectorio

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	_ "modernc.org/sqlite"

	"rookery/internal/nests"
)

//go:embed gpkg_schema.sql
var gpkgSchemaSQL string

const (
	gpkgGeometryColumn = "geom"
	undefinedSRSID     = -1

	gpkgFlagLittleEndian = 0x01
	gpkgFlagEmpty        = 0x10
)

// ErrNoFeatureTable reports a GeoPackage without a features layer.
var ErrNoFeatureTable = errors.New("geopackage has no feature table")

// envelope byte sizes indexed by the header's envelope indicator.
var envelopeSizes = [...]int{0, 32, 48, 48, 64}

var sqlTypes = map[string]string{
	"int":   "INTEGER",
	"float": "REAL",
	"str":   "TEXT",
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func openGeoPackage(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open geopackage: %w", err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// encodeGeometry wraps WKB in the GeoPackage binary header without an envelope.
func encodeGeometry(geom orb.Geometry, srsID int32) ([]byte, error) {
	body, err := wkb.Marshal(geom, binary.LittleEndian)
	if err != nil {
		return nil, fmt.Errorf("encode wkb: %w", err)
	}
	blob := make([]byte, 8, 8+len(body))
	blob[0], blob[1] = 'G', 'P'
	blob[2] = 0
	blob[3] = gpkgFlagLittleEndian
	binary.LittleEndian.PutUint32(blob[4:8], uint32(srsID))
	return append(blob, body...), nil
}

// decodeGeometry returns nil geometry for the empty flag.
func decodeGeometry(blob []byte) (orb.Geometry, int32, error) {
	if len(blob) < 8 || blob[0] != 'G' || blob[1] != 'P' {
		return nil, 0, errors.New("not a geopackage geometry blob")
	}
	flags := blob[3]
	var order binary.ByteOrder = binary.BigEndian
	if flags&gpkgFlagLittleEndian != 0 {
		order = binary.LittleEndian
	}
	srsID := int32(order.Uint32(blob[4:8]))

	indicator := int((flags >> 1) & 0x07)
	if indicator >= len(envelopeSizes) {
		return nil, srsID, fmt.Errorf("invalid envelope indicator %d", indicator)
	}
	offset := 8 + envelopeSizes[indicator]
	if len(blob) < offset {
		return nil, srsID, errors.New("truncated geometry header")
	}
	if flags&gpkgFlagEmpty != 0 {
		return nil, srsID, nil
	}
	geom, err := wkb.Unmarshal(blob[offset:])
	if err != nil {
		return nil, srsID, fmt.Errorf("decode wkb: %w", err)
	}
	return geom, srsID, nil
}

func writeGeoPackage(ctx context.Context, path, layer string, rows []nests.Nest, crs string) error {
	db, err := openGeoPackage(path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin geopackage tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, gpkgSchemaSQL); err != nil {
		return fmt.Errorf("create geopackage schema: %w", err)
	}
	srsID, err := registerSRS(ctx, tx, crs)
	if err != nil {
		return err
	}

	geometryType := geometryTypeFor(rows)
	columns := []string{"fid INTEGER PRIMARY KEY AUTOINCREMENT", quoteIdent(gpkgGeometryColumn) + " " + geometryType}
	for _, column := range nests.Columns {
		columns = append(columns, quoteIdent(column)+" "+sqlTypes[columnTypes[column]])
	}
	create := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(layer), strings.Join(columns, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("create layer %s: %w", layer, err)
	}

	var minX, minY, maxX, maxY any
	if len(rows) > 0 {
		bound := nestPoint(rows[0]).Bound()
		for _, n := range rows[1:] {
			bound = bound.Extend(nestPoint(n))
		}
		minX, minY, maxX, maxY = bound.Min.X(), bound.Min.Y(), bound.Max.X(), bound.Max.Y()
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_contents (table_name, data_type, identifier, min_x, min_y, max_x, max_y, srs_id)
		 VALUES (?, 'features', ?, ?, ?, ?, ?, ?)`,
		layer, layer, minX, minY, maxX, maxY, srsID,
	); err != nil {
		return fmt.Errorf("register layer contents: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO gpkg_geometry_columns (table_name, column_name, geometry_type_name, srs_id, z, m)
		 VALUES (?, ?, ?, ?, 0, 0)`,
		layer, gpkgGeometryColumn, geometryType, srsID,
	); err != nil {
		return fmt.Errorf("register geometry column: %w", err)
	}

	quoted := make([]string, 0, len(nests.Columns)+1)
	quoted = append(quoted, quoteIdent(gpkgGeometryColumn))
	for _, column := range nests.Columns {
		quoted = append(quoted, quoteIdent(column))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(quoted)), ", ")
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quoteIdent(layer), strings.Join(quoted, ", "), placeholders)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, n := range rows {
		blob, err := encodeGeometry(nestPoint(n), int32(srsID))
		if err != nil {
			return err
		}
		args := append([]any{blob}, nestValues(n)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert nest %d: %w", n.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit geopackage: %w", err)
	}
	return nil
}

// registerSRS adds an EPSG entry for crs and returns its srs_id. Values that
// are not EPSG references map to the undefined cartesian system.
func registerSRS(ctx context.Context, tx *sql.Tx, crs string) (int, error) {
	code, ok := EPSGCode(crs)
	if !ok {
		return undefinedSRSID, nil
	}
	_, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO gpkg_spatial_ref_sys
		 (srs_name, srs_id, organization, organization_coordsys_id, definition, description)
		 VALUES (?, ?, 'EPSG', ?, 'undefined', ?)`,
		CanonicalCRS(crs), code, code, "registered by rookery",
	)
	if err != nil {
		return 0, fmt.Errorf("register srs %s: %w", crs, err)
	}
	return code, nil
}

type featureLayer struct {
	table        string
	column       string
	geometryType string
	srsID        int64
}

func readGeoPackage(ctx context.Context, path string) (*table, error) {
	db, err := openGeoPackage(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var layer featureLayer
	err = db.QueryRowContext(ctx,
		`SELECT c.table_name, g.column_name, g.geometry_type_name, g.srs_id
		 FROM gpkg_contents c
		 JOIN gpkg_geometry_columns g ON g.table_name = c.table_name
		 WHERE c.data_type = 'features'
		 ORDER BY c.table_name
		 LIMIT 1`,
	).Scan(&layer.table, &layer.column, &layer.geometryType, &layer.srsID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoFeatureTable
	}
	if err != nil {
		return nil, fmt.Errorf("locate feature table: %w", err)
	}

	tbl := &table{geometryType: strings.ToUpper(layer.geometryType)}
	if tbl.crs, err = lookupSRS(ctx, db, layer.srsID); err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY rowid", quoteIdent(layer.table)))
	if err != nil {
		return nil, fmt.Errorf("query layer %s: %w", layer.table, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("layer columns: %w", err)
	}
	for rows.Next() {
		raw := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		rec := record{values: make(row, len(names))}
		for i, name := range names {
			if strings.EqualFold(name, layer.column) {
				blob, ok := raw[i].([]byte)
				if !ok || len(blob) == 0 {
					continue
				}
				geom, _, err := decodeGeometry(blob)
				if err != nil {
					return nil, fmt.Errorf("feature geometry: %w", err)
				}
				if geom != nil {
					bound := geom.Bound()
					rec.bound = &bound
				}
				continue
			}
			rec.values[name] = raw[i]
		}
		tbl.records = append(tbl.records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return tbl, nil
}

func lookupSRS(ctx context.Context, db *sql.DB, srsID int64) (string, error) {
	var organization string
	var code int64
	err := db.QueryRowContext(ctx,
		"SELECT organization, organization_coordsys_id FROM gpkg_spatial_ref_sys WHERE srs_id = ?", srsID,
	).Scan(&organization, &code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("lookup srs %d: %w", srsID, err)
	}
	if !strings.EqualFold(organization, "EPSG") {
		return "", nil
	}
	return fmt.Sprintf("EPSG:%d", code), nil
}
