// Package vectorio reads detection tables and writes nest tables.
//
// Three encodings are supported, chosen by file extension: GeoPackage
// (.gpkg), GeoJSON (.geojson, .json) and CSV (.csv). Detection inputs carry
// the Site, Year, Date, target_ind, score, label, bird_id and match_* box
// columns; when the box columns are absent the feature geometry's bounds are
// used instead. Nest outputs always declare the twelve nest columns, and an
// empty output is written rather than skipped.
//
// Writes go through a temp file and rename while an advisory lock on
// "<output>.lock" is held, so readers never observe a partial table.
package vectorio
