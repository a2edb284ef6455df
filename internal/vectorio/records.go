package vectorio

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"

	"rookery/internal/nests"
)

// Detection input columns.
const (
	ColumnDate    = "Date"
	ColumnTarget  = "target_ind"
	ColumnScore   = "score"
	ColumnLabel   = "label"
	ColumnBirdID  = "bird_id"
	ColumnBoxXMin = "match_xmin"
	ColumnBoxYMin = "match_ymin"
	ColumnBoxXMax = "match_xmax"
	ColumnBoxYMax = "match_ymax"
)

// ErrInvalidRow reports a row that cannot be decoded.
var ErrInvalidRow = errors.New("invalid row")

var boxColumns = []string{ColumnBoxXMin, ColumnBoxYMin, ColumnBoxXMax, ColumnBoxYMax}

// row holds one record keyed by column name.
type row map[string]any

// lookup matches exactly first and falls back to a case-insensitive match.
func (r row) lookup(name string) (any, bool) {
	if v, ok := r[name]; ok {
		return v, true
	}
	for key, v := range r {
		if strings.EqualFold(key, name) {
			return v, true
		}
	}
	return nil, false
}

func (r row) hasAll(names []string) bool {
	for _, name := range names {
		if v, ok := r.lookup(name); !ok || v == nil {
			return false
		}
	}
	return true
}

func decodeDetection(r row, bound *orb.Bound, index int) (nests.Detection, error) {
	fail := func(column string, err error) (nests.Detection, error) {
		return nests.Detection{}, fmt.Errorf("%w: row %d column %s: %w", ErrInvalidRow, index, column, err)
	}

	var det nests.Detection
	var err error

	if det.Site, err = requiredString(r, nests.ColumnSite); err != nil {
		return fail(nests.ColumnSite, err)
	}
	if det.Year, err = requiredString(r, nests.ColumnYear); err != nil {
		return fail(nests.ColumnYear, err)
	}
	dateValue, ok := r.lookup(ColumnDate)
	if !ok {
		return fail(ColumnDate, errMissing)
	}
	if det.Date, err = asDate(dateValue); err != nil {
		return fail(ColumnDate, err)
	}
	targetValue, ok := r.lookup(ColumnTarget)
	if !ok {
		return fail(ColumnTarget, errMissing)
	}
	if det.TargetID, err = asInt(targetValue); err != nil {
		return fail(ColumnTarget, err)
	}
	scoreValue, ok := r.lookup(ColumnScore)
	if !ok {
		return fail(ColumnScore, errMissing)
	}
	if det.Score, err = asFloat(scoreValue); err != nil {
		return fail(ColumnScore, err)
	}
	if det.Score < 0 || det.Score > 1 || math.IsNaN(det.Score) {
		return fail(ColumnScore, fmt.Errorf("score %v outside [0,1]", det.Score))
	}
	if det.Label, err = requiredString(r, ColumnLabel); err != nil {
		return fail(ColumnLabel, err)
	}
	if v, ok := r.lookup(ColumnBirdID); ok {
		det.BirdID = asString(v)
	}

	switch {
	case r.hasAll(boxColumns):
		coords := make([]float64, len(boxColumns))
		for i, column := range boxColumns {
			v, _ := r.lookup(column)
			if coords[i], err = asFloat(v); err != nil {
				return fail(column, err)
			}
		}
		det.Box = nests.Box{XMin: coords[0], YMin: coords[1], XMax: coords[2], YMax: coords[3]}
	case bound != nil:
		det.Box = nests.Box{XMin: bound.Min.X(), YMin: bound.Min.Y(), XMax: bound.Max.X(), YMax: bound.Max.Y()}
	default:
		return fail(ColumnBoxXMin, errors.New("no match box columns and no geometry"))
	}

	return det, nil
}

var errMissing = errors.New("missing")

func requiredString(r row, name string) (string, error) {
	v, ok := r.lookup(name)
	if !ok {
		return "", errMissing
	}
	s := strings.TrimSpace(asString(v))
	if s == "" {
		return "", errors.New("empty value")
	}
	return s, nil
}

func asString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case []byte:
		return string(value)
	case int64:
		return strconv.FormatInt(value, 10)
	case int:
		return strconv.Itoa(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case json.Number:
		return value.String()
	case time.Time:
		return value.Format(nests.DateLayout)
	default:
		return fmt.Sprint(value)
	}
}

func asFloat(v any) (float64, error) {
	switch value := v.(type) {
	case float64:
		return value, nil
	case int64:
		return float64(value), nil
	case int:
		return float64(value), nil
	case json.Number:
		return value.Float64()
	case string, []byte:
		return strconv.ParseFloat(strings.TrimSpace(asString(value)), 64)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}

func asInt(v any) (int64, error) {
	switch value := v.(type) {
	case int64:
		return value, nil
	case int:
		return int64(value), nil
	case float64:
		if value != math.Trunc(value) {
			return 0, fmt.Errorf("non-integer %v", value)
		}
		return int64(value), nil
	case json.Number:
		return value.Int64()
	case string, []byte:
		s := strings.TrimSpace(asString(value))
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		return asInt(f)
	default:
		return 0, fmt.Errorf("unexpected %T", v)
	}
}

func asDate(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return nests.ParseDate(asString(v))
}

// nestValues returns the nest in Columns order with dates as ISO strings.
func nestValues(n nests.Nest) []any {
	return []any{
		n.ID,
		n.Site,
		n.Year,
		n.XMean,
		n.YMean,
		n.FirstObs.Format(nests.DateLayout),
		n.LastObs.Format(nests.DateLayout),
		int64(n.NumObs),
		n.Species,
		n.SumTop1,
		int64(n.NumTop1),
		n.BirdMatch,
	}
}

// columnTypes is the declared type of every nest column.
var columnTypes = map[string]string{
	nests.ColumnNestID:    "int",
	nests.ColumnSite:      "str",
	nests.ColumnYear:      "str",
	nests.ColumnXMean:     "float",
	nests.ColumnYMean:     "float",
	nests.ColumnFirstObs:  "str",
	nests.ColumnLastObs:   "str",
	nests.ColumnNumObs:    "int",
	nests.ColumnSpecies:   "str",
	nests.ColumnSumTop1:   "float",
	nests.ColumnNumTop1:   "int",
	nests.ColumnBirdMatch: "str",
}

func decodeNest(r row, index int) (nests.Nest, error) {
	fail := func(column string, err error) (nests.Nest, error) {
		return nests.Nest{}, fmt.Errorf("%w: row %d column %s: %w", ErrInvalidRow, index, column, err)
	}
	get := func(column string) (any, error) {
		v, ok := r.lookup(column)
		if !ok {
			return nil, errMissing
		}
		return v, nil
	}

	var n nests.Nest
	for _, column := range nests.Columns {
		v, err := get(column)
		if err != nil {
			return fail(column, err)
		}
		switch column {
		case nests.ColumnNestID:
			n.ID, err = asInt(v)
		case nests.ColumnSite:
			n.Site = asString(v)
		case nests.ColumnYear:
			n.Year = asString(v)
		case nests.ColumnXMean:
			n.XMean, err = asFloat(v)
		case nests.ColumnYMean:
			n.YMean, err = asFloat(v)
		case nests.ColumnFirstObs:
			n.FirstObs, err = asDate(v)
		case nests.ColumnLastObs:
			n.LastObs, err = asDate(v)
		case nests.ColumnNumObs:
			var count int64
			count, err = asInt(v)
			n.NumObs = int(count)
		case nests.ColumnSpecies:
			n.Species = asString(v)
		case nests.ColumnSumTop1:
			n.SumTop1, err = asFloat(v)
		case nests.ColumnNumTop1:
			var count int64
			count, err = asInt(v)
			n.NumTop1 = int(count)
		case nests.ColumnBirdMatch:
			n.BirdMatch = asString(v)
		}
		if err != nil {
			return fail(column, err)
		}
	}
	return n, nil
}
