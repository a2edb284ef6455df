package nests

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/geo/r2"
)

// DateLayout is the canonical rendering of survey dates.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006/01/02",
	"01_02_2006",
	"01-02-2006",
	"20060102",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseDate accepts the date spellings found in survey exports and returns the
// calendar day at UTC midnight.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("parse date: empty value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return civilDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unrecognized layout", value)
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// SiteYear identifies one survey season at one colony.
type SiteYear struct {
	Site string
	Year string
}

func (k SiteYear) String() string {
	return k.Site + "/" + k.Year
}

// Box is a detection bounding box in the shared spatial reference.
type Box struct {
	XMin float64
	YMin float64
	XMax float64
	YMax float64
}

// Rect returns the box as a planar rectangle.
func (b Box) Rect() r2.Rect {
	return r2.RectFromPoints(r2.Point{X: b.XMin, Y: b.YMin}, r2.Point{X: b.XMax, Y: b.YMax})
}

// Center returns the box midpoint.
func (b Box) Center() r2.Point {
	return b.Rect().Center()
}

// Detection is one input row: a scored, labelled box on one survey date,
// assigned to a target.
type Detection struct {
	Site     string
	Year     string
	Date     time.Time
	TargetID int64
	Score    float64
	Label    string
	BirdID   string
	Box      Box
}

// Key returns the detection's survey season.
func (d Detection) Key() SiteYear {
	return SiteYear{Site: d.Site, Year: d.Year}
}

// Nest is one output row.
type Nest struct {
	ID        int64
	Site      string
	Year      string
	XMean     float64
	YMean     float64
	FirstObs  time.Time
	LastObs   time.Time
	NumObs    int
	Species   string
	SumTop1   float64
	NumTop1   int
	BirdMatch string
}

// Column names of the nest table, in output order.
const (
	ColumnNestID    = "nest_id"
	ColumnSite      = "Site"
	ColumnYear      = "Year"
	ColumnXMean     = "xmean"
	ColumnYMean     = "ymean"
	ColumnFirstObs  = "first_obs"
	ColumnLastObs   = "last_obs"
	ColumnNumObs    = "num_obs"
	ColumnSpecies   = "species"
	ColumnSumTop1   = "sum_top1"
	ColumnNumTop1   = "num_top1"
	ColumnBirdMatch = "bird_match"
)

// Columns is the fixed nest schema. Writers declare all of it even for an
// empty table.
var Columns = []string{
	ColumnNestID,
	ColumnSite,
	ColumnYear,
	ColumnXMean,
	ColumnYMean,
	ColumnFirstObs,
	ColumnLastObs,
	ColumnNumObs,
	ColumnSpecies,
	ColumnSumTop1,
	ColumnNumTop1,
	ColumnBirdMatch,
}
