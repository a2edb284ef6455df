package nests

import (
	"fmt"
	"sort"
	"time"
)

// SurveyDates is the ascending, distinct list of dates a season was surveyed.
type SurveyDates []time.Time

// Rank returns the 0-based position of every date, keyed by DateLayout.
func (s SurveyDates) Rank() map[string]int {
	ranks := make(map[string]int, len(s))
	for i, d := range s {
		ranks[dateKey(d)] = i
	}
	return ranks
}

// CalendarRow is one pre-grouped (Site, Year) date-set.
type CalendarRow struct {
	Key   SiteYear
	Dates []time.Time
}

// Calendar maps each survey season to its survey dates.
type Calendar map[SiteYear]SurveyDates

// NewCalendar validates pre-grouped rows. A season appearing in more than one
// row violates the one-date-set-per-season contract.
func NewCalendar(rows []CalendarRow) (Calendar, error) {
	cal := make(Calendar, len(rows))
	for _, row := range rows {
		if _, exists := cal[row.Key]; exists {
			return nil, fmt.Errorf("%w: survey calendar has more than one row for %s", ErrContract, row.Key)
		}
		cal[row.Key] = distinctSorted(row.Dates)
	}
	return cal, nil
}

// BuildCalendar groups every detection's date by season, regardless of score.
func BuildCalendar(detections []Detection) Calendar {
	order := make([]SiteYear, 0, 1)
	dates := make(map[SiteYear][]time.Time)
	for _, det := range detections {
		key := det.Key()
		if _, ok := dates[key]; !ok {
			order = append(order, key)
		}
		dates[key] = append(dates[key], det.Date)
	}
	rows := make([]CalendarRow, 0, len(order))
	for _, key := range order {
		rows = append(rows, CalendarRow{Key: key, Dates: dates[key]})
	}
	// Keys are unique by construction.
	cal, _ := NewCalendar(rows)
	return cal
}

// Dates returns the survey dates for key.
func (c Calendar) Dates(key SiteYear) (SurveyDates, error) {
	dates, ok := c[key]
	if !ok {
		return nil, fmt.Errorf("%w: no survey calendar for %s", ErrContract, key)
	}
	return dates, nil
}

// Keys returns the calendar's seasons sorted by site, then year.
func (c Calendar) Keys() []SiteYear {
	keys := make([]SiteYear, 0, len(c))
	for key := range c {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Site != keys[j].Site {
			return keys[i].Site < keys[j].Site
		}
		return keys[i].Year < keys[j].Year
	})
	return keys
}

func distinctSorted(dates []time.Time) SurveyDates {
	seen := make(map[string]struct{}, len(dates))
	out := make(SurveyDates, 0, len(dates))
	for _, d := range dates {
		day := civilDay(d)
		k := dateKey(day)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
