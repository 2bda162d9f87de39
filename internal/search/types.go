// Package search holds the typed search request, the parameter normalizer,
// the query compiler, and the Elasticsearch index client.
package search

import "time"

// Request is a normalized, typed search query input.
type Request struct {
	// Query is the free-text relevance query (genre and category joined).
	Query string

	// Category is the opaque category phrase passed through from the NLU
	// parameters; it is folded into Query, never interpreted.
	Category string

	// DateRange filters by schedule dates; nil applies the default
	// freshness window instead.
	DateRange *DateRange

	// Geo restricts results to a radius around a point. Present only when
	// geocoding of a supplied place phrase succeeded.
	Geo *GeoFilter

	// Offset and Limit define the pagination window.
	Offset int
	Limit  int
}

// DateRange holds day-granular schedule bounds. Either side may be empty;
// both empty never occurs (a Request with no dates has a nil DateRange).
type DateRange struct {
	Start string
	End   string
}

// GeoFilter admits only records within RadiusM meters of a point.
type GeoFilter struct {
	Lat     float64
	Lng     float64
	RadiusM int
}

// Event is one indexed event record. Read-only to the pipeline except for
// the attachment token written back after a media upload.
type Event struct {
	ID          string     `json:"-"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    Category   `json:"category"`
	Image       string     `json:"image"`
	Attach      string     `json:"attach"`
	Place       Place      `json:"place"`
	Dates       []Schedule `json:"dates"`
	Schedules   []Schedule `json:"schedules"`
}

// Category is the provider-supplied event category, passed through opaquely.
type Category struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// Place is the venue of an event.
type Place struct {
	Title   string   `json:"title"`
	City    string   `json:"city"`
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// Schedule is one occurrence window of an event. Dates arrive in several
// index formats; Start/End parse them on demand.
type Schedule struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// Start returns the parsed start date, or false when absent or unparsable.
func (s Schedule) Start() (time.Time, bool) { return parseIndexDate(s.StartDate) }

// End returns the parsed end date, or false when absent or unparsable.
func (s Schedule) End() (time.Time, bool) { return parseIndexDate(s.EndDate) }

var indexDateLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"02.01.2006T15:04:05",
}

func parseIndexDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range indexDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
