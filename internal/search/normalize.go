package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/whatwhere/eventbot/internal/geo"
	"github.com/whatwhere/eventbot/internal/intent"
)

// Fixed geo filter radius, in meters. Not configurable per request.
const geoRadiusMeters = 1000

// nextActionMarker identifies the "next occurrence" intent family.
const nextActionMarker = "where-is-party-next"

// ErrNoQuery reports that every supplied intent parameter was falsy: there is
// nothing to search for and the index must not be queried.
var ErrNoQuery = errors.New("search: no applicable query parameters")

// Geocoder resolves a place phrase to coordinates, nil on a miss.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (*geo.Location, error)
}

// Normalizer maps an intent result's free-form parameters into a typed
// search request.
type Normalizer struct {
	geocoder   Geocoder
	log        *slog.Logger
	window     int
	nextWindow int
}

// NewNormalizer creates a Normalizer. window is the result window for plain
// searches, nextWindow for "next occurrence" follow-ups (which also skip the
// first result).
func NewNormalizer(geocoder Geocoder, window, nextWindow int, log *slog.Logger) *Normalizer {
	if window <= 0 {
		window = 1
	}
	if nextWindow <= 0 {
		nextWindow = 5
	}
	return &Normalizer{
		geocoder:   geocoder,
		log:        log.With("component", "normalizer"),
		window:     window,
		nextWindow: nextWindow,
	}
}

// Normalize builds a search request from an intent result. It returns
// ErrNoQuery when no supplied parameter is truthy; callers must not query the
// index in that case. A geocoder miss silently omits the geo filter.
func (n *Normalizer) Normalize(ctx context.Context, res *intent.Result) (*Request, error) {
	params := res.Parameters
	next := strings.Contains(res.Action, nextActionMarker)
	if next && len(res.Contexts) > 0 {
		params = res.Contexts[0].Parameters
	}

	if !anyTruthy(params) {
		return nil, ErrNoQuery
	}

	req := &Request{
		Category: stringParam(params, "category"),
		Limit:    n.window,
	}
	if next {
		req.Offset = 1
		req.Limit = n.nextWindow
	}

	genre := stringParam(params, "genre")
	req.Query = strings.TrimSpace(genre + " " + req.Category)

	if dates := stringSliceParam(params, "date"); len(dates) == 1 {
		req.DateRange = &DateRange{Start: dates[0]}
	} else if len(dates) == 2 {
		req.DateRange = &DateRange{Start: dates[0], End: dates[1]}
	}

	if place := stringParam(params, "geo-city"); place != "" {
		loc, err := n.geocoder.Geocode(ctx, place)
		if err != nil {
			// Treated as a miss: the geo filter is simply not applicable.
			n.log.WarnContext(ctx, "geocoding failed, omitting geo filter", "place", place, "error", err)
		} else if loc != nil {
			req.Geo = &GeoFilter{Lat: loc.Lat, Lng: loc.Lng, RadiusM: geoRadiusMeters}
		}
	}

	return req, nil
}

// anyTruthy reports whether at least one parameter value is truthy: a
// non-empty string or list, or a non-zero number.
func anyTruthy(params map[string]any) bool {
	for _, v := range params {
		switch x := v.(type) {
		case string:
			if x != "" {
				return true
			}
		case []any:
			if len(x) > 0 {
				return true
			}
		case []string:
			if len(x) > 0 {
				return true
			}
		case float64:
			if x != 0 {
				return true
			}
		case int:
			if x != 0 {
				return true
			}
		case bool:
			if x {
				return true
			}
		case nil:
		default:
			return true
		}
	}
	return false
}

func stringParam(params map[string]any, key string) string {
	if s, ok := params[key].(string); ok {
		return s
	}
	return ""
}

func stringSliceParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprintf("%v", e))
		}
		return out
	default:
		return nil
	}
}
