package search

import (
	"encoding/json"
	"strconv"
)

// Query is a compiled, backend-ready search query. It marshals to the
// Elasticsearch request body; execution is left to the index client.
type Query struct {
	body map[string]any
}

// Body returns the query as a request-body document.
func (q *Query) Body() map[string]any { return q.body }

// MarshalJSON renders the query body.
func (q *Query) MarshalJSON() ([]byte, error) { return json.Marshal(q.body) }

// Compile builds the index query for a normalized request. Clauses compose
// additively and are emitted in a fixed order: soft-delete exclusion, default
// freshness window (only without an explicit date range), text relevance,
// explicit date filtering, geo radius, sort by schedule start, pagination.
func Compile(req *Request) *Query {
	var must []any
	var filter []any
	mustNot := []any{
		map[string]any{"term": map[string]any{"deleted": true}},
	}

	if req.DateRange == nil {
		// Freshness window: anything still running within the next year.
		must = append(must, map[string]any{
			"range": map[string]any{
				"schedules.end_date": map[string]any{
					"gte": "now/d",
					"lte": "now+1y/d",
				},
			},
		})
	}

	if req.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":                req.Query,
				"type":                 "most_fields",
				"minimum_should_match": "75%",
				"operator":             "and",
				"tie_breaker":          0.8,
				"fields": []string{
					"title^4", "description",
					"place.city", "place.title^2", "place.address",
				},
			},
		})
	}

	if req.DateRange != nil {
		start, end := req.DateRange.Start, req.DateRange.End
		switch {
		case start != "" && end != "":
		case start != "":
			end = start
		case end != "":
			start = end
		}
		must = append(must, map[string]any{
			"range": map[string]any{
				"schedules.start_date": map[string]any{
					"gte": start + "||/d",
					"lte": end + "||/d",
				},
			},
		})
	}

	if req.Geo != nil {
		filter = append(filter, map[string]any{
			"geo_distance": map[string]any{
				"distance": formatMeters(req.Geo.RadiusM),
				"place.geometry": map[string]any{
					"lat": req.Geo.Lat,
					"lon": req.Geo.Lng,
				},
			},
		})
	}

	boolQuery := map[string]any{
		"must":     must,
		"must_not": mustNot,
	}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	return &Query{body: map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"sort": []any{
			map[string]any{"schedules.start_date": map[string]any{"order": "asc"}},
		},
		"from": req.Offset,
		"size": req.Limit,
	}}
}

func formatMeters(m int) string {
	return strconv.Itoa(m) + "m"
}
