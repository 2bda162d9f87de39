package search

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func deletedTerm() []any {
	return []any{map[string]any{"term": map[string]any{"deleted": true}}}
}

func freshnessRange() map[string]any {
	return map[string]any{
		"range": map[string]any{
			"schedules.end_date": map[string]any{"gte": "now/d", "lte": "now+1y/d"},
		},
	}
}

func textClause(query string) map[string]any {
	return map[string]any{
		"multi_match": map[string]any{
			"query":                query,
			"type":                 "most_fields",
			"minimum_should_match": "75%",
			"operator":             "and",
			"tie_breaker":          0.8,
			"fields": []string{
				"title^4", "description",
				"place.city", "place.title^2", "place.address",
			},
		},
	}
}

func startDateRange(gte, lte string) map[string]any {
	return map[string]any{
		"range": map[string]any{
			"schedules.start_date": map[string]any{"gte": gte, "lte": lte},
		},
	}
}

func TestCompile(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		want map[string]any
	}{
		{
			name: "empty request gets the default freshness window",
			req:  &Request{Limit: 1},
			want: map[string]any{
				"query": map[string]any{"bool": map[string]any{
					"must":     []any{freshnessRange()},
					"must_not": deletedTerm(),
				}},
				"sort": []any{
					map[string]any{"schedules.start_date": map[string]any{"order": "asc"}},
				},
				"from": 0,
				"size": 1,
			},
		},
		{
			name: "text query",
			req:  &Request{Query: "jazz concert", Limit: 1},
			want: map[string]any{
				"query": map[string]any{"bool": map[string]any{
					"must":     []any{freshnessRange(), textClause("jazz concert")},
					"must_not": deletedTerm(),
				}},
				"sort": []any{
					map[string]any{"schedules.start_date": map[string]any{"order": "asc"}},
				},
				"from": 0,
				"size": 1,
			},
		},
		{
			name: "explicit date range replaces the freshness window",
			req: &Request{
				Query:     "jazz",
				DateRange: &DateRange{Start: "2026-09-01", End: "2026-09-07"},
				Limit:     1,
			},
			want: map[string]any{
				"query": map[string]any{"bool": map[string]any{
					"must": []any{
						textClause("jazz"),
						startDateRange("2026-09-01||/d", "2026-09-07||/d"),
					},
					"must_not": deletedTerm(),
				}},
				"sort": []any{
					map[string]any{"schedules.start_date": map[string]any{"order": "asc"}},
				},
				"from": 0,
				"size": 1,
			},
		},
		{
			name: "single date bounds both sides of the day",
			req:  &Request{DateRange: &DateRange{Start: "2026-09-01"}, Limit: 1},
			want: map[string]any{
				"query": map[string]any{"bool": map[string]any{
					"must":     []any{startDateRange("2026-09-01||/d", "2026-09-01||/d")},
					"must_not": deletedTerm(),
				}},
				"sort": []any{
					map[string]any{"schedules.start_date": map[string]any{"order": "asc"}},
				},
				"from": 0,
				"size": 1,
			},
		},
		{
			name: "geo filter",
			req: &Request{
				Geo:   &GeoFilter{Lat: 55.75, Lng: 37.61, RadiusM: 1000},
				Limit: 1,
			},
			want: map[string]any{
				"query": map[string]any{"bool": map[string]any{
					"must":     []any{freshnessRange()},
					"must_not": deletedTerm(),
					"filter": []any{map[string]any{
						"geo_distance": map[string]any{
							"distance": "1000m",
							"place.geometry": map[string]any{
								"lat": 55.75,
								"lon": 37.61,
							},
						},
					}},
				}},
				"sort": []any{
					map[string]any{"schedules.start_date": map[string]any{"order": "asc"}},
				},
				"from": 0,
				"size": 1,
			},
		},
		{
			name: "geo filter composes with the text query",
			req: &Request{
				Query: "jazz",
				Geo:   &GeoFilter{Lat: 55.75, Lng: 37.62, RadiusM: 1000},
				Limit: 1,
			},
			want: map[string]any{
				"query": map[string]any{"bool": map[string]any{
					"must":     []any{freshnessRange(), textClause("jazz")},
					"must_not": deletedTerm(),
					"filter": []any{map[string]any{
						"geo_distance": map[string]any{
							"distance": "1000m",
							"place.geometry": map[string]any{
								"lat": 55.75,
								"lon": 37.62,
							},
						},
					}},
				}},
				"sort": []any{
					map[string]any{"schedules.start_date": map[string]any{"order": "asc"}},
				},
				"from": 0,
				"size": 1,
			},
		},
		{
			name: "pagination window",
			req:  &Request{Query: "techno", Offset: 1, Limit: 5},
			want: map[string]any{
				"query": map[string]any{"bool": map[string]any{
					"must":     []any{freshnessRange(), textClause("techno")},
					"must_not": deletedTerm(),
				}},
				"sort": []any{
					map[string]any{"schedules.start_date": map[string]any{"order": "asc"}},
				},
				"from": 1,
				"size": 5,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compile(tt.req).Body()
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("query body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueryMarshalJSON(t *testing.T) {
	q := Compile(&Request{Query: "jazz", Limit: 1})
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if _, ok := decoded["query"]; !ok {
		t.Error("marshaled body missing query clause")
	}
}
