package geo

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockHTTPClient struct {
	body       string
	statusCode int
	err        error
	lastReq    *http.Request
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGeocode(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockHTTPClient
		want      *Location
		wantErr   bool
	}{
		{
			name: "hit",
			transport: &mockHTTPClient{
				statusCode: 200,
				body:       `[{"lat":"55.7558","lon":"37.6173","display_name":"Moscow, Russia"}]`,
			},
			want: &Location{Lat: 55.7558, Lng: 37.6173, DisplayName: "Moscow, Russia"},
		},
		{
			name:      "miss returns nil without error",
			transport: &mockHTTPClient{statusCode: 200, body: `[]`},
			want:      nil,
		},
		{
			name: "unparsable coordinates count as a miss",
			transport: &mockHTTPClient{
				statusCode: 200,
				body:       `[{"lat":"north","lon":"far","display_name":"Nowhere"}]`,
			},
			want: nil,
		},
		{
			name:      "transport failure",
			transport: &mockHTTPClient{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
		{
			name:      "http error status",
			transport: &mockHTTPClient{statusCode: 429, body: "slow down"},
			wantErr:   true,
		},
		{
			name:      "invalid json",
			transport: &mockHTTPClient{statusCode: 200, body: `not json`},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.transport, Config{UserAgent: "eventbot-test"}, testLogger())
			got, err := c.Geocode(context.Background(), "Moscow")

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("location mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGeocodeRequestShape(t *testing.T) {
	transport := &mockHTTPClient{statusCode: 200, body: `[]`}
	c := NewClient(transport, Config{UserAgent: "eventbot-test"}, testLogger())

	if _, err := c.Geocode(context.Background(), "New York"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := transport.lastReq
	q := req.URL.Query()
	if q.Get("q") != "New York" || q.Get("format") != "json" || q.Get("limit") != "1" {
		t.Errorf("unexpected query: %v", q)
	}
	if req.Header.Get("User-Agent") != "eventbot-test" {
		t.Errorf("user agent = %q", req.Header.Get("User-Agent"))
	}
}
