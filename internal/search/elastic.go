package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
)

// IndexConfig holds the Elasticsearch index client settings.
type IndexConfig struct {
	Addresses []string
	Index     string
	Username  string
	Password  string
	Timeout   time.Duration
}

// Index executes compiled queries against the event index and writes back
// attachment tokens.
type Index struct {
	es    *elasticsearch.Client
	log   *slog.Logger
	index string
	tmout time.Duration
}

// NewIndex creates an index client. transport overrides the HTTP transport
// when non-nil (used by tests).
func NewIndex(cfg IndexConfig, transport http.RoundTripper, log *slog.Logger) (*Index, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Index{
		es:    es,
		log:   log.With("component", "search_index"),
		index: cfg.Index,
		tmout: cfg.Timeout,
	}, nil
}

// Search executes a compiled query and returns the ordered, already
// paginated result set.
func (ix *Index) Search(ctx context.Context, query *Query) ([]Event, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ix.tmout)
	defer cancel()

	res, err := ix.es.Search(
		ix.es.Search.WithContext(ctx),
		ix.es.Search.WithIndex(ix.index),
		ix.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, fmt.Errorf("execute search: %s", res.Status())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	var envelope struct {
		Hits struct {
			Hits []struct {
				ID     string          `json:"_id"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	events := make([]Event, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		var event Event
		if err := json.Unmarshal(hit.Source, &event); err != nil {
			ix.log.WarnContext(ctx, "skipping undecodable hit", "id", hit.ID, "error", err)
			continue
		}
		event.ID = hit.ID
		events = append(events, event)
	}

	ix.log.DebugContext(ctx, "search executed", "hits", len(events))
	return events, nil
}

// SaveAttachment writes an attachment token back onto the indexed event so
// repeat renders skip the re-upload.
func (ix *Index) SaveAttachment(ctx context.Context, eventID, token string) error {
	body, err := json.Marshal(map[string]any{
		"doc": map[string]any{"attach": token},
	})
	if err != nil {
		return fmt.Errorf("encode attachment update: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, ix.tmout)
	defer cancel()

	res, err := ix.es.Update(ix.index, eventID, bytes.NewReader(body),
		ix.es.Update.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("update attachment: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("update attachment: %s", res.Status())
	}
	return nil
}
