package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/whatwhere/eventbot/internal/database"
	"github.com/whatwhere/eventbot/internal/intent"
	"github.com/whatwhere/eventbot/internal/search"
	"github.com/whatwhere/eventbot/internal/vk"
)

// SearchIndex executes compiled queries against the event index.
type SearchIndex interface {
	Search(ctx context.Context, query *search.Query) ([]search.Event, error)
}

// Pipeline runs one raw update through parse, intent extraction, query
// normalization and compilation, search, and reply rendering.
type Pipeline struct {
	intent        intent.Service
	normalizer    *search.Normalizer
	index         SearchIndex
	renderer      *Renderer
	store         database.Store
	log           *slog.Logger
	intentTimeout time.Duration
}

// NewPipeline creates a Pipeline.
func NewPipeline(
	intentSvc intent.Service,
	normalizer *search.Normalizer,
	index SearchIndex,
	renderer *Renderer,
	store database.Store,
	intentTimeout time.Duration,
	log *slog.Logger,
) *Pipeline {
	if intentTimeout <= 0 {
		intentTimeout = 15 * time.Second
	}
	return &Pipeline{
		intent:        intentSvc,
		normalizer:    normalizer,
		index:         index,
		renderer:      renderer,
		store:         store,
		log:           log.With("component", "pipeline"),
		intentTimeout: intentTimeout,
	}
}

// HandleUpdate processes a single raw update end to end. Updates that carry
// no inbound message yield nil without side effects. Errors are local to the
// update; the poll loop logs them and moves on.
func (p *Pipeline) HandleUpdate(ctx context.Context, update vk.RawUpdate) error {
	msg, err := vk.ParseUpdate(update)
	if err != nil {
		return err
	}
	if msg == nil || msg.Text == "" {
		return nil
	}

	p.log.DebugContext(ctx, "handling inbound message", "user_id", msg.UserID)

	ictx, cancel := context.WithTimeout(ctx, p.intentTimeout)
	res, err := p.intent.Interpret(ictx, msg.UserID, msg.Text)
	cancel()
	if err != nil {
		return fmt.Errorf("interpret intent: %w", err)
	}

	if err := p.store.SaveMessage(ctx, &database.Message{
		UserID: msg.UserID,
		Text:   msg.Text,
		Action: res.Action,
	}); err != nil {
		p.log.WarnContext(ctx, "failed to record message", "user_id", msg.UserID, "error", err)
	}

	req, err := p.normalizer.Normalize(ctx, res)
	if err != nil {
		if errors.Is(err, search.ErrNoQuery) {
			// Nothing to search for; deliver the conversational reply alone.
			if res.ReplyText != "" {
				p.renderer.SendText(ctx, msg.UserID, res.ReplyText)
			}
			return nil
		}
		return fmt.Errorf("normalize intent parameters: %w", err)
	}

	events, err := p.index.Search(ctx, search.Compile(req))
	if err != nil {
		return fmt.Errorf("search events: %w", err)
	}

	p.renderer.Render(ctx, res.ReplyText, events, msg.UserID, req.Limit)
	return nil
}
