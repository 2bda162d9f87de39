package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/whatwhere/eventbot/internal/vk"
)

// Feed is the inbound side of the chat platform: the long-poll update
// stream.
type Feed interface {
	OpenSession(ctx context.Context) (*vk.Session, error)
	Poll(ctx context.Context, session *vk.Session) ([]vk.RawUpdate, error)
}

// UpdateHandler processes one raw update from the feed.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, update vk.RawUpdate) error
}

type loopState int

const (
	stateStarting loopState = iota
	statePolling
	stateExhausted
	stateFailed
)

// PollLoop drives the update feed: it opens a session, blocks for update
// batches, runs each update through the handler, and restarts the session on
// exhaustion or transport failure. Transport failures back off with a capped
// exponential delay; session exhaustion restarts immediately.
type PollLoop struct {
	feed    Feed
	handler UpdateHandler
	log     *slog.Logger

	backoffInitial time.Duration
	backoffMax     time.Duration

	restarts int
	lastSeen time.Time
}

// NewPollLoop creates a PollLoop.
func NewPollLoop(feed Feed, handler UpdateHandler, backoffInitial, backoffMax time.Duration, log *slog.Logger) *PollLoop {
	if backoffInitial <= 0 {
		backoffInitial = 500 * time.Millisecond
	}
	if backoffMax <= 0 {
		backoffMax = 30 * time.Second
	}
	return &PollLoop{
		feed:           feed,
		handler:        handler,
		log:            log.With("component", "poll_loop"),
		backoffInitial: backoffInitial,
		backoffMax:     backoffMax,
	}
}

// Run executes the loop until ctx is cancelled. It never returns under
// normal operation; the returned error is always the context's.
func (l *PollLoop) Run(ctx context.Context) error {
	backoff := l.newBackoff()
	var session *vk.Session
	state := stateStarting

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch state {
		case stateStarting:
			s, err := l.feed.OpenSession(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				l.log.Error("failed to open feed session", "error", err)
				state = stateFailed
				continue
			}
			session = s
			state = statePolling

		case statePolling:
			updates, err := l.feed.Poll(ctx, session)
			switch {
			case errors.Is(err, vk.ErrSessionExpired):
				l.log.Info("feed session exhausted", "restarts", l.restarts)
				state = stateExhausted
			case err != nil:
				if ctx.Err() != nil {
					return ctx.Err()
				}
				l.log.Error("poll failed", "error", err)
				state = stateFailed
			default:
				backoff = l.newBackoff()
				l.processBatch(ctx, updates)
			}

		case stateExhausted:
			// Expected end-of-session signal; re-open without delay.
			l.restarts++
			state = stateStarting

		case stateFailed:
			l.restarts++
			delay, stop := backoff.Next()
			if stop {
				delay = l.backoffMax
			}
			l.log.Info("restarting feed session", "delay", delay, "restarts", l.restarts)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			state = stateStarting
		}
	}
}

func (l *PollLoop) processBatch(ctx context.Context, updates []vk.RawUpdate) {
	if len(updates) > 0 {
		l.lastSeen = time.Now()
	}
	for _, update := range updates {
		if ctx.Err() != nil {
			return
		}
		l.handleOne(ctx, update)
	}
}

func (l *PollLoop) handleOne(ctx context.Context, update vk.RawUpdate) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("panic while processing update", "code", update.Code, "panic", r)
		}
	}()

	if err := l.handler.HandleUpdate(ctx, update); err != nil {
		l.log.Error("failed to process update", "code", update.Code, "error", err)
	}
}

func (l *PollLoop) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(l.backoffMax, retry.NewExponential(l.backoffInitial))
}
