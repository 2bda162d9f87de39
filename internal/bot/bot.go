// Package bot implements the core pipeline: the poll loop state machine,
// per-update processing, reply rendering, and background task scheduling.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Bot owns the long-running components and manages their lifecycle.
type Bot struct {
	logger    *slog.Logger
	pollLoop  *PollLoop
	scheduler *Scheduler
}

// New creates the bot orchestrator.
func New(logger *slog.Logger, pollLoop *PollLoop, scheduler *Scheduler) *Bot {
	return &Bot{
		logger:    logger.With("component", "bot"),
		pollLoop:  pollLoop,
		scheduler: scheduler,
	}
}

// Run starts the poll loop and the scheduler, blocking until the context is
// cancelled or a component fails.
func (b *Bot) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.logger.Info("starting poll loop")
		err := b.pollLoop.Run(gCtx)
		b.logger.Info("poll loop stopped")
		return err
	})

	g.Go(func() error {
		if err := b.scheduler.Start(); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
		<-gCtx.Done()
		if err := b.scheduler.Stop(); err != nil {
			b.logger.Error("error stopping scheduler", "error", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	b.logger.Info("bot stopped gracefully")
	return nil
}
