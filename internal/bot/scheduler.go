package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/whatwhere/eventbot/internal/config"
)

// TaskFunc is the signature of a scheduled task. The context provided by the
// scheduler should be respected for cancellation.
type TaskFunc func(ctx context.Context) error

// Scheduler runs the configured background tasks on cron schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	cfg       *config.SchedulerConfig
	taskMap   map[string]TaskFunc
	mu        sync.Mutex
	running   bool
}

// NewScheduler creates a scheduler for the given task registry.
func NewScheduler(logger *slog.Logger, cfg *config.SchedulerConfig, taskMap map[string]TaskFunc) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		taskMap:   taskMap,
	}, nil
}

// Start schedules all enabled tasks and begins ticking.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	scheduled := 0
	if s.cfg != nil {
		for name, taskCfg := range s.cfg.Tasks {
			if !taskCfg.Enabled {
				s.logger.Info("skipping disabled task", "task", name)
				continue
			}
			taskFunc, ok := s.taskMap[name]
			if !ok {
				s.logger.Warn("configured task not found in registry, skipping", "task", name)
				continue
			}
			if taskCfg.Schedule == "" {
				s.logger.Warn("enabled task has empty schedule, skipping", "task", name)
				continue
			}

			_, err := s.scheduler.NewJob(
				gocron.CronJob(taskCfg.Schedule, false),
				gocron.NewTask(func(ctx context.Context, name string) {
					s.logger.Info("running scheduled task", "task", name)
					start := time.Now()
					if taskErr := taskFunc(ctx); taskErr != nil {
						s.logger.Error("scheduled task failed", "task", name, "error", taskErr)
					}
					s.logger.Info("finished scheduled task", "task", name, "duration", time.Since(start))
				}, context.Background(), name),
				gocron.WithName(name),
			)
			if err != nil {
				s.logger.Error("failed to schedule task", "task", name, "schedule", taskCfg.Schedule, "error", err)
				continue
			}
			s.logger.Info("scheduled task", "task", name, "schedule", taskCfg.Schedule)
			scheduled++
		}
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("scheduler started", "tasks_scheduled", scheduled)
	return nil
}

// Stop shuts the scheduler down, waiting for running jobs to complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	err := s.scheduler.Shutdown()
	s.running = false
	return err
}
