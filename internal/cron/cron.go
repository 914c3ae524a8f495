package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/service"
	"github.com/Marga-Ghale/cardpool-backend/internal/socket"
)

const (
	cascadeResumeSpec = "@every 1m"
	deadlineSpec      = "@every 5m"
	deadlineWindow    = 5 * time.Minute
	jobTimeout        = 30 * time.Second
)

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron        *cron.Cron
	cascade     service.CascadeService
	orderRepo   repository.OrderRepository
	broadcaster *socket.Broadcaster
	clock       func() time.Time
	log         *slog.Logger

	mu           sync.Mutex
	lastDeadline time.Time
}

// NewScheduler creates a new scheduler. broadcaster may be nil.
func NewScheduler(cascade service.CascadeService, orderRepo repository.OrderRepository, broadcaster *socket.Broadcaster) *Scheduler {
	return &Scheduler{
		cron:        cron.New(),
		cascade:     cascade,
		orderRepo:   orderRepo,
		broadcaster: broadcaster,
		clock:       time.Now,
		log:         slog.With("component", "cron"),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	// Resume cascades left pending by a failed delete
	if _, err := s.cron.AddFunc(cascadeResumeSpec, func() {
		s.ResumeCascades(context.Background())
	}); err != nil {
		return err
	}

	// Announce orders whose deadline passed since the last run
	if _, err := s.cron.AddFunc(deadlineSpec, func() {
		s.AnnounceDeadlines(context.Background())
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.log.Info("scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// ResumeCascades reruns pending cascade jobs.
func (s *Scheduler) ResumeCascades(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	done, err := s.cascade.ResumePending(ctx)
	if err != nil {
		s.log.Error("cascade resume incomplete", "completed", done, "error", err)
		return
	}
	if done > 0 {
		s.log.Info("resumed cascades", "completed", done)
	}
}

// AnnounceDeadlines broadcasts order_deadline_passed for every open order
// whose deadline fell in the window since the previous run. Orders are not
// modified.
func (s *Scheduler) AnnounceDeadlines(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	now := s.clock()
	s.mu.Lock()
	from := s.lastDeadline
	if from.IsZero() {
		from = now.Add(-deadlineWindow)
	}
	s.mu.Unlock()

	orders, err := s.orderRepo.ListOpenWithDeadlineBetween(ctx, from, now)
	if err != nil {
		s.log.Error("failed to list passed deadlines", "error", err)
		return 0
	}

	s.mu.Lock()
	s.lastDeadline = now
	s.mu.Unlock()

	if s.broadcaster != nil {
		for _, o := range orders {
			s.broadcaster.BroadcastDeadlinePassed(o.GroupID, o.ID, o.Title, o.Deadline)
		}
	}
	if len(orders) > 0 {
		s.log.Info("announced passed deadlines", "orders", len(orders))
	}
	return len(orders)
}
