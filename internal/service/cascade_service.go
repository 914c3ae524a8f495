package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/Marga-Ghale/cardpool-backend/internal/events"
	"github.com/Marga-Ghale/cardpool-backend/internal/metrics"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/types"
)

const (
	cascadeConcurrency = 8
	resumeBatchSize    = 50
)

var (
	groupPhases = []string{types.PhaseCards, types.PhaseOrders, types.PhaseMessages, types.PhaseGroup}
	orderPhases = []string{types.PhaseCards, types.PhaseOrder}
)

// ============================================
// Cascade Service
// ============================================

// CascadeService deletes a group or an order together with its dependents.
// Every run is journaled as a CascadeJob so a failed run can be resumed from
// the phase it stopped in.
type CascadeService interface {
	DeleteGroup(ctx context.Context, actor Actor, group *repository.Group) error
	DeleteOrder(ctx context.Context, actor Actor, order *repository.Order) error
	// ResumePending reruns pending jobs and returns how many completed.
	ResumePending(ctx context.Context) (int, error)
}

type cascadeService struct {
	repos   *repository.Repositories
	notify  *notifier
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewCascadeService(repos *repository.Repositories, notify *notifier, m *metrics.Metrics) CascadeService {
	return &cascadeService{
		repos:   repos,
		notify:  notify,
		metrics: m,
		log:     slog.With("component", "cascade"),
	}
}

func (s *cascadeService) DeleteGroup(ctx context.Context, actor Actor, group *repository.Group) error {
	return s.start(ctx, &repository.CascadeJob{
		Kind:        types.CascadeGroup,
		TargetID:    group.ID,
		GroupID:     group.ID,
		RequestedBy: NormalizeEmail(actor.Email),
		Phase:       groupPhases[0],
	})
}

func (s *cascadeService) DeleteOrder(ctx context.Context, actor Actor, order *repository.Order) error {
	return s.start(ctx, &repository.CascadeJob{
		Kind:        types.CascadeOrder,
		TargetID:    order.ID,
		GroupID:     order.GroupID,
		RequestedBy: NormalizeEmail(actor.Email),
		Phase:       orderPhases[0],
	})
}

func (s *cascadeService) start(ctx context.Context, job *repository.CascadeJob) error {
	if err := s.repos.CascadeRepo.CreateOrGetPending(ctx, job); err != nil {
		return fmt.Errorf("%w: journal cascade: %v", ErrTransport, err)
	}
	return s.run(ctx, job)
}

func (s *cascadeService) ResumePending(ctx context.Context) (int, error) {
	jobs, err := s.repos.CascadeRepo.ListPending(ctx, resumeBatchSize)
	if err != nil {
		return 0, fmt.Errorf("%w: list pending cascades: %v", ErrTransport, err)
	}

	done := 0
	var errs []error
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		s.log.Info("resuming cascade", "job_id", job.ID, "kind", job.Kind, "target_id", job.TargetID, "phase", job.Phase, "attempts", job.Attempts)
		if err := s.run(ctx, job); err != nil {
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func phasesFor(kind string) ([]string, error) {
	switch kind {
	case types.CascadeGroup:
		return groupPhases, nil
	case types.CascadeOrder:
		return orderPhases, nil
	}
	return nil, fmt.Errorf("unknown cascade kind %q", kind)
}

// remaining returns the phases from current onward.
func remaining(phases []string, current string) []string {
	for i, p := range phases {
		if p == current {
			return phases[i:]
		}
	}
	return phases
}

func (s *cascadeService) run(ctx context.Context, job *repository.CascadeJob) error {
	phases, err := phasesFor(job.Kind)
	if err != nil {
		return err
	}

	for _, phase := range remaining(phases, job.Phase) {
		if phase != job.Phase {
			if err := s.repos.CascadeRepo.SetPhase(ctx, job.ID, phase); err != nil {
				return fmt.Errorf("%w: advance cascade: %v", ErrTransport, err)
			}
			job.Phase = phase
		}

		if err := s.runPhase(ctx, job, phase); err != nil {
			s.log.Error("cascade phase failed", "job_id", job.ID, "kind", job.Kind, "target_id", job.TargetID, "phase", phase, "error", err)
			if rerr := s.repos.CascadeRepo.RecordFailure(ctx, job.ID, phase, err.Error()); rerr != nil {
				s.log.Error("failed to record cascade failure", "job_id", job.ID, "error", rerr)
			}
			s.metrics.CascadeRun(job.Kind, "failed")
			return fmt.Errorf("%w: delete %s %s stopped in phase %s: %v", ErrTransport, job.Kind, job.TargetID, phase, err)
		}
	}

	if err := s.repos.CascadeRepo.MarkDone(ctx, job.ID); err != nil {
		return fmt.Errorf("%w: complete cascade: %v", ErrTransport, err)
	}
	s.metrics.CascadeRun(job.Kind, "done")
	s.announce(ctx, job)
	return nil
}

func (s *cascadeService) runPhase(ctx context.Context, job *repository.CascadeJob, phase string) error {
	repos := s.repos
	switch job.Kind + "/" + phase {
	case types.CascadeGroup + "/" + types.PhaseCards:
		return deleteAll(ctx, repos.OrderCardRepo.ListIDsByGroup, repos.OrderCardRepo.Delete, job.TargetID)
	case types.CascadeGroup + "/" + types.PhaseOrders:
		return deleteAll(ctx, repos.OrderRepo.ListIDsByGroup, repos.OrderRepo.Delete, job.TargetID)
	case types.CascadeGroup + "/" + types.PhaseMessages:
		return deleteAll(ctx, repos.ChatRepo.ListIDsByGroup, repos.ChatRepo.Delete, job.TargetID)
	case types.CascadeGroup + "/" + types.PhaseGroup:
		return repos.GroupRepo.Delete(ctx, job.TargetID)
	case types.CascadeOrder + "/" + types.PhaseCards:
		return deleteAll(ctx, repos.OrderCardRepo.ListIDsByOrder, repos.OrderCardRepo.Delete, job.TargetID)
	case types.CascadeOrder + "/" + types.PhaseOrder:
		return repos.OrderRepo.Delete(ctx, job.TargetID)
	}
	return fmt.Errorf("unknown phase %q for %s cascade", phase, job.Kind)
}

// deleteAll lists the ids owned by parentID and deletes them with bounded
// concurrency. It returns once every deletion has settled.
func deleteAll(
	ctx context.Context,
	list func(ctx context.Context, parentID string) ([]string, error),
	del func(ctx context.Context, id string) error,
	parentID string,
) error {
	ids, err := list(ctx, parentID)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cascadeConcurrency)
	for _, id := range ids {
		id := id
		g.Go(func() error {
			if err := del(gctx, id); err != nil {
				return fmt.Errorf("delete %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *cascadeService) announce(ctx context.Context, job *repository.CascadeJob) {
	payload := map[string]interface{}{
		"id":           job.TargetID,
		"group_id":     job.GroupID,
		"requested_by": job.RequestedBy,
	}

	switch job.Kind {
	case types.CascadeGroup:
		if ws := s.notify.ws(); ws != nil {
			ws.BroadcastGroupDeleted(job.GroupID, job.RequestedBy)
		}
		s.notify.publish(ctx, events.GroupDeleted, payload)
	case types.CascadeOrder:
		if ws := s.notify.ws(); ws != nil {
			ws.BroadcastOrderDeleted(job.GroupID, job.TargetID, job.RequestedBy)
		}
		s.notify.publish(ctx, events.OrderDeleted, payload)
	}
}
