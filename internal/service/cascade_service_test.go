package service

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/cardpool-backend/internal/events"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository/memory"
	"github.com/Marga-Ghale/cardpool-backend/internal/types"
)

// populate builds a group with two orders, cards in each and chat in both
// channels.
func populate(t *testing.T, f *fixture) string {
	t.Helper()
	group := f.groupWith(t, alice, bob)
	for i := 0; i < 2; i++ {
		order := f.openOrder(t, alice, group.ID)
		for j := 0; j < 3; j++ {
			_, err := f.svc.Card.Add(f.ctx, bob, order.ID, AddCardInput{ScryfallID: "s", CardName: "Card"})
			require.NoError(t, err)
		}
		_, err := f.svc.Chat.Send(f.ctx, bob, ChannelKey{GroupID: group.ID, OrderID: &order.ID}, "mine")
		require.NoError(t, err)
	}
	_, err := f.svc.Chat.Send(f.ctx, alice, ChannelKey{GroupID: group.ID}, "hello")
	require.NoError(t, err)
	return group.ID
}

func TestDeleteGroupRemovesEverything(t *testing.T) {
	f := newFixture(t)
	groupID := populate(t, f)
	f.groupWith(t, carol)

	require.NoError(t, f.svc.Group.Delete(f.ctx, alice, groupID))

	assert.Equal(t, 1, f.store.Count(memory.TableGroups))
	assert.Equal(t, 0, f.store.Count(memory.TableOrders))
	assert.Equal(t, 0, f.store.Count(memory.TableCards))
	assert.Equal(t, 0, f.store.Count(memory.TableMessages))
	assert.Contains(t, f.events.Types(), events.GroupDeleted)

	pending, err := f.repos.CascadeRepo.ListPending(f.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestFailedCascadeResumes(t *testing.T) {
	f := newFixture(t)
	groupID := populate(t, f)

	var failures atomic.Int32
	f.store.SetDeleteHook(func(table, id string) error {
		if table == memory.TableMessages {
			failures.Add(1)
			return errors.New("connection reset")
		}
		return nil
	})

	err := f.svc.Group.Delete(f.ctx, alice, groupID)
	require.ErrorIs(t, err, ErrTransport)

	// Earlier phases completed and nothing was rolled back.
	assert.Equal(t, 0, f.store.Count(memory.TableCards))
	assert.Equal(t, 0, f.store.Count(memory.TableOrders))
	assert.Equal(t, 3, f.store.Count(memory.TableMessages))
	assert.Equal(t, 1, f.store.Count(memory.TableGroups))

	pending, err := f.repos.CascadeRepo.ListPending(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	job := pending[0]
	assert.Equal(t, types.CascadeGroup, job.Kind)
	assert.Equal(t, types.PhaseMessages, job.Phase)
	assert.Equal(t, 1, job.Attempts)
	require.NotNil(t, job.LastError)
	assert.Contains(t, *job.LastError, "connection reset")

	f.store.SetDeleteHook(nil)
	done, err := f.svc.Cascade.ResumePending(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, done)

	assert.Equal(t, 0, f.store.Count(memory.TableMessages))
	assert.Equal(t, 0, f.store.Count(memory.TableGroups))

	pending, err = f.repos.CascadeRepo.ListPending(f.ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRetriedDeleteReusesPendingJob(t *testing.T) {
	f := newFixture(t)
	group := f.groupWith(t, alice)
	order := f.openOrder(t, alice, group.ID)
	_, err := f.svc.Card.Add(f.ctx, alice, order.ID, AddCardInput{ScryfallID: "s", CardName: "Card"})
	require.NoError(t, err)

	f.store.SetDeleteHook(func(table, id string) error {
		if table == memory.TableOrders {
			return errors.New("timeout")
		}
		return nil
	})
	require.ErrorIs(t, f.svc.Order.Delete(f.ctx, alice, order.ID), ErrTransport)
	require.ErrorIs(t, f.svc.Order.Delete(f.ctx, alice, order.ID), ErrTransport)

	pending, err := f.repos.CascadeRepo.ListPending(f.ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, types.PhaseOrder, pending[0].Phase)
	assert.Equal(t, 2, pending[0].Attempts)

	f.store.SetDeleteHook(nil)
	require.NoError(t, f.svc.Order.Delete(f.ctx, alice, order.ID))
	assert.Equal(t, 0, f.store.Count(memory.TableOrders))
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, groupPhases, remaining(groupPhases, types.PhaseCards))
	assert.Equal(t, []string{types.PhaseMessages, types.PhaseGroup}, remaining(groupPhases, types.PhaseMessages))
	assert.Equal(t, orderPhases, remaining(orderPhases, "unknown"))
}
