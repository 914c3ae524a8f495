package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
)

func newGroup(t *testing.T, repos *repository.Repositories, name, code string) *repository.Group {
	t.Helper()
	g := &repository.Group{
		Name:       name,
		OwnerEmail: "owner@example.com",
		InviteCode: code,
		Members:    []repository.GroupMember{{Email: "owner@example.com", Name: "Owner"}},
	}
	require.NoError(t, repos.GroupRepo.Create(context.Background(), g))
	return g
}

func TestGroupCreateRejectsDuplicateInviteCode(t *testing.T) {
	repos := NewRepositories(NewStore())
	newGroup(t, repos, "First", "ABC123")

	err := repos.GroupRepo.Create(context.Background(), &repository.Group{Name: "Second", OwnerEmail: "x@example.com", InviteCode: "ABC123"})
	assert.ErrorIs(t, err, repository.ErrDuplicateInviteCode)
}

func TestAddMemberConcurrentJoinersAllPersist(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(NewStore())
	g := newGroup(t, repos, "Friday Draft", "FRIDAY")

	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"}
	var wg sync.WaitGroup
	for _, email := range emails {
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			added, err := repos.GroupRepo.AddMember(ctx, &repository.GroupMember{GroupID: g.ID, Email: email})
			assert.NoError(t, err)
			assert.True(t, added)
		}(email)
	}
	wg.Wait()

	added, err := repos.GroupRepo.AddMember(ctx, &repository.GroupMember{GroupID: g.ID, Email: "a@example.com"})
	require.NoError(t, err)
	assert.False(t, added)

	got, err := repos.GroupRepo.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, got.Members, len(emails)+1)
}

func TestAddMemberToMissingGroup(t *testing.T) {
	repos := NewRepositories(NewStore())

	added, err := repos.GroupRepo.AddMember(context.Background(), &repository.GroupMember{GroupID: "missing", Email: "a@example.com"})
	assert.ErrorIs(t, err, repository.ErrGroupNotFound)
	assert.False(t, added)
}

func TestListByMemberNewestFirstWithEqualTimestamps(t *testing.T) {
	store := NewStore()
	fixed := time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return fixed })
	repos := NewRepositories(store)

	first := newGroup(t, repos, "First", "AAAAAA")
	second := newGroup(t, repos, "Second", "BBBBBB")

	groups, err := repos.GroupRepo.ListByMember(context.Background(), "owner@example.com")
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, second.ID, groups[0].ID)
	assert.Equal(t, first.ID, groups[1].ID)
}

func TestFindReturnsNilForMissingRows(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(NewStore())

	g, err := repos.GroupRepo.FindByID(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, g)

	u, err := repos.UserRepo.FindByEmail(ctx, "nobody@example.com")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestReturnedGroupsAreCopies(t *testing.T) {
	ctx := context.Background()
	repos := NewRepositories(NewStore())
	g := newGroup(t, repos, "Friday Draft", "COPIES")

	got, err := repos.GroupRepo.FindByID(ctx, g.ID)
	require.NoError(t, err)
	got.Members = append(got.Members, repository.GroupMember{Email: "sneaky@example.com"})
	got.Name = "Changed"

	again, err := repos.GroupRepo.FindByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Friday Draft", again.Name)
	assert.False(t, again.HasMember("sneaky@example.com"))
}

func TestDeleteHookAbortsDelete(t *testing.T) {
	store := NewStore()
	repos := NewRepositories(store)
	g := newGroup(t, repos, "Friday Draft", "HOOKED")

	boom := errors.New("boom")
	store.SetDeleteHook(func(table, id string) error {
		if table == TableGroups {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, repos.GroupRepo.Delete(context.Background(), g.ID), boom)
	assert.Equal(t, 1, store.Count(TableGroups))

	store.SetDeleteHook(nil)
	require.NoError(t, repos.GroupRepo.Delete(context.Background(), g.ID))
	assert.Equal(t, 0, store.Count(TableGroups))
}
