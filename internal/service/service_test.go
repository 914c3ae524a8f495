package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Marga-Ghale/cardpool-backend/internal/catalog"
	"github.com/Marga-Ghale/cardpool-backend/internal/config"
	"github.com/Marga-Ghale/cardpool-backend/internal/events"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository/memory"
)

var (
	alice = Actor{Email: "alice@example.com", Name: "Alice"}
	bob   = Actor{Email: "bob@example.com", Name: "Bob"}
	carol = Actor{Email: "carol@example.com", Name: "Carol"}
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type stubLookup struct {
	mu    sync.Mutex
	calls []string
	cards []catalog.Card
	err   error
}

func (l *stubLookup) Search(ctx context.Context, query string) ([]catalog.Card, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, query)
	return l.cards, l.err
}

func (l *stubLookup) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

type fixture struct {
	ctx    context.Context
	store  *memory.Store
	repos  *repository.Repositories
	svc    *Services
	clock  *fakeClock
	events *events.Recorder
	lookup *stubLookup
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := &fakeClock{now: time.Date(2025, 3, 7, 12, 0, 0, 0, time.UTC)}
	store := memory.NewStore()
	store.SetClock(clock.Now)
	repos := memory.NewRepositories(store)
	recorder := &events.Recorder{}
	lookup := &stubLookup{}

	svc := NewServices(&ServiceDeps{
		Config: &config.Config{
			JWTSecret:        "test-secret",
			JWTExpiry:        1,
			SearchDebounce:   0,
			ChatPollInterval: 5 * time.Second,
		},
		Repos:   repos,
		Catalog: lookup,
		Events:  recorder,
		Clock:   clock.Now,
	})

	return &fixture{
		ctx:    context.Background(),
		store:  store,
		repos:  repos,
		svc:    svc,
		clock:  clock,
		events: recorder,
		lookup: lookup,
	}
}

// groupWith creates a group owned by owner and joined by members.
func (f *fixture) groupWith(t *testing.T, owner Actor, members ...Actor) *repository.Group {
	t.Helper()
	group, err := f.svc.Group.Create(f.ctx, owner, "Friday Draft", nil)
	require.NoError(t, err)
	for _, m := range members {
		_, err := f.svc.Group.Join(f.ctx, m, group.InviteCode)
		require.NoError(t, err)
	}
	return group
}

// openOrder creates an open order due in one day.
func (f *fixture) openOrder(t *testing.T, actor Actor, groupID string) *repository.Order {
	t.Helper()
	deadline := f.clock.Now().Add(24 * time.Hour)
	view, err := f.svc.Order.Create(f.ctx, actor, groupID, CreateOrderInput{Title: "MH3 singles", Deadline: &deadline})
	require.NoError(t, err)
	return view.Order
}

func intPtr(i int) *int { return &i }

func strPtr(s string) *string { return &s }
