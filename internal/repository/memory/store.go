// Package memory provides an in-memory implementation of the repository
// interfaces, used for tests and ephemeral environments (STORE_DRIVER=memory).
package memory

import (
	"sync"
	"time"

	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
)

// Table names passed to DeleteHook.
const (
	TableGroups   = "groups"
	TableOrders   = "orders"
	TableCards    = "order_cards"
	TableMessages = "chat_messages"
)

// Compile-time contract assertions.
var (
	_ repository.UserRepository      = (*userRepository)(nil)
	_ repository.GroupRepository     = (*groupRepository)(nil)
	_ repository.OrderRepository     = (*orderRepository)(nil)
	_ repository.OrderCardRepository = (*orderCardRepository)(nil)
	_ repository.ChatRepository      = (*chatRepository)(nil)
	_ repository.CascadeRepository   = (*cascadeRepository)(nil)
)

type groupRecord struct {
	group   repository.Group
	members []repository.GroupMember
	seq     int64
}

type orderRecord struct {
	order repository.Order
	seq   int64
}

type cardRecord struct {
	card repository.OrderCard
	seq  int64
}

type messageRecord struct {
	message repository.ChatMessage
	seq     int64
}

type jobRecord struct {
	job repository.CascadeJob
	seq int64
}

// Store holds every table behind one mutex.
type Store struct {
	mu  sync.RWMutex
	seq int64
	now func() time.Time

	users    map[string]repository.User
	groups   map[string]*groupRecord
	orders   map[string]*orderRecord
	cards    map[string]*cardRecord
	messages map[string]*messageRecord
	jobs     map[string]*jobRecord

	deleteHook func(table, id string) error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[string]repository.User),
		groups:   make(map[string]*groupRecord),
		orders:   make(map[string]*orderRecord),
		cards:    make(map[string]*cardRecord),
		messages: make(map[string]*messageRecord),
		jobs:     make(map[string]*jobRecord),
	}
}

// SetDeleteHook installs fn to run before every delete. A non-nil error
// aborts the delete and is returned to the caller. Pass nil to clear it.
func (s *Store) SetDeleteHook(fn func(table, id string) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteHook = fn
}

// SetClock overrides the timestamp source for created/updated fields.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Count returns the number of rows in table.
func (s *Store) Count(table string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch table {
	case TableGroups:
		return len(s.groups)
	case TableOrders:
		return len(s.orders)
	case TableCards:
		return len(s.cards)
	case TableMessages:
		return len(s.messages)
	default:
		return 0
	}
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

func (s *Store) checkDelete(table, id string) error {
	s.mu.RLock()
	hook := s.deleteHook
	s.mu.RUnlock()
	if hook == nil {
		return nil
	}
	return hook(table, id)
}

// NewRepositories returns repository views over one shared store.
func NewRepositories(s *Store) *repository.Repositories {
	return &repository.Repositories{
		UserRepo:      &userRepository{s: s},
		GroupRepo:     &groupRepository{s: s},
		ChatRepo:      &chatRepository{s: s},
		CascadeRepo:   &cascadeRepository{s: s},
		OrderRepo:     &orderRepository{s: s},
		OrderCardRepo: &orderCardRepository{s: s},
	}
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
