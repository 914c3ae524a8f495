package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/types"
)

// ============================================
// Users
// ============================================

type userRepository struct {
	s *Store
}

func (r *userRepository) Upsert(ctx context.Context, user *repository.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	existing, ok := r.s.users[user.Email]
	if !ok {
		existing = repository.User{Email: user.Email, FullName: user.FullName, CreatedAt: now, UpdatedAt: now}
	} else if user.FullName != "" && user.FullName != existing.FullName {
		existing.FullName = user.FullName
		existing.UpdatedAt = now
	}
	r.s.users[user.Email] = existing

	user.FullName = existing.FullName
	user.DisplayName = cloneString(existing.DisplayName)
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = existing.UpdatedAt
	return nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*repository.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[email]
	if !ok {
		return nil, nil
	}
	u.DisplayName = cloneString(u.DisplayName)
	return &u, nil
}

func (r *userRepository) UpdateDisplayName(ctx context.Context, email, displayName string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[email]
	if !ok {
		return nil
	}
	u.DisplayName = &displayName
	u.UpdatedAt = r.s.now()
	r.s.users[email] = u
	return nil
}

// ============================================
// Groups
// ============================================

type groupRepository struct {
	s *Store
}

func (r *groupRepository) Create(ctx context.Context, group *repository.Group) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range r.s.groups {
		if rec.group.InviteCode == group.InviteCode {
			return repository.ErrDuplicateInviteCode
		}
	}

	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := r.s.now()
	group.CreatedAt = now
	group.UpdatedAt = now

	rec := &groupRecord{group: *group, seq: r.s.nextSeq()}
	rec.group.Description = cloneString(group.Description)
	rec.group.Members = nil
	seen := make(map[string]bool)
	for i := range group.Members {
		m := &group.Members[i]
		m.GroupID = group.ID
		if m.JoinedAt.IsZero() {
			m.JoinedAt = now
		}
		if seen[m.Email] {
			continue
		}
		seen[m.Email] = true
		rec.members = append(rec.members, *m)
	}
	r.s.groups[group.ID] = rec
	return nil
}

func (r *groupRepository) FindByID(ctx context.Context, id string) (*repository.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.groups[id]
	if !ok {
		return nil, nil
	}
	return rec.clone(), nil
}

func (r *groupRepository) FindByInviteCode(ctx context.Context, code string) (*repository.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, rec := range r.s.groups {
		if rec.group.InviteCode == code {
			return rec.clone(), nil
		}
	}
	return nil, nil
}

func (r *groupRepository) ListByMember(ctx context.Context, email string) ([]*repository.Group, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var recs []*groupRecord
	for _, rec := range r.s.groups {
		if rec.group.OwnerEmail == email || rec.hasMember(email) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return newer(recs[i].group.CreatedAt, recs[i].seq, recs[j].group.CreatedAt, recs[j].seq)
	})

	groups := make([]*repository.Group, len(recs))
	for i, rec := range recs {
		groups[i] = rec.clone()
	}
	return groups, nil
}

func (r *groupRepository) AddMember(ctx context.Context, member *repository.GroupMember) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.groups[member.GroupID]
	if !ok {
		return false, repository.ErrGroupNotFound
	}
	if rec.hasMember(member.Email) {
		return false, nil
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = r.s.now()
	}
	rec.members = append(rec.members, *member)
	return true, nil
}

func (r *groupRepository) Delete(ctx context.Context, id string) error {
	if err := r.s.checkDelete(TableGroups, id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.groups, id)
	return nil
}

func (rec *groupRecord) hasMember(email string) bool {
	for _, m := range rec.members {
		if m.Email == email {
			return true
		}
	}
	return false
}

func (rec *groupRecord) clone() *repository.Group {
	g := rec.group
	g.Description = cloneString(rec.group.Description)
	g.Members = append([]repository.GroupMember(nil), rec.members...)
	return &g
}

// ============================================
// Orders
// ============================================

type orderRepository struct {
	s *Store
}

func (r *orderRepository) Create(ctx context.Context, order *repository.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := r.s.now()
	order.CreatedAt = now
	order.UpdatedAt = now

	rec := &orderRecord{order: *order, seq: r.s.nextSeq()}
	rec.order.Notes = cloneString(order.Notes)
	r.s.orders[order.ID] = rec
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*repository.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return rec.clone(), nil
}

func (r *orderRepository) ListByGroup(ctx context.Context, groupID string) ([]*repository.Order, error) {
	return r.list(func(o *repository.Order) bool { return o.GroupID == groupID }, true), nil
}

func (r *orderRepository) ListIDsByGroup(ctx context.Context, groupID string) ([]string, error) {
	orders := r.list(func(o *repository.Order) bool { return o.GroupID == groupID }, true)
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rec, ok := r.s.orders[id]; ok {
		rec.order.Status = status
		rec.order.UpdatedAt = r.s.now()
	}
	return nil
}

func (r *orderRepository) UpdateTotalValue(ctx context.Context, id string, total decimal.Decimal) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if rec, ok := r.s.orders[id]; ok {
		rec.order.TotalValue = total
		rec.order.UpdatedAt = r.s.now()
	}
	return nil
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	if err := r.s.checkDelete(TableOrders, id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.orders, id)
	return nil
}

func (r *orderRepository) ListOpenWithDeadlineBetween(ctx context.Context, from, to time.Time) ([]*repository.Order, error) {
	orders := r.list(func(o *repository.Order) bool {
		return o.Status == types.OrderOpen && o.Deadline.After(from) && !o.Deadline.After(to)
	}, false)
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].Deadline.Before(orders[j].Deadline) })
	return orders, nil
}

func (r *orderRepository) list(match func(*repository.Order) bool, newestFirst bool) []*repository.Order {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var recs []*orderRecord
	for _, rec := range r.s.orders {
		if match(&rec.order) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		if newestFirst {
			return newer(recs[i].order.CreatedAt, recs[i].seq, recs[j].order.CreatedAt, recs[j].seq)
		}
		return recs[i].seq < recs[j].seq
	})

	orders := make([]*repository.Order, len(recs))
	for i, rec := range recs {
		orders[i] = rec.clone()
	}
	return orders
}

func (rec *orderRecord) clone() *repository.Order {
	o := rec.order
	o.Notes = cloneString(rec.order.Notes)
	return &o
}

// ============================================
// Order Cards
// ============================================

type orderCardRepository struct {
	s *Store
}

func (r *orderCardRepository) Create(ctx context.Context, card *repository.OrderCard) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	card.CreatedAt = r.s.now()

	rec := &cardRecord{card: *card, seq: r.s.nextSeq()}
	rec.card.Quantity = cloneInt(card.Quantity)
	r.s.cards[card.ID] = rec
	return nil
}

func (r *orderCardRepository) FindByID(ctx context.Context, id string) (*repository.OrderCard, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rec, ok := r.s.cards[id]
	if !ok {
		return nil, nil
	}
	return rec.clone(), nil
}

func (r *orderCardRepository) ListByOrder(ctx context.Context, orderID string) ([]*repository.OrderCard, error) {
	return r.list(func(c *repository.OrderCard) bool { return c.OrderID == orderID }), nil
}

func (r *orderCardRepository) ListIDsByOrder(ctx context.Context, orderID string) ([]string, error) {
	return cardIDs(r.list(func(c *repository.OrderCard) bool { return c.OrderID == orderID })), nil
}

func (r *orderCardRepository) ListIDsByGroup(ctx context.Context, groupID string) ([]string, error) {
	return cardIDs(r.list(func(c *repository.OrderCard) bool { return c.GroupID == groupID })), nil
}

func (r *orderCardRepository) CountByOrders(ctx context.Context, orderIDs []string) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[string]bool, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = true
	}
	counts := make(map[string]int, len(orderIDs))
	for _, rec := range r.s.cards {
		if wanted[rec.card.OrderID] {
			counts[rec.card.OrderID]++
		}
	}
	return counts, nil
}

func (r *orderCardRepository) Delete(ctx context.Context, id string) error {
	if err := r.s.checkDelete(TableCards, id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.cards, id)
	return nil
}

func (r *orderCardRepository) list(match func(*repository.OrderCard) bool) []*repository.OrderCard {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var recs []*cardRecord
	for _, rec := range r.s.cards {
		if match(&rec.card) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		return newer(recs[i].card.CreatedAt, recs[i].seq, recs[j].card.CreatedAt, recs[j].seq)
	})

	cards := make([]*repository.OrderCard, len(recs))
	for i, rec := range recs {
		cards[i] = rec.clone()
	}
	return cards
}

func (rec *cardRecord) clone() *repository.OrderCard {
	c := rec.card
	c.Quantity = cloneInt(rec.card.Quantity)
	return &c
}

func cardIDs(cards []*repository.OrderCard) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

// ============================================
// Chat
// ============================================

type chatRepository struct {
	s *Store
}

func (r *chatRepository) Create(ctx context.Context, message *repository.ChatMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	if message.CreatedDate.IsZero() {
		message.CreatedDate = r.s.now()
	}

	rec := &messageRecord{message: *message, seq: r.s.nextSeq()}
	rec.message.OrderID = cloneString(message.OrderID)
	r.s.messages[message.ID] = rec
	return nil
}

func (r *chatRepository) ListByChannel(ctx context.Context, groupID string, orderID *string, limit int) ([]*repository.ChatMessage, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var recs []*messageRecord
	for _, rec := range r.s.messages {
		m := &rec.message
		if m.GroupID != groupID || !sameChannel(m.OrderID, orderID) {
			continue
		}
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return newer(recs[i].message.CreatedDate, recs[i].seq, recs[j].message.CreatedDate, recs[j].seq)
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	messages := make([]*repository.ChatMessage, len(recs))
	for i, rec := range recs {
		m := rec.message
		m.OrderID = cloneString(rec.message.OrderID)
		messages[i] = &m
	}
	return messages, nil
}

func (r *chatRepository) ListIDsByGroup(ctx context.Context, groupID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var ids []string
	for id, rec := range r.s.messages {
		if rec.message.GroupID == groupID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *chatRepository) Delete(ctx context.Context, id string) error {
	if err := r.s.checkDelete(TableMessages, id); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.messages, id)
	return nil
}

func sameChannel(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ============================================
// Cascade jobs
// ============================================

type cascadeRepository struct {
	s *Store
}

func (r *cascadeRepository) CreateOrGetPending(ctx context.Context, job *repository.CascadeJob) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, rec := range r.s.jobs {
		if rec.job.Status == types.CascadePending && rec.job.Kind == job.Kind && rec.job.TargetID == job.TargetID {
			*job = rec.clone()
			return nil
		}
	}

	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := r.s.now()
	job.Status = types.CascadePending
	job.CreatedAt = now
	job.UpdatedAt = now
	rec := &jobRecord{job: *job, seq: r.s.nextSeq()}
	rec.job.LastError = cloneString(job.LastError)
	r.s.jobs[job.ID] = rec
	return nil
}

func (r *cascadeRepository) SetPhase(ctx context.Context, id, phase string) error {
	return r.update(id, func(j *repository.CascadeJob) { j.Phase = phase })
}

func (r *cascadeRepository) RecordFailure(ctx context.Context, id, phase, message string) error {
	return r.update(id, func(j *repository.CascadeJob) {
		j.Phase = phase
		j.Attempts++
		j.LastError = &message
	})
}

func (r *cascadeRepository) MarkDone(ctx context.Context, id string) error {
	return r.update(id, func(j *repository.CascadeJob) {
		j.Status = types.CascadeDone
		j.LastError = nil
	})
}

func (r *cascadeRepository) ListPending(ctx context.Context, limit int) ([]*repository.CascadeJob, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var recs []*jobRecord
	for _, rec := range r.s.jobs {
		if rec.job.Status == types.CascadePending {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].seq < recs[j].seq })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}

	jobs := make([]*repository.CascadeJob, len(recs))
	for i, rec := range recs {
		j := rec.clone()
		jobs[i] = &j
	}
	return jobs, nil
}

func (r *cascadeRepository) update(id string, fn func(*repository.CascadeJob)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rec, ok := r.s.jobs[id]
	if !ok {
		return nil
	}
	fn(&rec.job)
	rec.job.UpdatedAt = r.s.now()
	return nil
}

func (rec *jobRecord) clone() repository.CascadeJob {
	j := rec.job
	j.LastError = cloneString(rec.job.LastError)
	return j
}

// newer orders by timestamp descending, breaking ties by insertion order.
func newer(a time.Time, aSeq int64, b time.Time, bSeq int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aSeq > bSeq
}
