package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ============================================
// Group Models
// ============================================

type Group struct {
	ID          string
	Name        string
	Description *string
	OwnerEmail  string
	InviteCode  string
	Members     []GroupMember
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type GroupMember struct {
	GroupID  string
	Email    string
	Name     string
	JoinedAt time.Time
}

// HasMember reports whether email is in the member list.
func (g *Group) HasMember(email string) bool {
	for _, m := range g.Members {
		if m.Email == email {
			return true
		}
	}
	return false
}

// ============================================
// Group Repository Interface
// ============================================

type GroupRepository interface {
	// Create persists the group and its initial members atomically. Returns
	// ErrDuplicateInviteCode when the invite code is taken.
	Create(ctx context.Context, group *Group) error
	FindByID(ctx context.Context, id string) (*Group, error)
	FindByInviteCode(ctx context.Context, code string) (*Group, error)
	// ListByMember returns the groups email belongs to, newest first.
	ListByMember(ctx context.Context, email string) ([]*Group, error)
	// AddMember inserts one member row. It returns false when the email is
	// already a member of the group and ErrGroupNotFound when the group is
	// gone.
	AddMember(ctx context.Context, member *GroupMember) (bool, error)
	// Delete removes the group and its member rows. Deleting a missing group
	// is a no-op.
	Delete(ctx context.Context, id string) error
}

// ============================================
// PostgreSQL Implementation
// ============================================

type pgGroupRepository struct {
	pool *pgxpool.Pool
}

func NewGroupRepository(pool *pgxpool.Pool) GroupRepository {
	return &pgGroupRepository{pool: pool}
}

func (r *pgGroupRepository) Create(ctx context.Context, group *Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	now := time.Now()
	group.CreatedAt = now
	group.UpdatedAt = now

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO groups (id, name, description, owner_email, invite_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, group.ID, group.Name, group.Description, group.OwnerEmail, group.InviteCode, group.CreatedAt, group.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "groups_invite_code_key") {
			return ErrDuplicateInviteCode
		}
		return err
	}

	for i := range group.Members {
		m := &group.Members[i]
		m.GroupID = group.ID
		if m.JoinedAt.IsZero() {
			m.JoinedAt = now
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO group_members (group_id, email, name, joined_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (group_id, email) DO NOTHING
		`, m.GroupID, m.Email, m.Name, m.JoinedAt)
		if err != nil {
			return fmt.Errorf("insert member %s: %w", m.Email, err)
		}
	}

	return tx.Commit(ctx)
}

func (r *pgGroupRepository) FindByID(ctx context.Context, id string) (*Group, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	return r.findOne(ctx, `WHERE g.id = $1`, id)
}

func (r *pgGroupRepository) FindByInviteCode(ctx context.Context, code string) (*Group, error) {
	return r.findOne(ctx, `WHERE g.invite_code = $1`, code)
}

func (r *pgGroupRepository) findOne(ctx context.Context, where string, arg any) (*Group, error) {
	group := &Group{}
	err := r.pool.QueryRow(ctx, `
		SELECT g.id, g.name, g.description, g.owner_email, g.invite_code, g.created_at, g.updated_at
		FROM groups g `+where, arg).Scan(
		&group.ID, &group.Name, &group.Description, &group.OwnerEmail, &group.InviteCode,
		&group.CreatedAt, &group.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.loadMembers(ctx, []*Group{group}); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *pgGroupRepository) ListByMember(ctx context.Context, email string) ([]*Group, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT g.id, g.name, g.description, g.owner_email, g.invite_code, g.created_at, g.updated_at
		FROM groups g
		WHERE g.owner_email = $1
		   OR EXISTS (SELECT 1 FROM group_members gm WHERE gm.group_id = g.id AND gm.email = $1)
		ORDER BY g.created_at DESC
	`, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*Group
	for rows.Next() {
		g := &Group{}
		if err := rows.Scan(&g.ID, &g.Name, &g.Description, &g.OwnerEmail, &g.InviteCode, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadMembers(ctx, groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// loadMembers fills Members for every group with a single query.
func (r *pgGroupRepository) loadMembers(ctx context.Context, groups []*Group) error {
	if len(groups) == 0 {
		return nil
	}

	ids := make([]string, len(groups))
	byID := make(map[string]*Group, len(groups))
	for i, g := range groups {
		ids[i] = g.ID
		byID[g.ID] = g
	}

	rows, err := r.pool.Query(ctx, `
		SELECT group_id, email, name, joined_at
		FROM group_members
		WHERE group_id = ANY($1::uuid[])
		ORDER BY joined_at ASC, email ASC
	`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var m GroupMember
		if err := rows.Scan(&m.GroupID, &m.Email, &m.Name, &m.JoinedAt); err != nil {
			return err
		}
		if g, ok := byID[m.GroupID]; ok {
			g.Members = append(g.Members, m)
		}
	}
	return rows.Err()
}

func (r *pgGroupRepository) AddMember(ctx context.Context, member *GroupMember) (bool, error) {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now()
	}
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO group_members (group_id, email, name, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (group_id, email) DO NOTHING
	`, member.GroupID, member.Email, member.Name, member.JoinedAt)
	if isForeignKeyViolation(err) {
		return false, ErrGroupNotFound
	}
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgGroupRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE id = $1`, id)
	return err
}
