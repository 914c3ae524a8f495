package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID             string          `db:"id"`
	GroupID        string          `db:"group_id"`
	Title          string          `db:"title"`
	Deadline       time.Time       `db:"deadline"`
	Currency       string          `db:"currency"`
	Notes          *string         `db:"notes"`
	Status         string          `db:"status"`
	TotalValue     decimal.Decimal `db:"total_value"`
	CreatedByEmail string          `db:"created_by_email"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	// ListByGroup returns the group's orders, newest first.
	ListByGroup(ctx context.Context, groupID string) ([]*Order, error)
	ListIDsByGroup(ctx context.Context, groupID string) ([]string, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateTotalValue(ctx context.Context, id string, total decimal.Decimal) error
	// Delete removes one order. Deleting a missing order is a no-op.
	Delete(ctx context.Context, id string) error
	// ListOpenWithDeadlineBetween returns open orders whose deadline falls in
	// (from, to].
	ListOpenWithDeadlineBetween(ctx context.Context, from, to time.Time) ([]*Order, error)
}

type sqlOrderRepository struct {
	db *sqlx.DB
}

func NewOrderRepository(db *sqlx.DB) OrderRepository {
	return &sqlOrderRepository{db: db}
}

const orderColumns = `id, group_id, title, deadline, currency, notes, status, total_value,
	created_by_email, created_at, updated_at`

func (r *sqlOrderRepository) Create(ctx context.Context, order *Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (:id, :group_id, :title, :deadline, :currency, :notes, :status, :total_value,
			:created_by_email, :created_at, :updated_at)
	`, order)
	return err
}

func (r *sqlOrderRepository) FindByID(ctx context.Context, id string) (*Order, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var order Order
	err := r.db.GetContext(ctx, &order, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *sqlOrderRepository) ListByGroup(ctx context.Context, groupID string) ([]*Order, error) {
	var orders []*Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM orders WHERE group_id = $1
		ORDER BY created_at DESC
	`, groupID)
	return orders, err
}

func (r *sqlOrderRepository) ListIDsByGroup(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM orders WHERE group_id = $1`, groupID)
	return ids, err
}

func (r *sqlOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	return err
}

func (r *sqlOrderRepository) UpdateTotalValue(ctx context.Context, id string, total decimal.Decimal) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE orders SET total_value = $2, updated_at = NOW() WHERE id = $1`, id, total)
	return err
}

func (r *sqlOrderRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	return err
}

func (r *sqlOrderRepository) ListOpenWithDeadlineBetween(ctx context.Context, from, to time.Time) ([]*Order, error) {
	var orders []*Order
	err := r.db.SelectContext(ctx, &orders, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE status = 'open' AND deadline > $1 AND deadline <= $2
		ORDER BY deadline ASC
	`, from, to)
	return orders, err
}
