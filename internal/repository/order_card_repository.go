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

// OrderCard is a card line in an order. Price, name and image are a snapshot
// of the catalog entry at the time the card was added.
type OrderCard struct {
	ID           string              `db:"id"`
	OrderID      string              `db:"order_id"`
	GroupID      string              `db:"group_id"`
	ScryfallID   string              `db:"scryfall_id"`
	CardName     string              `db:"card_name"`
	CardImage    string              `db:"card_image"`
	SetName      string              `db:"set_name"`
	Price        decimal.NullDecimal `db:"price"`
	Quantity     *int                `db:"quantity"`
	AddedByEmail string              `db:"added_by_email"`
	AddedByName  string              `db:"added_by_name"`
	CreatedAt    time.Time           `db:"created_at"`
}

type OrderCardRepository interface {
	Create(ctx context.Context, card *OrderCard) error
	FindByID(ctx context.Context, id string) (*OrderCard, error)
	// ListByOrder returns the order's cards, newest first.
	ListByOrder(ctx context.Context, orderID string) ([]*OrderCard, error)
	ListIDsByOrder(ctx context.Context, orderID string) ([]string, error)
	ListIDsByGroup(ctx context.Context, groupID string) ([]string, error)
	// CountByOrders returns card rows per order id. Orders without cards are
	// absent from the map.
	CountByOrders(ctx context.Context, orderIDs []string) (map[string]int, error)
	// Delete removes one card. Deleting a missing card is a no-op.
	Delete(ctx context.Context, id string) error
}

type sqlOrderCardRepository struct {
	db *sqlx.DB
}

func NewOrderCardRepository(db *sqlx.DB) OrderCardRepository {
	return &sqlOrderCardRepository{db: db}
}

const orderCardColumns = `id, order_id, group_id, scryfall_id, card_name, card_image, set_name,
	price, quantity, added_by_email, added_by_name, created_at`

func (r *sqlOrderCardRepository) Create(ctx context.Context, card *OrderCard) error {
	if card.ID == "" {
		card.ID = uuid.New().String()
	}
	card.CreatedAt = time.Now()

	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO order_cards (`+orderCardColumns+`)
		VALUES (:id, :order_id, :group_id, :scryfall_id, :card_name, :card_image, :set_name,
			:price, :quantity, :added_by_email, :added_by_name, :created_at)
	`, card)
	return err
}

func (r *sqlOrderCardRepository) FindByID(ctx context.Context, id string) (*OrderCard, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var card OrderCard
	err := r.db.GetContext(ctx, &card, `SELECT `+orderCardColumns+` FROM order_cards WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *sqlOrderCardRepository) ListByOrder(ctx context.Context, orderID string) ([]*OrderCard, error) {
	var cards []*OrderCard
	err := r.db.SelectContext(ctx, &cards, `
		SELECT `+orderCardColumns+`
		FROM order_cards WHERE order_id = $1
		ORDER BY created_at DESC
	`, orderID)
	return cards, err
}

func (r *sqlOrderCardRepository) ListIDsByOrder(ctx context.Context, orderID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM order_cards WHERE order_id = $1`, orderID)
	return ids, err
}

func (r *sqlOrderCardRepository) ListIDsByGroup(ctx context.Context, groupID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, `SELECT id FROM order_cards WHERE group_id = $1`, groupID)
	return ids, err
}

func (r *sqlOrderCardRepository) CountByOrders(ctx context.Context, orderIDs []string) (map[string]int, error) {
	counts := make(map[string]int, len(orderIDs))
	if len(orderIDs) == 0 {
		return counts, nil
	}

	query, args, err := sqlx.In(`
		SELECT order_id, COUNT(*) AS n
		FROM order_cards WHERE order_id IN (?)
		GROUP BY order_id
	`, orderIDs)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		OrderID string `db:"order_id"`
		N       int    `db:"n"`
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.OrderID] = row.N
	}
	return counts, nil
}

func (r *sqlOrderCardRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM order_cards WHERE id = $1`, id)
	return err
}
