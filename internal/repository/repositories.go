package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

type Repositories struct {
	// pgxpool repositories
	UserRepo    UserRepository
	GroupRepo   GroupRepository
	ChatRepo    ChatRepository
	CascadeRepo CascadeRepository

	// sqlx repositories
	OrderRepo     OrderRepository
	OrderCardRepo OrderCardRepository
}

func NewRepositories(pool *pgxpool.Pool, db *sqlx.DB) *Repositories {
	return &Repositories{
		UserRepo:    NewUserRepository(pool),
		GroupRepo:   NewGroupRepository(pool),
		ChatRepo:    NewChatRepository(pool),
		CascadeRepo: NewCascadeRepository(pool),

		OrderRepo:     NewOrderRepository(db),
		OrderCardRepo: NewOrderCardRepository(db),
	}
}
