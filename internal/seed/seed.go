// internal/seed/seed.go
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Marga-Ghale/cardpool-backend/internal/service"
	"github.com/Marga-Ghale/cardpool-backend/internal/types"
)

// Demo users. Tokens for them come from POST /api/dev/token.
var demoUsers = []struct {
	Email string
	Name  string
}{
	{"marga.ghale@cardpool.dev", "Marga Ghale"},
	{"bipin.dhimal@cardpool.dev", "Bipin Dhimal"},
	{"kritim.kafle@cardpool.dev", "Kritim Kafle"},
}

// SeedData creates a demo group with an open order, a few cards and chat.
// It does nothing when the first demo user already belongs to a group.
func SeedData(ctx context.Context, services *service.Services) error {
	log := slog.With("component", "seed")

	actors := make([]service.Actor, len(demoUsers))
	for i, u := range demoUsers {
		user, err := services.User.Resolve(ctx, u.Email, u.Name)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
		actors[i] = service.ActorFor(user)
	}
	owner := actors[0]

	existing, err := services.Group.ListMine(ctx, owner)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Info("data already exists, skipping")
		return nil
	}

	description := "Weekly draft night and the singles we split shipping on"
	group, err := services.Group.Create(ctx, owner, "Friday Draft", &description)
	if err != nil {
		return fmt.Errorf("seed group: %w", err)
	}
	for _, a := range actors[1:] {
		if _, err := services.Group.Join(ctx, a, group.InviteCode); err != nil {
			return fmt.Errorf("seed member %s: %w", a.Email, err)
		}
	}

	deadline := time.Now().Add(72 * time.Hour)
	view, err := services.Order.Create(ctx, actors[1], group.ID, service.CreateOrderInput{
		Title:    "Modern Horizons 3 singles",
		Deadline: &deadline,
		Currency: types.CurrencyUSD,
	})
	if err != nil {
		return fmt.Errorf("seed order: %w", err)
	}

	cards := []struct {
		actor    service.Actor
		id, name string
		set      string
		price    string
		quantity int
	}{
		{actors[0], "a3b2c1d0-0000-4000-8000-000000000001", "Ugin's Labyrinth", "Modern Horizons 3", "4.25", 1},
		{actors[1], "a3b2c1d0-0000-4000-8000-000000000002", "Flare of Cultivation", "Modern Horizons 3", "1.10", 4},
		{actors[2], "a3b2c1d0-0000-4000-8000-000000000003", "Psychic Frog", "Modern Horizons 3", "12.00", 1},
	}
	for _, c := range cards {
		price := decimal.RequireFromString(c.price)
		qty := c.quantity
		if _, err := services.Card.Add(ctx, c.actor, view.Order.ID, service.AddCardInput{
			ScryfallID: c.id,
			CardName:   c.name,
			SetName:    c.set,
			Price:      &price,
			Quantity:   &qty,
		}); err != nil {
			return fmt.Errorf("seed card %s: %w", c.name, err)
		}
	}

	orderID := view.Order.ID
	messages := []struct {
		actor service.Actor
		key   service.ChannelKey
		text  string
	}{
		{actors[0], service.ChannelKey{GroupID: group.ID}, "Draft starts at 7, bring sleeves"},
		{actors[1], service.ChannelKey{GroupID: group.ID, OrderID: &orderID}, "Closing this order Monday night"},
	}
	for _, m := range messages {
		if _, err := services.Chat.Send(ctx, m.actor, m.key, m.text); err != nil {
			return fmt.Errorf("seed message: %w", err)
		}
	}

	log.Info("seeded demo data", "group_id", group.ID, "invite_code", group.InviteCode, "order_id", orderID)
	return nil
}
