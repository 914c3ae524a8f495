package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Marga-Ghale/cardpool-backend/internal/catalog"
	"github.com/Marga-Ghale/cardpool-backend/internal/config"
	"github.com/Marga-Ghale/cardpool-backend/internal/email"
	"github.com/Marga-Ghale/cardpool-backend/internal/events"
	"github.com/Marga-Ghale/cardpool-backend/internal/metrics"
	"github.com/Marga-Ghale/cardpool-backend/internal/repository"
	"github.com/Marga-Ghale/cardpool-backend/internal/socket"
)

var (
	ErrNotFound      = errors.New("resource not found")
	ErrForbidden     = errors.New("forbidden")
	ErrAlreadyMember = errors.New("already a member of this group")
	ErrValidation    = errors.New("invalid input")
	ErrOrderLocked   = errors.New("order is no longer accepting cards")
	ErrTransport     = errors.New("storage operation failed")
	ErrUnavailable   = errors.New("feature not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

// Actor is the authenticated user performing an operation. Name is the
// acting name stamped on members, cards and messages.
type Actor struct {
	Email string
	Name  string
}

// Clock returns the current time.
type Clock func() time.Time

// NormalizeEmail trims and lowercases an email for comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ============================================
// Services Container
// ============================================

type Services struct {
	Auth        AuthService
	User        UserService
	Permission  PermissionService
	Group       GroupService
	Order       OrderService
	Card        CardService
	Chat        ChatService
	Cascade     CascadeService
	Broadcaster *socket.Broadcaster
}

// ServiceDeps contains all dependencies needed to create services
type ServiceDeps struct {
	Config      *config.Config
	Repos       *repository.Repositories
	Catalog     catalog.Lookup
	EmailSvc    *email.Service
	Broadcaster *socket.Broadcaster
	Events      events.Publisher
	Metrics     *metrics.Metrics
	Clock       Clock
}

func NewServices(deps *ServiceDeps) *Services {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	publisher := deps.Events
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	notify := &notifier{
		broadcaster: deps.Broadcaster,
		events:      publisher,
		metrics:     deps.Metrics,
	}

	permissionService := NewPermissionService(deps.Repos.GroupRepo, deps.Repos.OrderRepo)
	cascadeService := NewCascadeService(deps.Repos, notify, deps.Metrics)

	debounce := 400 * time.Millisecond
	pollInterval := 5 * time.Second
	if deps.Config != nil {
		debounce = deps.Config.SearchDebounce
		pollInterval = deps.Config.ChatPollInterval
	}

	return &Services{
		Auth:       NewAuthService(deps.Config),
		User:       NewUserService(deps.Repos.UserRepo),
		Permission: permissionService,
		Group: NewGroupService(
			deps.Repos.GroupRepo,
			permissionService,
			cascadeService,
			deps.EmailSvc,
			notify,
		),
		Order: NewOrderService(
			deps.Repos.OrderRepo,
			deps.Repos.OrderCardRepo,
			permissionService,
			cascadeService,
			notify,
			clock,
		),
		Card: NewCardService(
			deps.Repos.OrderCardRepo,
			permissionService,
			deps.Catalog,
			catalog.NewDebouncer(debounce),
			notify,
			deps.Metrics,
			clock,
		),
		Chat:        NewChatService(deps.Repos.ChatRepo, permissionService, notify, clock, pollInterval),
		Cascade:     cascadeService,
		Broadcaster: deps.Broadcaster,
	}
}

// ============================================
// Side effects
// ============================================

// notifier fans a mutation out to websocket rooms and the event exchange.
// Failures are logged and never fail the request.
type notifier struct {
	broadcaster *socket.Broadcaster
	events      events.Publisher
	metrics     *metrics.Metrics
}

func (n *notifier) publish(ctx context.Context, key string, payload any) {
	if n == nil || n.events == nil {
		return
	}
	if err := n.events.Publish(ctx, key, payload); err != nil {
		slog.Warn("failed to publish event", "component", "events", "key", key, "error", err)
		n.metrics.EventPublished(key, "error")
		return
	}
	n.metrics.EventPublished(key, "ok")
}

func (n *notifier) ws() *socket.Broadcaster {
	if n == nil {
		return nil
	}
	return n.broadcaster
}
