package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/rdGxd/todo-list/internal/auth"
	"github.com/rdGxd/todo-list/internal/domain"
)

const tracerName = "github.com/rdGxd/todo-list/internal/service"

// EventPublisher is implemented by event.Producer and event.NopProducer.
type EventPublisher interface {
	PublishAccountRegistered(ctx context.Context, account *domain.Account) error
	PublishAccountRolesChanged(ctx context.Context, accountID string, roles []domain.Role, changedBy string) error
	PublishAccountDeleted(ctx context.Context, accountID, deletedBy string) error
	PublishLoggedIn(ctx context.Context, accountID string) error
	PublishTokensRefreshed(ctx context.Context, accountID string) error
}

// TokenIssuer is the part of auth.TokenCodec the services use.
type TokenIssuer interface {
	SignAccess(subject string) (string, error)
	SignRefresh(subject string) (string, error)
	VerifyAs(token string, use auth.TokenUse) (*auth.Claims, error)
	Config() auth.TokenConfig
}

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}
