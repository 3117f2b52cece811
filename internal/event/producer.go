package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rdGxd/todo-list/internal/domain"
	pkgkafka "github.com/rdGxd/todo-list/pkg/kafka"
	"github.com/rdGxd/todo-list/pkg/logger"
)

// Kafka topics for account and auth events.
const (
	TopicAccountRegistered   = "todo.account.registered"
	TopicAccountRolesChanged = "todo.account.roles_changed"
	TopicAccountDeleted      = "todo.account.deleted"
	TopicAuthLoggedIn        = "todo.auth.logged_in"
	TopicAuthTokensRefreshed = "todo.auth.tokens_refreshed"
)

const (
	AggregateTypeAccount = "account"
	SourceTodoAPI        = "todo-api"
)

// AccountRegisteredData is the payload of an account.registered event.
type AccountRegisteredData struct {
	ID    string   `json:"id"`
	Email string   `json:"email"`
	Name  string   `json:"name"`
	Roles []string `json:"roles"`
}

// AccountRolesChangedData is the payload of an account.roles_changed event.
type AccountRolesChangedData struct {
	ID        string   `json:"id"`
	Roles     []string `json:"roles"`
	ChangedBy string   `json:"changed_by"`
}

// AccountDeletedData is the payload of an account.deleted event.
type AccountDeletedData struct {
	ID        string `json:"id"`
	DeletedBy string `json:"deleted_by"`
}

// SessionData is the payload of logged_in and tokens_refreshed events. It
// never carries token material.
type SessionData struct {
	AccountID string    `json:"account_id"`
	IssuedAt  time.Time `json:"issued_at"`
}

type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes account and auth events to Kafka.
type Producer struct {
	kafka  publisher
	logger *slog.Logger
}

// NewProducer creates an event producer on top of a Kafka producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishAccountRegistered publishes an account.registered event.
func (p *Producer) PublishAccountRegistered(ctx context.Context, a *domain.Account) error {
	return p.publish(ctx, TopicAccountRegistered, a.ID, AccountRegisteredData{
		ID:    a.ID,
		Email: a.Email,
		Name:  a.Name,
		Roles: domain.RoleStrings(a.Roles),
	})
}

// PublishAccountRolesChanged publishes an account.roles_changed event.
func (p *Producer) PublishAccountRolesChanged(ctx context.Context, accountID string, roles []domain.Role, changedBy string) error {
	return p.publish(ctx, TopicAccountRolesChanged, accountID, AccountRolesChangedData{
		ID:        accountID,
		Roles:     domain.RoleStrings(roles),
		ChangedBy: changedBy,
	})
}

// PublishAccountDeleted publishes an account.deleted event.
func (p *Producer) PublishAccountDeleted(ctx context.Context, accountID, deletedBy string) error {
	return p.publish(ctx, TopicAccountDeleted, accountID, AccountDeletedData{
		ID:        accountID,
		DeletedBy: deletedBy,
	})
}

// PublishLoggedIn publishes an auth.logged_in event.
func (p *Producer) PublishLoggedIn(ctx context.Context, accountID string) error {
	return p.publish(ctx, TopicAuthLoggedIn, accountID, SessionData{
		AccountID: accountID,
		IssuedAt:  time.Now().UTC(),
	})
}

// PublishTokensRefreshed publishes an auth.tokens_refreshed event.
func (p *Producer) PublishTokensRefreshed(ctx context.Context, accountID string) error {
	return p.publish(ctx, TopicAuthTokensRefreshed, accountID, SessionData{
		AccountID: accountID,
		IssuedAt:  time.Now().UTC(),
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID string, data any) error {
	evt, err := pkgkafka.NewEvent(topic, aggregateID, AggregateTypeAccount, SourceTodoAPI, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.InfoContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("account_id", aggregateID),
	)
	return nil
}

// NopProducer discards every event. It is used when events are disabled.
type NopProducer struct{}

func (NopProducer) PublishAccountRegistered(context.Context, *domain.Account) error { return nil }

func (NopProducer) PublishAccountRolesChanged(context.Context, string, []domain.Role, string) error {
	return nil
}

func (NopProducer) PublishAccountDeleted(context.Context, string, string) error { return nil }

func (NopProducer) PublishLoggedIn(context.Context, string) error { return nil }

func (NopProducer) PublishTokensRefreshed(context.Context, string) error { return nil }
