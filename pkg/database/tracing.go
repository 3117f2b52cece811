package database

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/rdGxd/todo-list/pkg/database"

// QueryTracer wraps repository calls in client spans and warns about queries
// slower than Threshold. The zero value traces without slow-query logging.
type QueryTracer struct {
	Threshold time.Duration
	Logger    *slog.Logger
}

// Start opens a span for operation. Call the returned func with the
// operation's final error:
//
//	ctx, end := tracer.Start(ctx, "accounts.FindByEmail", q)
//	defer func() { end(err) }()
func (t QueryTracer) Start(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if t.Threshold <= 0 || t.Logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= t.Threshold {
			t.Logger.WarnContext(ctx, "slow query",
				slog.String("operation", operation),
				slog.Duration("duration", elapsed),
			)
		}
	}
}
