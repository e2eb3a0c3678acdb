package core

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// AuditSink receives order audit events after the order's transaction commits.
// Emit never fails the caller; sinks log their own failures.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// NewAuditID returns a new time-ordered audit event ID.
func NewAuditID() string {
	return ulid.Make().String()
}

// LogAuditSink writes audit events to a zap logger.
type LogAuditSink struct {
	logger *zap.Logger
}

func NewLogAuditSink(logger *zap.Logger) *LogAuditSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogAuditSink{logger: logger}
}

func (s *LogAuditSink) Emit(_ context.Context, event AuditEvent) {
	fields := []zap.Field{
		zap.String("audit_id", event.ID),
		zap.Int("company_id", event.CompanyID),
		zap.Int("order_id", event.OrderID),
		zap.String("amount", event.Amount.StringFixed(2)),
		zap.Time("occurred_at", event.OccurredAt),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.Int("actor_id", *event.ActorID))
	}
	s.logger.Info(event.Action, fields...)
}

// PostgresAuditSink appends audit events to the audit_events table.
type PostgresAuditSink struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresAuditSink(pool *pgxpool.Pool, logger *zap.Logger) *PostgresAuditSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresAuditSink{pool: pool, logger: logger}
}

func (s *PostgresAuditSink) Emit(ctx context.Context, event AuditEvent) {
	if event.ID == "" {
		event.ID = NewAuditID()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO audit_events (id, company_id, action, actor_id, order_id, amount, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, event.ID, event.CompanyID, event.Action, event.ActorID, event.OrderID, event.Amount, event.OccurredAt)
	if err != nil {
		s.logger.Warn("audit event append failed",
			zap.String("audit_id", event.ID),
			zap.String("action", event.Action),
			zap.Error(err))
	}
}

// MultiAuditSink fans an event out to every sink in order.
type MultiAuditSink []AuditSink

func (m MultiAuditSink) Emit(ctx context.Context, event AuditEvent) {
	for _, sink := range m {
		sink.Emit(ctx, event)
	}
}

type noopAuditSink struct{}

func (noopAuditSink) Emit(context.Context, AuditEvent) {}
