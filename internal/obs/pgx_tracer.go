package obs

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type pgxQueryKey struct{}

type pgxQuery struct {
	span      trace.Span
	sql       string
	startedAt time.Time
}

// PGXTracer implements pgx.QueryTracer. It creates a span per statement and
// logs statements slower than SlowQuery through the context logger.
type PGXTracer struct {
	SlowQuery time.Duration
}

// TraceQueryStart starts a span for the SQL statement.
func (t PGXTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := Tracer("pgx").Start(ctx, "pgx.query")
	sql := truncateSQL(data.SQL)
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.statement", sql),
	)
	if fields := strings.Fields(sql); len(fields) > 0 {
		span.SetAttributes(attribute.String("db.operation", strings.ToUpper(fields[0])))
	}
	return context.WithValue(ctx, pgxQueryKey{}, pgxQuery{span: span, sql: sql, startedAt: time.Now()})
}

// TraceQueryEnd ends the span, records any error and reports slow statements.
func (t PGXTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	q, ok := ctx.Value(pgxQueryKey{}).(pgxQuery)
	if !ok {
		return
	}
	elapsed := time.Since(q.startedAt)
	q.span.SetAttributes(attribute.Int64("db.rows_affected", data.CommandTag.RowsAffected()))
	if data.Err != nil {
		q.span.RecordError(data.Err)
	}
	q.span.End()
	if t.SlowQuery > 0 && elapsed >= t.SlowQuery {
		zerolog.Ctx(ctx).Warn().
			Str("statement", q.sql).
			Int64("duration_ms", elapsed.Milliseconds()).
			Msg("slow_query")
	}
}

func truncateSQL(sql string) string {
	trimmed := strings.Join(strings.Fields(sql), " ")
	if len(trimmed) > 300 {
		return trimmed[:300] + "..."
	}
	return trimmed
}
