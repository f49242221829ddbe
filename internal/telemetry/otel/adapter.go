package otel

import (
	"context"
	"encoding/json"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"projectbeheer/backend/internal/audit/domain"
	"projectbeheer/backend/internal/telemetry"
)

// loggerName is the instrumentation scope of audit log records.
const loggerName = "projectbeheer.audit"

// NewEventEmitter returns an EventEmitter that sends audit entries as OTel log
// records via provider. A nil provider yields a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) telemetry.EventEmitter {
	if provider == nil {
		return noopEmitter{}
	}
	return NewEventEmitterWithLogger(provider.Logger(loggerName))
}

// NewEventEmitterWithLogger returns an EventEmitter writing to logger.
func NewEventEmitterWithLogger(logger otellog.Logger) telemetry.EventEmitter {
	return &otelEmitter{logger: logger}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *domain.Entry) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the entry to a log record. The body is the entry JSON; the
// identifying fields are also set as attributes for filtering.
func (e *otelEmitter) Emit(ctx context.Context, entry *domain.Entry) error {
	if entry == nil {
		return nil
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	rec := otellog.Record{}
	ts := entry.OccurredAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	rec.SetTimestamp(ts)
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.BytesValue(body))
	rec.AddAttributes(
		otellog.String("entity_table", entry.EntityTable),
		otellog.String("entity_id", entry.EntityID),
		otellog.String("action", string(entry.Action)),
		otellog.Int64("version_after", entry.VersionAfter),
	)
	if entry.ActorID.Valid {
		rec.AddAttributes(otellog.String("actor_id", entry.ActorID.String))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
