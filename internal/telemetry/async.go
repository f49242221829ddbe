package telemetry

import (
	"context"
	"time"

	"projectbeheer/backend/internal/audit/domain"
	"projectbeheer/backend/internal/logging"
)

// emitTimeout bounds a single async emit.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after gRPC GracefulStop before
// closing sinks, so in-flight emits can finish. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine so the caller is not blocked. The
// goroutine does not inherit ctx cancellation. Nil emitter or entry is a no-op.
func EmitAsync(emitter EventEmitter, ctx context.Context, entry *domain.Entry) {
	if emitter == nil || entry == nil {
		return
	}
	logger := logging.FromContext(ctx)
	go func() {
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, entry); err != nil {
			logger.Warn("telemetry: async emit failed",
				"entity_table", entry.EntityTable,
				"entity_id", entry.EntityID,
				"error", err)
		}
	}()
}
