// Package telemetry fans committed audit entries out to observability sinks
// (OTel log records, the Kafka audit feed) without blocking the mutation path.
package telemetry

import (
	"context"

	"projectbeheer/backend/internal/audit/domain"
)

// EventEmitter publishes a committed audit entry. Best-effort; callers log
// and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, entry *domain.Entry) error
}
