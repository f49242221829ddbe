// Package producer publishes committed audit entries to a message broker.
package producer

import (
	"projectbeheer/backend/internal/telemetry"
)

// Producer publishes audit entries. Delivery is best-effort; the audit table
// stays the source of truth.
type Producer interface {
	telemetry.EventEmitter
	// Close flushes pending writes. Safe to call more than once.
	Close() error
}
