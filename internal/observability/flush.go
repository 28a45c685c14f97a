package observability

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// FlushTelemetry flushes telemetry buffers before process exit: the trace and
// metric providers first, then buffered logs. Call during graceful shutdown
// after in-flight requests have drained.
func FlushTelemetry(ctx context.Context, t *Telemetry, logger *zap.Logger) error {
	if t != nil {
		if err := t.Shutdown(ctx); err != nil {
			return fmt.Errorf("flush telemetry: %w", err)
		}
	}
	if logger != nil {
		if err := logger.Sync(); err != nil {
			return fmt.Errorf("flush logs: %w", err)
		}
	}
	return nil
}
