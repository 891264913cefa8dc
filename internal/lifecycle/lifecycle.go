// Package lifecycle tracks process-wide shutdown so health checks can report draining.
package lifecycle

import "sync/atomic"

var shuttingDown atomic.Bool

// BeginShutdown marks the process as draining. Call when SIGTERM/SIGINT is received.
// Health handlers return 503 with status shutting-down from then on.
func BeginShutdown() {
	shuttingDown.Store(true)
}

// IsShuttingDown reports whether the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return shuttingDown.Load()
}

// Reset clears the draining flag. For tests only.
func Reset() {
	shuttingDown.Store(false)
}
