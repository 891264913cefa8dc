package main

import "testing"

// TestCoverageGaps_IntentionallyUntested documents why cmd/demo has no unit tests.
func TestCoverageGaps_IntentionallyUntested(t *testing.T) {
	t.Skip("main.go is wiring-only; routing, mounting and shutdown are tested in internal packages")
}
