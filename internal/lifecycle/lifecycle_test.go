package lifecycle

import "testing"

func TestIsShuttingDown_DefaultFalse(t *testing.T) {
	Reset()
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true, want false by default")
	}
}

func TestBeginShutdown(t *testing.T) {
	BeginShutdown()
	defer Reset()
	if !IsShuttingDown() {
		t.Error("IsShuttingDown() = false after BeginShutdown(), want true")
	}
}

func TestReset(t *testing.T) {
	BeginShutdown()
	Reset()
	if IsShuttingDown() {
		t.Error("IsShuttingDown() = true after Reset(), want false")
	}
}
