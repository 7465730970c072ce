package logging

import "testing"

func TestNewValidLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		sink, err := New(level)
		if err != nil {
			t.Fatalf("New(%q) returned error: %v", level, err)
		}
		// Must not panic.
		sink.Info("info", F("k", "v"))
		sink.Warn("warn")
		sink.Error("error", F("n", 1))
		sink.Critical("critical")
	}
}

func TestNopDiscards(t *testing.T) {
	sink := Nop()
	sink.Info("ignored")
	sink.Critical("ignored", F("k", "v"))
}
