package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var got string
	SetLogger(func(format string, v ...interface{}) {
		got = format
	})
	Logf("analysis run %s complete", "abc")
	if got != "analysis run %s complete" {
		t.Errorf("custom logger not invoked, got %q", got)
	}

	// nil installs a no-op, not a nil func.
	SetLogger(nil)
	if Logf == nil {
		t.Fatal("Logf is nil after SetLogger(nil)")
	}
	got = ""
	Logf("should be dropped")
	if got != "" {
		t.Errorf("no-op logger still forwarded: %q", got)
	}
}

func TestLogfDefaultNotNil(t *testing.T) {
	if Logf == nil {
		t.Error("Logf should default to a usable logger")
	}
}
