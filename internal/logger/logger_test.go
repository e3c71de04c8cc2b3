package logger

import "testing"

func TestRedaction(t *testing.T) {
	log, logs := NewObserved()
	log.With("component", "test").Info("connecting", "db_dsn", "postgres://u:p@h/db", "preview_secret", "s3cr3t", "driver", "sqlite")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["db_dsn"] != "[REDACTED]" || fields["preview_secret"] != "[REDACTED]" {
		t.Fatalf("secrets not redacted: %v", fields)
	}
	if fields["driver"] != "sqlite" || fields["component"] != "test" {
		t.Fatalf("plain fields altered: %v", fields)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New("dev", "loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	l, err := New("prod", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	l.Sync()
}
