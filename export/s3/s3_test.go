package s3

import (
	"testing"
	"time"
)

func TestConfig_Validate(t *testing.T) {
	cfg := Config{Bucket: "metrics"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	empty := Config{}
	if err := empty.Validate(); err == nil {
		t.Error("Validate() with empty bucket succeeded, want error")
	}
}

func TestSnapshotKey(t *testing.T) {
	at := time.Date(2026, 8, 29, 10, 30, 45, 123_000_000, time.UTC)

	got := SnapshotKey("", at)
	want := "snapshot-20260829T103045.123Z.msgpack"
	if got != want {
		t.Errorf("SnapshotKey() = %q, want %q", got, want)
	}

	got = SnapshotKey("prod/metrics", at)
	want = "prod/metrics/snapshot-20260829T103045.123Z.msgpack"
	if got != want {
		t.Errorf("SnapshotKey() = %q, want %q", got, want)
	}
}

func TestSnapshotKey_SortsChronologically(t *testing.T) {
	earlier := SnapshotKey("p", time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC))
	later := SnapshotKey("p", time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC))

	if !(earlier < later) {
		t.Errorf("keys do not sort chronologically: %q >= %q", earlier, later)
	}
}
