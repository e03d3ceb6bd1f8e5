package logger

import "testing"

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Level != "info" || cfg.Format != "console" || cfg.Output != "stdout" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Timestamp == nil || !*cfg.Timestamp {
		t.Fatal("timestamp must default to on")
	}
}

func TestTimestampCanBeDisabled(t *testing.T) {
	off := false
	cfg := Config{Timestamp: &off}
	cfg.ApplyDefaults()

	if cfg.Timestamp == nil || *cfg.Timestamp {
		t.Fatal("explicit timestamp=false must survive ApplyDefaults")
	}
}

func TestValidateRejectsBadLevel(t *testing.T) {
	cfg := Config{Level: "verbose"}
	cfg.Format = "console"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown level")
	}

	cfg = Config{Level: "debug", Format: "xml"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
