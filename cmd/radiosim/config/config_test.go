package config

import "testing"

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
}

func TestLoad_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.BaseStations) != len(DefaultConfig().BaseStations) {
		t.Fatalf("expected default basestation count")
	}
}

func TestValidate_RejectsNoBaseStations(t *testing.T) {
	cfg := &Config{Option5G: 0, TTIs: 10}
	if err := Validate(cfg); err != ErrNoBaseStations {
		t.Fatalf("expected ErrNoBaseStations, got %v", err)
	}
}

func TestValidate_RejectsBadOption5G(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Option5G = 9
	if err := Validate(cfg); err != ErrInvalidOption5G {
		t.Fatalf("expected ErrInvalidOption5G, got %v", err)
	}
}

func TestValidate_RejectsUnknownScheduler(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseStations[0].Scheduler = "bogus"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for an unrecognized scheduler")
	}
}

func TestValidate_RejectsUnknownSliceType(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseStations[0].Slices[0].Type = "bogus"
	if err := Validate(cfg); err == nil {
		t.Fatal("expected an error for an unrecognized slice type")
	}
}

func TestValidate_RejectsNonPositiveTTIs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TTIs = 0
	if err := Validate(cfg); err != ErrInvalidTTIs {
		t.Fatalf("expected ErrInvalidTTIs, got %v", err)
	}
}
