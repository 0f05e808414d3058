package config

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/nrozek/polsim/internal/sky"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Site.Name != "Keck Observatory" {
		t.Errorf("expected Keck site, got %s", cfg.Site.Name)
	}
	if cfg.Derotator.Diattenuation != 0.9662 {
		t.Errorf("expected derotator diattenuation 0.9662, got %v", cfg.Derotator.Diattenuation)
	}
	if len(cfg.Targets) != 3 {
		t.Errorf("expected 3 catalog targets, got %d", len(cfg.Targets))
	}
	if len(cfg.HWPAngles) != 4 {
		t.Errorf("expected 4 HWP angles, got %d", len(cfg.HWPAngles))
	}
	if cfg.SNR <= 0 {
		t.Error("snr should be positive")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polsim.yaml")

	cfg := DefaultConfig()
	cfg.SNR = 75
	cfg.Site.Latitude = -30.24 // Las Campanas
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.SNR != 75 {
		t.Errorf("expected snr 75, got %v", loaded.SNR)
	}
	if loaded.Site.Latitude != -30.24 {
		t.Errorf("expected latitude -30.24, got %v", loaded.Site.Latitude)
	}
	if len(loaded.Targets) != len(cfg.Targets) {
		t.Errorf("targets lost in round trip")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()

	site := cfg.SiteValue()
	if math.Abs(sky.Degrees(site.Latitude)-19.8260) > 1e-9 {
		t.Errorf("site latitude: got %v deg", sky.Degrees(site.Latitude))
	}

	targets := cfg.TargetsValue()
	if len(targets) != 3 {
		t.Fatalf("expected 3 targets, got %d", len(targets))
	}
	// HDE 279652: RA 4h14m50.2s.
	wantRA := sky.RAHours(4, 14, 50.2)
	if math.Abs(targets[0].RA-wantRA) > 1e-12 {
		t.Errorf("target RA: got %v, want %v", targets[0].RA, wantRA)
	}

	truth := cfg.TruthValue()
	if math.Abs(sky.Degrees(truth.DerotatorRetardance)-186.6) > 1e-9 {
		t.Errorf("derotator retardance: got %v deg", sky.Degrees(truth.DerotatorRetardance))
	}

	hwps := cfg.HWPValues()
	if math.Abs(hwps[1]-sky.Radians(22.5)) > 1e-12 {
		t.Errorf("hwp[1]: got %v, want %v", hwps[1], sky.Radians(22.5))
	}
}

func TestGetPreset(t *testing.T) {
	if GetPreset("keck") == nil {
		t.Fatal("expected keck preset")
	}
	ideal := GetPreset("ideal")
	if ideal == nil {
		t.Fatal("expected ideal preset")
	}
	if ideal.Derotator.Diattenuation != 0 {
		t.Error("ideal preset should have a loss-free derotator")
	}
	if GetPreset("nonexistent") != nil {
		t.Error("expected nil for unknown preset")
	}
	if len(ListPresets()) != 2 {
		t.Errorf("expected 2 presets, got %d", len(ListPresets()))
	}
}
