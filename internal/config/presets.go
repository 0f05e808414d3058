package config

// Presets are named starting points: the calibrated Keck instrument with the
// UKIRT standards, and an idealized loss-free instrument for sanity checks.
var Presets = map[string]*Config{
	"keck": DefaultConfig(),
	"ideal": {
		Site:      SiteConfig{Name: "Keck Observatory", Latitude: 19.8260},
		Derotator: ElementConfig{},
		M3:        ElementConfig{},
		Targets:   DefaultConfig().Targets,
		HWPAngles: []float64{0, 22.5, 45, 60},
		SNR:       0,
		Seed:      DefaultSeed,
	},
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
