package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nrozek/polsim/internal/calib"
	"github.com/nrozek/polsim/internal/sky"
)

const (
	DefaultSNR  = 50.0
	DefaultSeed = 1
)

// Config describes one observing setup. Angles are degrees here and at the
// CLI; everything below the config layer works in radians.
type Config struct {
	Site      SiteConfig     `yaml:"site"`
	Derotator ElementConfig  `yaml:"derotator"`
	M3        ElementConfig  `yaml:"m3"`
	Targets   []TargetConfig `yaml:"targets"`
	HWPAngles []float64      `yaml:"hwp_angles_deg"`
	SNR       float64        `yaml:"snr"`
	Seed      int64          `yaml:"seed"`
}

type SiteConfig struct {
	Name     string  `yaml:"name"`
	Latitude float64 `yaml:"latitude_deg"`
}

type ElementConfig struct {
	Diattenuation float64 `yaml:"diattenuation"`
	Retardance    float64 `yaml:"retardance_deg"`
}

type TargetConfig struct {
	Name         string    `yaml:"name"`
	RA           []float64 `yaml:"ra"`  // h m s
	Dec          []float64 `yaml:"dec"` // d m s
	Polarization float64   `yaml:"polarization"`
}

func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{Name: "Keck Observatory", Latitude: 19.8260},
		Derotator: ElementConfig{
			Diattenuation: 0.9662,
			Retardance:    186.6,
		},
		M3: ElementConfig{
			Diattenuation: 0.9761,
			Retardance:    186.6,
		},
		Targets: []TargetConfig{
			{Name: "HDE 279652", RA: []float64{4, 14, 50.2}, Dec: []float64{37, 35, 54}, Polarization: 0.0061},
			{Name: "HDE 279658", RA: []float64{4, 13, 47.3}, Dec: []float64{37, 9, 32}, Polarization: 0.0142},
			{Name: "HDE 283637", RA: []float64{4, 22, 53.3}, Dec: []float64{27, 30, 18}, Polarization: 0.0157},
		},
		HWPAngles: []float64{0, 22.5, 45, 60},
		SNR:       DefaultSNR,
		Seed:      DefaultSeed,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// SiteValue converts the site block to radians.
func (c *Config) SiteValue() sky.Site {
	return sky.Site{Name: c.Site.Name, Latitude: sky.Radians(c.Site.Latitude)}
}

// TargetsValue converts the catalog block to radians.
func (c *Config) TargetsValue() []sky.Target {
	out := make([]sky.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		ra, dec := 0.0, 0.0
		if len(t.RA) == 3 {
			ra = sky.RAHours(t.RA[0], t.RA[1], t.RA[2])
		}
		if len(t.Dec) == 3 {
			dec = sky.DecDegrees(t.Dec[0], t.Dec[1], t.Dec[2])
		}
		out = append(out, sky.Target{Name: t.Name, RA: ra, Dec: dec, Polarization: t.Polarization})
	}
	return out
}

// TruthValue converts the element blocks into calibration ground truth.
func (c *Config) TruthValue() calib.Params {
	return calib.Params{
		DerotatorDiattenuation: c.Derotator.Diattenuation,
		DerotatorRetardance:    sky.Radians(c.Derotator.Retardance),
		MirrorDiattenuation:    c.M3.Diattenuation,
		MirrorRetardance:       sky.Radians(c.M3.Retardance),
	}
}

// HWPValues converts the plate sequence to radians.
func (c *Config) HWPValues() []float64 {
	out := make([]float64, len(c.HWPAngles))
	for i, a := range c.HWPAngles {
		out[i] = sky.Radians(a)
	}
	return out
}
