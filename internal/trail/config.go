package trail

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the thresholds and constants used by the normalizer.
// A Config is treated as immutable once handed to NewNormalizer.
type Config struct {
	// Weather rank at or above which a trail is open.
	OpenWeatherRank float64 `yaml:"open_weather_rank"`
	// Weather rank at or above which a non-open trail is a warning instead of closed.
	WarningWeatherRank float64 `yaml:"warning_weather_rank"`

	ExcellentWeatherRank float64 `yaml:"excellent_weather_rank"`
	GoodWeatherRank      float64 `yaml:"good_weather_rank"`
	FairWeatherRank      float64 `yaml:"fair_weather_rank"`

	EasyPopularity     float64 `yaml:"easy_popularity"`
	ModeratePopularity float64 `yaml:"moderate_popularity"`

	MaxRating      float64 `yaml:"max_rating"`
	WalkingPaceKmh float64 `yaml:"walking_pace_kmh"`

	ImageBaseURL  string   `yaml:"image_base_url"`
	ImagePalette  []string `yaml:"image_palette"`
	AlertTemplate string   `yaml:"alert_template"`

	// Defaults for object-form entries that omit a field.
	DefaultWeatherRank float64 `yaml:"default_weather_rank"`
	DefaultPopularity  float64 `yaml:"default_popularity"`
	DefaultDistance    float64 `yaml:"default_distance"`
}

// DefaultConfig returns the production normalizer configuration.
func DefaultConfig() Config {
	return Config{
		OpenWeatherRank:      10,
		WarningWeatherRank:   8,
		ExcellentWeatherRank: 8,
		GoodWeatherRank:      6,
		FairWeatherRank:      4,
		EasyPopularity:       0.9,
		ModeratePopularity:   0.85,
		MaxRating:            5,
		WalkingPaceKmh:       4,
		ImageBaseURL:         "https://images.unsplash.com/photo-",
		ImagePalette: []string{
			"1464822759023-fed622ff2c3b",
			"1483728642387-6c3bdd6c93e5",
			"1501555088652-021faa106b9b",
			"1552083375-142875a901a1",
			"1586500036033-e5823505b726",
			"1493246507139-91e8fad9978e",
			"1540390769625-2fc3f8b1d50c",
			"1472213984618-c79aaec7fef0",
			"1444090542259-0af8fa96557e",
			"1505765050516-f72dcac9c60e",
			"1439853949127-fa647821eba0",
			"1545389336-cf090694435e",
			"1518021964703-4b2030f03085",
			"1504280390367-361c6d9f38f4",
			"1526772662000-3f88f10405ff",
		},
		AlertTemplate:      "Weather conditions: %s",
		DefaultWeatherRank: 12.6,
		DefaultPopularity:  0.8,
		DefaultDistance:    0,
	}
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig.
// Keys missing from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read trail config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse trail config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the normalizer cannot work with.
func (c Config) Validate() error {
	var errs []error
	if c.WalkingPaceKmh <= 0 {
		errs = append(errs, errors.New("walking_pace_kmh must be positive"))
	}
	if len(c.ImagePalette) == 0 {
		errs = append(errs, errors.New("image_palette must not be empty"))
	}
	if c.WarningWeatherRank > c.OpenWeatherRank {
		errs = append(errs, errors.New("warning_weather_rank must not exceed open_weather_rank"))
	}
	if c.ModeratePopularity > c.EasyPopularity {
		errs = append(errs, errors.New("moderate_popularity must not exceed easy_popularity"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid trail config: %w", err)
	}
	return nil
}
