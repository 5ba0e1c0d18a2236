package trail

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
)

// Normalizer converts recommendation-service places into trail summaries.
type Normalizer struct {
	cfg    Config
	logger zerolog.Logger
}

// NewNormalizer creates a normalizer. The configuration is copied.
func NewNormalizer(cfg Config, logger zerolog.Logger) *Normalizer {
	palette := make([]string, len(cfg.ImagePalette))
	copy(palette, cfg.ImagePalette)
	cfg.ImagePalette = palette

	return &Normalizer{
		cfg:    cfg,
		logger: logger.With().Str("component", "trail_normalizer").Logger(),
	}
}

// Config returns the normalizer configuration.
func (n *Normalizer) Config() Config {
	cfg := n.cfg
	cfg.ImagePalette = append([]string(nil), n.cfg.ImagePalette...)
	return cfg
}

// TransformResponse decodes a raw response body and normalizes it.
// Unusable responses yield an empty, non-nil slice; dropped entries are logged.
func (n *Normalizer) TransformResponse(raw []byte) []Summary {
	places, issues := n.DecodePlaces(raw)
	for _, issue := range issues {
		n.logger.Warn().
			Int("index", issue.Index).
			Str("reason", issue.Reason).
			Msg("dropping malformed recommendation entry")
	}
	return n.Transform(places)
}

// Transform normalizes places in order, one summary per place. Identifiers
// are resolved once for the whole set.
func (n *Normalizer) Transform(places []Place) []Summary {
	resolver := NewIdentityResolver()
	out := make([]Summary, 0, len(places))
	for i, p := range places {
		out = append(out, Summary{
			ID:         resolver.Resolve(p.Name),
			Name:       p.Name,
			Image:      n.ImageFor(i),
			Difficulty: n.DifficultyFor(p.Popularity),
			Rating:     n.RatingFor(p.Popularity),
			Distance:   RoundDistance(p.Distance),
			Time:       n.FormatDuration(p.Distance),
			Status:     n.StatusFor(p.WeatherRank),
			Alert:      n.AlertFor(p.WeatherRank),
		})
	}
	return out
}

// DifficultyFor maps a popularity rank to a difficulty tier. Higher
// popularity maps to an easier tier.
func (n *Normalizer) DifficultyFor(popularity float64) Difficulty {
	switch {
	case popularity >= n.cfg.EasyPopularity:
		return DifficultyEasy
	case popularity >= n.cfg.ModeratePopularity:
		return DifficultyModerate
	default:
		return DifficultyHard
	}
}

// RatingFor scales a popularity rank to a star rating capped at MaxRating.
func (n *Normalizer) RatingFor(popularity float64) float64 {
	return math.Min(n.cfg.MaxRating, popularity*n.cfg.MaxRating)
}

// FormatDuration estimates walking time for a distance in kilometres.
// Minutes are rounded independently of hours, so a remainder just under an
// hour renders as "Nh 60m".
func (n *Normalizer) FormatDuration(distanceKm float64) string {
	total := distanceKm / n.cfg.WalkingPaceKmh
	hours := math.Floor(total)
	minutes := math.Round((total - hours) * 60)
	return fmt.Sprintf("%dh %dm", int(hours), int(minutes))
}

// StatusFor maps a weather rank to a trail status.
func (n *Normalizer) StatusFor(weatherRank float64) Status {
	switch {
	case weatherRank >= n.cfg.OpenWeatherRank:
		return StatusOpen
	case weatherRank >= n.cfg.WarningWeatherRank:
		return StatusWarning
	default:
		return StatusClosed
	}
}

// WeatherLabel returns the coarse weather quality label for a weather rank.
func (n *Normalizer) WeatherLabel(weatherRank float64) string {
	switch {
	case weatherRank >= n.cfg.ExcellentWeatherRank:
		return "Excellent"
	case weatherRank >= n.cfg.GoodWeatherRank:
		return "Good"
	case weatherRank >= n.cfg.FairWeatherRank:
		return "Fair"
	default:
		return "Poor"
	}
}

// AlertFor returns the alert text for non-open trails, nil otherwise.
func (n *Normalizer) AlertFor(weatherRank float64) *string {
	if n.StatusFor(weatherRank) == StatusOpen {
		return nil
	}
	alert := fmt.Sprintf(n.cfg.AlertTemplate, n.WeatherLabel(weatherRank))
	return &alert
}

// ImageFor returns the stock image for the given result position.
func (n *Normalizer) ImageFor(index int) string {
	size := len(n.cfg.ImagePalette)
	if size == 0 {
		return ""
	}
	i := index % size
	if i < 0 {
		i += size
	}
	return n.cfg.ImageBaseURL + n.cfg.ImagePalette[i]
}

// RoundDistance rounds a distance to one decimal place.
func RoundDistance(d float64) float64 {
	return math.Round(d*10) / 10
}
