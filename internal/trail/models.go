// Package trail normalizes recommendation-service responses into
// display-ready trail summaries and owns the canonical trail identity.
package trail

// Difficulty is the display difficulty tier of a trail.
type Difficulty string

// Difficulty tiers.
const (
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
)

// Valid reports whether d is a known difficulty tier.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyModerate, DifficultyHard:
		return true
	default:
		return false
	}
}

// Status is the weather-derived trail status.
type Status string

// Trail statuses.
const (
	StatusOpen    Status = "open"
	StatusWarning Status = "warning"
	StatusClosed  Status = "closed"
)

// Summary is a normalized, display-ready trail record.
type Summary struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Image      string     `json:"image"`
	Difficulty Difficulty `json:"difficulty"`
	Rating     float64    `json:"rating"`
	Distance   float64    `json:"distance"`
	Time       string     `json:"time"`
	Status     Status     `json:"status"`
	Alert      *string    `json:"alert"`
}

// Snapshot returns the denormalized display fields stored with saves and completions.
func (s Summary) Snapshot() Snapshot {
	return Snapshot{
		Name:       s.Name,
		Image:      s.Image,
		Difficulty: s.Difficulty,
		Rating:     s.Rating,
		Distance:   s.Distance,
		Time:       s.Time,
	}
}

// Place is one validated entry of a recommendation-service response.
type Place struct {
	Name        string
	WeatherRank float64
	Popularity  float64
	Distance    float64
}

// Snapshot is a copy of a trail's display fields captured when a user saves
// or completes it.
type Snapshot struct {
	Name       string     `json:"name"`
	Image      string     `json:"image"`
	Difficulty Difficulty `json:"difficulty"`
	Rating     float64    `json:"rating"`
	Distance   float64    `json:"distance"`
	Time       string     `json:"time"`
}
