package trail_test

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhub/trailhub/internal/trail"
)

func newNormalizer() *trail.Normalizer {
	return trail.NewNormalizer(trail.DefaultConfig(), zerolog.Nop())
}

func TestNormalizer_DifficultyFor(t *testing.T) {
	n := newNormalizer()
	tests := []struct {
		name       string
		popularity float64
		expected   trail.Difficulty
	}{
		{"max", 1.0, trail.DifficultyEasy},
		{"easy boundary", 0.9, trail.DifficultyEasy},
		{"just below easy", 0.899, trail.DifficultyModerate},
		{"moderate boundary", 0.85, trail.DifficultyModerate},
		{"just below moderate", 0.849, trail.DifficultyHard},
		{"zero", 0, trail.DifficultyHard},
		{"raw scale", 42, trail.DifficultyEasy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.DifficultyFor(tt.popularity))
		})
	}
}

func TestNormalizer_RatingFor(t *testing.T) {
	n := newNormalizer()
	assert.Equal(t, 2.5, n.RatingFor(0.5))
	assert.Equal(t, 5.0, n.RatingFor(1.2))
	assert.Equal(t, 5.0, n.RatingFor(1))
	assert.Equal(t, 0.0, n.RatingFor(0))
	assert.InDelta(t, 4.0, n.RatingFor(0.8), 1e-9)
}

func TestNormalizer_FormatDuration(t *testing.T) {
	n := newNormalizer()
	tests := []struct {
		distance float64
		expected string
	}{
		{0, "0h 0m"},
		{2, "0h 30m"},
		{4, "1h 0m"},
		{10, "2h 30m"},
		{6.26, "1h 34m"},
		// Minutes round independently of hours.
		{3.99, "0h 60m"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, n.FormatDuration(tt.distance))
		})
	}
}

func TestNormalizer_StatusAndAlert(t *testing.T) {
	n := newNormalizer()
	tests := []struct {
		name        string
		weatherRank float64
		status      trail.Status
		alert       string
	}{
		{"well above open", 12.6, trail.StatusOpen, ""},
		{"open boundary", 10, trail.StatusOpen, ""},
		{"just below open", 9.99, trail.StatusWarning, "Weather conditions: Excellent"},
		{"warning boundary", 8, trail.StatusWarning, "Weather conditions: Excellent"},
		{"good", 7, trail.StatusClosed, "Weather conditions: Good"},
		{"fair", 4, trail.StatusClosed, "Weather conditions: Fair"},
		{"poor", 1, trail.StatusClosed, "Weather conditions: Poor"},
		{"negative", -3, trail.StatusClosed, "Weather conditions: Poor"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, n.StatusFor(tt.weatherRank))
			alert := n.AlertFor(tt.weatherRank)
			if tt.alert == "" {
				assert.Nil(t, alert)
				return
			}
			require.NotNil(t, alert)
			assert.Equal(t, tt.alert, *alert)
		})
	}
}

func TestNormalizer_ImageFor(t *testing.T) {
	n := newNormalizer()
	cfg := trail.DefaultConfig()
	size := len(cfg.ImagePalette)

	assert.Equal(t, "https://images.unsplash.com/photo-1464822759023-fed622ff2c3b", n.ImageFor(0))
	assert.Equal(t, n.ImageFor(1), n.ImageFor(1+size))
	assert.Equal(t, cfg.ImageBaseURL+cfg.ImagePalette[size-1], n.ImageFor(-1))
}

func TestRoundDistance(t *testing.T) {
	assert.Equal(t, 6.3, trail.RoundDistance(6.26))
	assert.Equal(t, 1.0, trail.RoundDistance(1.04))
	assert.Equal(t, 0.0, trail.RoundDistance(0))
}

func TestNormalizer_TransformResponse(t *testing.T) {
	n := newNormalizer()
	cfg := trail.DefaultConfig()

	raw := []byte(`[
		["Eagle Peak", 11, 0.95, 6.26],
		["Broken Entry", 9],
		{"name": "River Walk"},
		{"name": "", "weather_rank": 11},
		["Bad Numbers", "11", 0.9, 2]
	]`)

	got := n.TransformResponse(raw)
	require.Len(t, got, 2)

	eagle := got[0]
	assert.Equal(t, "Eagle Peak", eagle.Name)
	assert.Equal(t, trail.NameID("Eagle Peak"), eagle.ID)
	assert.Equal(t, cfg.ImageBaseURL+cfg.ImagePalette[0], eagle.Image)
	assert.Equal(t, trail.DifficultyEasy, eagle.Difficulty)
	assert.InDelta(t, 4.75, eagle.Rating, 1e-9)
	assert.Equal(t, 6.3, eagle.Distance)
	assert.Equal(t, "1h 34m", eagle.Time)
	assert.Equal(t, trail.StatusOpen, eagle.Status)
	assert.Nil(t, eagle.Alert)

	river := got[1]
	assert.Equal(t, "River Walk", river.Name)
	assert.Equal(t, cfg.ImageBaseURL+cfg.ImagePalette[1], river.Image)
	assert.Equal(t, trail.DifficultyHard, river.Difficulty)
	assert.InDelta(t, 4.0, river.Rating, 1e-9)
	assert.Equal(t, 0.0, river.Distance)
	assert.Equal(t, "0h 0m", river.Time)
	assert.Equal(t, trail.StatusOpen, river.Status)
}

func TestNormalizer_TransformResponse_Shapes(t *testing.T) {
	n := newNormalizer()
	tests := []struct {
		name  string
		raw   string
		count int
	}{
		{"null", `null`, 0},
		{"empty body", ``, 0},
		{"empty array", `[]`, 0},
		{"string", `"nope"`, 0},
		{"number", `42`, 0},
		{"object without places", `{"items": []}`, 0},
		{"places not array", `{"places": {"a": 1}}`, 0},
		{"invalid json", `[["a", 1, 2`, 0},
		{"wrapped", `{"places": [["A", 10, 0.9, 1], ["B", 10, 0.9, 1]]}`, 2},
		{"missing distance", `[["A", 10, 0.9, 1], ["B", 10, 0.9]]`, 1},
		{"too many fields", `[["A", 10, 0.9, 1, 5]]`, 0},
		{"null number", `[["A", null, 0.9, 1]]`, 0},
		{"negative distance", `[["A", 10, 0.9, -1]]`, 0},
		{"object null field uses default", `[{"name": "A", "distance": null}]`, 1},
		{"object wrong type", `[{"name": "A", "popularity": "high"}]`, 0},
		{"scalar entry", `[1, ["A", 10, 0.9, 1]]`, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.TransformResponse([]byte(tt.raw))
			require.NotNil(t, got)
			assert.Len(t, got, tt.count)
		})
	}
}

func TestNormalizer_DecodePlaces_ReportsIssues(t *testing.T) {
	n := newNormalizer()

	places, issues := n.DecodePlaces([]byte(`[["A", 10, 0.9, 1], ["B", 10, 0.9], {"weather_rank": 3}]`))
	require.Len(t, places, 1)
	require.Len(t, issues, 2)
	assert.Equal(t, 1, issues[0].Index)
	assert.Equal(t, 2, issues[1].Index)
	assert.Contains(t, issues[1].Reason, "missing name")

	_, issues = n.DecodePlaces([]byte(`true`))
	require.Len(t, issues, 1)
	assert.Equal(t, -1, issues[0].Index)
}

func TestNormalizer_Transform_Deterministic(t *testing.T) {
	n := newNormalizer()
	places := []trail.Place{
		{Name: "Loop", WeatherRank: 9, Popularity: 0.86, Distance: 3},
		{Name: "Ridge", WeatherRank: 5, Popularity: 0.5, Distance: 12.04},
		{Name: "Loop", WeatherRank: 9, Popularity: 0.86, Distance: 3},
	}

	first := n.Transform(places)
	second := n.Transform(places)
	assert.Equal(t, first, second)

	require.Len(t, first, 3)
	assert.NotEqual(t, first[0].ID, first[2].ID, "repeated names must get distinct ids")
	for _, s := range first {
		assert.True(t, trail.IsCanonicalID(s.ID), s.ID)
	}
	assert.Equal(t, trail.StatusWarning, first[0].Status)
	assert.Equal(t, trail.DifficultyModerate, first[0].Difficulty)
	assert.Equal(t, 12.0, first[1].Distance)
}

func TestNormalizer_Transform_UniqueIDs(t *testing.T) {
	n := newNormalizer()
	const raw = "550e8400-e29b-41d4-a716-446655440000"

	tests := []struct {
		name  string
		names []string
	}{
		{"suffixed name after repeat", []string{"Loop", "Loop", "Loop#2"}},
		{"suffixed name before repeat", []string{"Loop#2", "Loop", "Loop"}},
		{"repeated canonical id", []string{raw, raw, strings.ToUpper(raw)}},
		{"canonical id matching derived id", []string{"Ridge", trail.NameID("Ridge"), "Ridge"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			places := make([]trail.Place, len(tt.names))
			for i, name := range tt.names {
				places[i] = trail.Place{Name: name, WeatherRank: 9, Distance: 3}
			}

			got := n.Transform(places)
			require.Len(t, got, len(places))

			ids := make(map[string]struct{}, len(got))
			for _, s := range got {
				assert.True(t, trail.IsCanonicalID(s.ID), s.ID)
				ids[s.ID] = struct{}{}
			}
			assert.Len(t, ids, len(places), "every record gets its own id")
			assert.Equal(t, got, n.Transform(places))
		})
	}

	got := n.Transform([]trail.Place{{Name: raw}, {Name: raw}})
	assert.Equal(t, raw, got[0].ID, "first occurrence keeps its canonical id")
}

func TestNormalizer_ConfigIsCopied(t *testing.T) {
	cfg := trail.DefaultConfig()
	n := trail.NewNormalizer(cfg, zerolog.Nop())

	cfg.ImagePalette[0] = "mutated"
	assert.NotContains(t, n.ImageFor(0), "mutated")

	got := n.Config()
	got.ImagePalette[0] = "mutated"
	assert.NotContains(t, n.ImageFor(0), "mutated")
}

func TestSummary_Snapshot(t *testing.T) {
	s := trail.Summary{
		ID: "x", Name: "Eagle Peak", Image: "img", Difficulty: trail.DifficultyHard,
		Rating: 3.5, Distance: 4.2, Time: "1h 3m", Status: trail.StatusClosed,
	}
	assert.Equal(t, trail.Snapshot{
		Name: "Eagle Peak", Image: "img", Difficulty: trail.DifficultyHard,
		Rating: 3.5, Distance: 4.2, Time: "1h 3m",
	}, s.Snapshot())
}
