package models

// TrailSnapshot carries the display fields of a trail at the moment it was
// saved or completed.
type TrailSnapshot struct {
	Name       string  `json:"name"`
	Image      string  `json:"image"`
	Difficulty string  `json:"difficulty"`
	Rating     float64 `json:"rating"`
	Distance   float64 `json:"distance"`
	Time       string  `json:"time"`
}

// TrailSummary is a normalized trail as returned by search.
type TrailSummary struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Image      string  `json:"image"`
	Difficulty string  `json:"difficulty"`
	Rating     float64 `json:"rating"`
	Distance   float64 `json:"distance"`
	Time       string  `json:"time"`
	Status     string  `json:"status"`
	Alert      *string `json:"alert"`
}

// TrailRecommendations is the response of the recommendations endpoint.
type TrailRecommendations struct {
	Items     []TrailSummary `json:"items"`
	Stale     bool           `json:"stale"`
	FetchedAt Timestamp      `json:"fetchedAt"`
}

// TrailList wraps a list of trails.
type TrailList struct {
	Items []TrailSummary `json:"items"`
}

// TrailStatus reports whether the user saved and/or completed a trail.
type TrailStatus struct {
	TrailID     string `json:"trailId"`
	IsSaved     bool   `json:"isSaved"`
	IsCompleted bool   `json:"isCompleted"`
}

// SaveTrailResult is returned from a save request.
type SaveTrailResult struct {
	TrailID      string `json:"trailId"`
	AlreadySaved bool   `json:"alreadySaved"`
}

// SavedTrail is a saved trail with its snapshot.
type SavedTrail struct {
	ID        string        `json:"id"`
	TrailID   string        `json:"trailId"`
	Trail     TrailSnapshot `json:"trail"`
	CreatedAt Timestamp     `json:"createdAt"`
}

// SavedTrailList wraps saved trails.
type SavedTrailList struct {
	Items []SavedTrail `json:"items"`
}

// CompleteTrailRequest is the request body for completing a trail.
type CompleteTrailRequest struct {
	Rating           int           `json:"rating"`
	ReviewText       string        `json:"reviewText"`
	DifficultyRating string        `json:"difficultyRating"`
	DurationMinutes  int           `json:"durationMinutes"`
	Trail            TrailSnapshot `json:"trail"`
}

// CompletedTrail is a completion record with its snapshot.
type CompletedTrail struct {
	ID               string        `json:"id"`
	TrailID          string        `json:"trailId"`
	Rating           int           `json:"rating"`
	ReviewText       string        `json:"reviewText"`
	DifficultyRating string        `json:"difficultyRating"`
	DurationMinutes  int           `json:"durationMinutes"`
	Trail            TrailSnapshot `json:"trail"`
	CompletedAt      Timestamp     `json:"completedAt"`
}

// CompletedTrailList wraps completion records.
type CompletedTrailList struct {
	Items []CompletedTrail `json:"items"`
}
