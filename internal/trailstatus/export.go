package trailstatus

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jszwec/csvutil"

	"github.com/trailhub/trailhub/internal/trail"
)

// Log entry kinds.
const (
	KindSaved     = "saved"
	KindCompleted = "completed"
)

// LogEntry is one row of a user's exported trail log.
type LogEntry struct {
	Kind             string    `csv:"kind"`
	TrailID          string    `csv:"trail_id"`
	TrailName        string    `csv:"trail_name"`
	TrailImage       string    `csv:"trail_image"`
	TrailDifficulty  string    `csv:"trail_difficulty"`
	TrailRating      float64   `csv:"trail_rating"`
	TrailDistance    float64   `csv:"trail_distance"`
	TrailTime        string    `csv:"trail_time"`
	Rating           int       `csv:"rating,omitempty"`
	ReviewText       string    `csv:"review_text,omitempty"`
	DifficultyRating string    `csv:"difficulty_rating,omitempty"`
	DurationMinutes  int       `csv:"duration_minutes,omitempty"`
	RecordedAt       time.Time `csv:"recorded_at"`
}

// ImportSummary counts the outcome of an import.
type ImportSummary struct {
	Saved     int
	Completed int
	Skipped   int
}

// ExportCSV writes the user's saved trails followed by their completions as CSV.
func (s *Service) ExportCSV(ctx context.Context, userID string, w io.Writer) (int, error) {
	saved, err := s.ListSaved(ctx, userID)
	if err != nil {
		return 0, err
	}
	completed, err := s.ListCompleted(ctx, userID)
	if err != nil {
		return 0, err
	}

	entries := make([]LogEntry, 0, len(saved)+len(completed))
	for _, st := range saved {
		entries = append(entries, LogEntry{
			Kind:            KindSaved,
			TrailID:         st.TrailID,
			TrailName:       st.Trail.Name,
			TrailImage:      st.Trail.Image,
			TrailDifficulty: string(st.Trail.Difficulty),
			TrailRating:     st.Trail.Rating,
			TrailDistance:   st.Trail.Distance,
			TrailTime:       st.Trail.Time,
			RecordedAt:      st.CreatedAt,
		})
	}
	for _, c := range completed {
		entries = append(entries, LogEntry{
			Kind:             KindCompleted,
			TrailID:          c.TrailID,
			TrailName:        c.Trail.Name,
			TrailImage:       c.Trail.Image,
			TrailDifficulty:  string(c.Trail.Difficulty),
			TrailRating:      c.Trail.Rating,
			TrailDistance:    c.Trail.Distance,
			TrailTime:        c.Trail.Time,
			Rating:           c.Rating,
			ReviewText:       c.ReviewText,
			DifficultyRating: string(c.DifficultyRating),
			DurationMinutes:  c.DurationMinutes,
			RecordedAt:       c.CompletedAt,
		})
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(entries) == 0 {
		if err := enc.EncodeHeader(LogEntry{}); err != nil {
			return 0, fmt.Errorf("encode csv header: %w", err)
		}
	} else if err := enc.Encode(entries); err != nil {
		return 0, fmt.Errorf("encode trail log: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("write trail log: %w", err)
	}
	return len(entries), nil
}

// ImportCSV replays an exported trail log for the user, keeping each entry's
// recorded_at. Entries that already exist are skipped; any other failure
// stops the import.
func (s *Service) ImportCSV(ctx context.Context, userID string, r io.Reader) (ImportSummary, error) {
	var summary ImportSummary

	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return summary, nil
		}
		return summary, fmt.Errorf("read csv header: %w", err)
	}

	for line := 2; ; line++ {
		var e LogEntry
		if err := dec.Decode(&e); err != nil {
			if errors.Is(err, io.EOF) {
				return summary, nil
			}
			return summary, fmt.Errorf("line %d: %w", line, err)
		}

		snapshot := trail.Snapshot{
			Name:       e.TrailName,
			Image:      e.TrailImage,
			Difficulty: trail.Difficulty(e.TrailDifficulty),
			Rating:     e.TrailRating,
			Distance:   e.TrailDistance,
			Time:       e.TrailTime,
		}

		switch e.Kind {
		case KindSaved:
			res, err := s.save(ctx, e.TrailID, userID, snapshot, e.RecordedAt)
			if err != nil {
				return summary, fmt.Errorf("line %d: %w", line, err)
			}
			if res == SaveAlreadySaved {
				summary.Skipped++
			} else {
				summary.Saved++
			}
		case KindCompleted:
			err := s.complete(ctx, e.TrailID, userID, CompletionInput{
				Rating:           e.Rating,
				ReviewText:       e.ReviewText,
				DifficultyRating: trail.Difficulty(e.DifficultyRating),
				DurationMinutes:  e.DurationMinutes,
			}, snapshot, e.RecordedAt)
			switch {
			case errors.Is(err, ErrAlreadyCompleted):
				summary.Skipped++
			case err != nil:
				return summary, fmt.Errorf("line %d: %w", line, err)
			default:
				summary.Completed++
			}
		default:
			return summary, fmt.Errorf("line %d: unknown entry kind %q", line, e.Kind)
		}
	}
}
