package trail

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// DecodeIssue describes a response entry that was dropped during decoding.
// Index is -1 when the whole response was unusable.
type DecodeIssue struct {
	Index  int
	Reason string
}

var (
	errNotNumber   = errors.New("not a number")
	errNotFinite   = errors.New("not finite")
	errMissingName = errors.New("missing name")
)

// DecodePlaces parses a recommendation-service response. It accepts a bare
// array or an object with a "places" array; each element is either a
// [name, weatherRank, popularity, distanceKm] tuple or an object with
// name, weather_rank, popularity and distance fields. Malformed elements are
// skipped and reported; they never fail the batch.
func (n *Normalizer) DecodePlaces(raw []byte) ([]Place, []DecodeIssue) {
	items, issue := splitResponse(raw)
	if issue != nil {
		return nil, []DecodeIssue{*issue}
	}

	places := make([]Place, 0, len(items))
	var issues []DecodeIssue
	for i, item := range items {
		p, err := n.decodePlace(item)
		if err != nil {
			issues = append(issues, DecodeIssue{Index: i, Reason: err.Error()})
			continue
		}
		places = append(places, p)
	}
	return places, issues
}

func splitResponse(raw []byte) ([]json.RawMessage, *DecodeIssue) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, &DecodeIssue{Index: -1, Reason: fmt.Sprintf("invalid array: %v", err)}
		}
		return items, nil
	case '{':
		var wrapped struct {
			Places json.RawMessage `json:"places"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, &DecodeIssue{Index: -1, Reason: fmt.Sprintf("invalid object: %v", err)}
		}
		places := bytes.TrimSpace(wrapped.Places)
		if len(places) == 0 || places[0] != '[' {
			return nil, &DecodeIssue{Index: -1, Reason: "places is not an array"}
		}
		return splitResponse(places)
	default:
		return nil, &DecodeIssue{Index: -1, Reason: "response is not an array"}
	}
}

func (n *Normalizer) decodePlace(raw json.RawMessage) (Place, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Place{}, errors.New("empty entry")
	}

	var (
		p   Place
		err error
	)
	switch raw[0] {
	case '[':
		p, err = decodeTuple(raw)
	case '{':
		p, err = n.decodeObject(raw)
	default:
		return Place{}, errors.New("entry is neither a tuple nor an object")
	}
	if err != nil {
		return Place{}, err
	}

	if p.Distance < 0 {
		return Place{}, errors.New("distance: negative")
	}
	return p, nil
}

func decodeTuple(raw json.RawMessage) (Place, error) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Place{}, fmt.Errorf("invalid tuple: %w", err)
	}
	if len(fields) != 4 {
		return Place{}, fmt.Errorf("tuple has %d elements, want 4", len(fields))
	}

	name, err := decodeName(fields[0])
	if err != nil {
		return Place{}, err
	}

	var nums [3]float64
	for i, label := range []string{"weather rank", "popularity", "distance"} {
		v, err := decodeNumber(fields[i+1])
		if err != nil {
			return Place{}, fmt.Errorf("%s: %w", label, err)
		}
		nums[i] = v
	}

	return Place{Name: name, WeatherRank: nums[0], Popularity: nums[1], Distance: nums[2]}, nil
}

func (n *Normalizer) decodeObject(raw json.RawMessage) (Place, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Place{}, fmt.Errorf("invalid object: %w", err)
	}

	name, err := decodeName(fields["name"])
	if err != nil {
		return Place{}, err
	}

	p := Place{Name: name}
	targets := []struct {
		key string
		dst *float64
		def float64
	}{
		{"weather_rank", &p.WeatherRank, n.cfg.DefaultWeatherRank},
		{"popularity", &p.Popularity, n.cfg.DefaultPopularity},
		{"distance", &p.Distance, n.cfg.DefaultDistance},
	}
	for _, t := range targets {
		v, ok := fields[t.key]
		if !ok || isNull(v) {
			*t.dst = t.def
			continue
		}
		f, err := decodeNumber(v)
		if err != nil {
			return Place{}, fmt.Errorf("%s: %w", t.key, err)
		}
		*t.dst = f
	}
	return p, nil
}

func decodeName(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || isNull(raw) {
		return "", errMissingName
	}
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return "", errors.New("name is not a string")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errMissingName
	}
	return name, nil
}

func decodeNumber(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || isNull(raw) {
		return 0, errNotNumber
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, errNotNumber
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
