// Package featureflags holds the runtime switches operators flip during
// recommendation-service or store incidents.
package featureflags

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Well-known feature flag keys.
const (
	// FlagDisableRecommendations turns off trail recommendations entirely.
	FlagDisableRecommendations = "disable_recommendations"

	// FlagRecommendationsCachedOnly serves recommendations from cache without
	// calling the recommendation service.
	FlagRecommendationsCachedOnly = "recommendations_cached_only"

	// FlagTrailStatusReadOnly rejects save and completion changes.
	FlagTrailStatusReadOnly = "trail_status_read_only"

	// FlagDisableSocialPosting rejects new posts and comments.
	FlagDisableSocialPosting = "disable_social_posting"

	// FlagRecommendationLimit caps the number of trails returned per search.
	FlagRecommendationLimit = "recommendation_limit"
)

// Bounds and default for the recommendation_limit flag.
const (
	MinRecommendationLimit     = 1
	MaxRecommendationLimit     = 100
	DefaultRecommendationLimit = 50
)

// Kind is the value type a flag accepts.
type Kind int

// Flag kinds.
const (
	KindBool Kind = iota
	KindInt
)

// Definition describes a known flag. Values arrive as decoded JSON, so
// integers are float64.
type Definition struct {
	Key         string
	Kind        Kind
	Default     interface{}
	Min, Max    int // KindInt only
	Description string
}

var definitions = map[string]Definition{
	FlagDisableRecommendations: {
		Key: FlagDisableRecommendations, Kind: KindBool, Default: false,
		Description: "Reject recommendation searches.",
	},
	FlagRecommendationsCachedOnly: {
		Key: FlagRecommendationsCachedOnly, Kind: KindBool, Default: false,
		Description: "Answer searches from cache only.",
	},
	FlagTrailStatusReadOnly: {
		Key: FlagTrailStatusReadOnly, Kind: KindBool, Default: false,
		Description: "Reject save and completion changes.",
	},
	FlagDisableSocialPosting: {
		Key: FlagDisableSocialPosting, Kind: KindBool, Default: false,
		Description: "Reject new posts and comments.",
	},
	FlagRecommendationLimit: {
		Key: FlagRecommendationLimit, Kind: KindInt, Default: float64(DefaultRecommendationLimit),
		Min: MinRecommendationLimit, Max: MaxRecommendationLimit,
		Description: "Maximum trails returned per search.",
	},
}

// Lookup returns the definition of a known flag.
func Lookup(key string) (Definition, bool) {
	d, ok := definitions[key]
	return d, ok
}

// Definitions returns every known flag ordered by key.
func Definitions() []Definition {
	out := make([]Definition, 0, len(definitions))
	for _, d := range definitions {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Check describes why value does not fit the flag, or returns "".
func (d Definition) Check(value interface{}) string {
	switch d.Kind {
	case KindBool:
		if _, ok := value.(bool); !ok {
			return "must be a boolean"
		}
	case KindInt:
		n, ok := value.(float64)
		if !ok || n != math.Trunc(n) || n < float64(d.Min) || n > float64(d.Max) {
			return fmt.Sprintf("must be an integer between %d and %d", d.Min, d.Max)
		}
	}
	return ""
}

func (d Definition) flag() *Flag {
	return &Flag{Key: d.Key, Value: d.Default, Description: d.Description}
}

// Flag is a flag key with its effective value. UpdatedAt is zero for
// defaults that were never overridden.
type Flag struct {
	Key         string      `json:"key"`
	Value       interface{} `json:"value"`
	Description string      `json:"description,omitempty"`
	Overridden  bool        `json:"overridden"`
	UpdatedAt   time.Time   `json:"updatedAt,omitzero"`
}

// BoolValue returns the flag value as a boolean, or defaultValue when the
// flag is nil or holds another type.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return defaultValue
	}
}

// IntValue returns the flag value as an integer, or defaultValue when the
// flag is nil or not numeric.
func (f *Flag) IntValue(defaultValue int) int {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultValue
	}
}

// DefaultFlags returns a fresh default flag for every known key.
func DefaultFlags() map[string]*Flag {
	flags := make(map[string]*Flag, len(definitions))
	for key, d := range definitions {
		flags[key] = d.flag()
	}
	return flags
}
