// Package worker warms the recommendation cache in the background.
package worker

import (
	"sort"
	"strings"
	"time"
)

// RefreshTarget is one location whose recommendations are kept warm.
type RefreshTarget struct {
	// Location is the search string sent to the recommendation service.
	Location string

	// Limit is the number of trails requested. Zero uses the service default.
	Limit int

	// Priority determines refresh order (lower = higher priority).
	Priority int
}

// RefreshConfig holds configuration for the cache refresh job.
type RefreshConfig struct {
	// Targets are the locations to refresh.
	// If empty, uses DefaultRefreshTargets.
	Targets []RefreshTarget

	// Concurrency is the number of concurrent refresh operations.
	// Default: 3
	Concurrency int

	// Timeout is the timeout for each refresh operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// DefaultRefreshConfig returns the default refresh configuration.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{
		Targets:     DefaultRefreshTargets(),
		Concurrency: 3,
		Timeout:     30 * time.Second,
	}
}

// DefaultRefreshTargets returns popular trailhead regions.
func DefaultRefreshTargets() []RefreshTarget {
	return []RefreshTarget{
		{Location: "Boulder, CO", Priority: 1},
		{Location: "Yosemite Valley, CA", Priority: 1},
		{Location: "Moab, UT", Priority: 1},
		{Location: "Asheville, NC", Priority: 2},
		{Location: "Bend, OR", Priority: 2},
		{Location: "Sedona, AZ", Priority: 2},
		{Location: "Estes Park, CO", Priority: 3},
		{Location: "North Conway, NH", Priority: 3},
	}
}

// ParseTargets builds targets from a comma-or-semicolon separated list.
// Semicolons separate entries when present so locations may contain commas,
// e.g. "Boulder, CO; Moab, UT". Entries keep their list order as priority.
func ParseTargets(list string) []RefreshTarget {
	sep := ","
	if strings.Contains(list, ";") {
		sep = ";"
	}

	var targets []RefreshTarget
	seen := make(map[string]bool)
	for _, part := range strings.Split(list, sep) {
		location := strings.Join(strings.Fields(part), " ")
		key := strings.ToLower(location)
		if location == "" || seen[key] {
			continue
		}
		seen[key] = true
		targets = append(targets, RefreshTarget{Location: location, Priority: len(targets) + 1})
	}
	return targets
}

// Ordered returns the targets sorted by priority. Ties keep their order.
func (c RefreshConfig) Ordered() []RefreshTarget {
	targets := append([]RefreshTarget(nil), c.Targets...)
	sort.SliceStable(targets, func(i, j int) bool {
		return targets[i].Priority < targets[j].Priority
	})
	return targets
}

// TotalTargets returns the number of locations to refresh.
func (c RefreshConfig) TotalTargets() int {
	return len(c.Targets)
}
