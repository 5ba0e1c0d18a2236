package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Level summarizes a provider's circuit state for status reporting.
type Level int

// Provider levels.
const (
	LevelOK       Level = iota // circuit closed
	LevelDegraded              // circuit half-open, probing
	LevelDown                  // circuit open, calls short-circuited
)

// Health is a point-in-time view of one provider. LastSuccess and
// LastFailure are zero until the first call of that outcome.
type Health struct {
	Name        string
	State       gobreaker.State
	Counts      gobreaker.Counts
	LastSuccess time.Time
	LastFailure time.Time
	LastError   string
}

// Level maps the circuit state onto a status level.
func (h Health) Level() Level {
	switch h.State {
	case gobreaker.StateOpen:
		return LevelDown
	case gobreaker.StateHalfOpen:
		return LevelDegraded
	default:
		return LevelOK
	}
}

// Registry tracks clients by name together with the outcome of their most
// recent calls. The API readiness probe reads from it.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	client      *Client
	lastSuccess time.Time
	lastFailure time.Time
	lastError   string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry), now: time.Now}
}

// Register adds or replaces the client known under name.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	r.entries[name] = &entry{client: client}
	r.mu.Unlock()
}

// Observe records the outcome of a call made by the named client. A nil err
// is a success. Unknown names are ignored.
func (r *Registry) Observe(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	if err == nil {
		e.lastSuccess = r.now()
		return
	}
	e.lastFailure = r.now()
	e.lastError = err.Error()
}

// Health returns the named provider's health and whether it is registered.
func (r *Registry) Health(name string) (Health, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return Health{}, false
	}
	return e.health(name), true
}

// Snapshot returns the health of every provider ordered by name.
func (r *Registry) Snapshot() []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, e.health(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the registered provider names in order.
func (r *Registry) Names() []string {
	snap := r.Snapshot()
	names := make([]string, len(snap))
	for i, h := range snap {
		names[i] = h.Name
	}
	return names
}

func (e *entry) health(name string) Health {
	return Health{
		Name:        name,
		State:       e.client.CircuitBreakerState(),
		Counts:      e.client.CircuitBreakerCounts(),
		LastSuccess: e.lastSuccess,
		LastFailure: e.lastFailure,
		LastError:   e.lastError,
	}
}
