package trail

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Namespace is the UUIDv5 namespace for name-derived trail identifiers.
var Namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://trailhub.app/trails"))

// IsCanonicalID reports whether s is a hyphenated 36-character RFC 4122 UUID
// (versions 1 through 8). The nil UUID and the braced, URN and unhyphenated
// forms are not canonical.
func IsCanonicalID(s string) bool {
	_, ok := CanonicalID(s)
	return ok
}

// CanonicalID returns the lower-cased form of s if it is a canonical identifier.
func CanonicalID(s string) (string, bool) {
	if len(s) != 36 {
		return "", false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", false
	}
	if id.Variant() != uuid.RFC4122 {
		return "", false
	}
	if v := id.Version(); v < 1 || v > 8 {
		return "", false
	}
	return id.String(), true
}

// NameID returns the stable identifier derived from a trail name.
func NameID(name string) string {
	return uuid.NewSHA1(Namespace, []byte(normalizeName(name))).String()
}

// IdentityResolver maps external trail references to canonical identifiers.
// One resolver covers one result set: every identifier it returns is unique
// within that set, and resolving the same references in the same order yields
// the same identifiers.
type IdentityResolver struct {
	mu   sync.Mutex
	seen map[string]int
	used map[string]struct{}
}

// NewIdentityResolver creates a resolver for a single result set.
func NewIdentityResolver() *IdentityResolver {
	return &IdentityResolver{
		seen: make(map[string]int),
		used: make(map[string]struct{}),
	}
}

// Resolve returns the canonical identifier for ref. Canonical identifiers pass
// through unchanged apart from case; anything else is derived from the name.
// A reference whose identifier is already taken gets an occurrence-qualified
// one instead.
func (r *IdentityResolver) Resolve(ref string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := CanonicalID(ref); ok {
		if _, taken := r.used[id]; !taken {
			r.seen[id] = 1
			r.used[id] = struct{}{}
			return id
		}
		return r.derive(id)
	}
	return r.derive(normalizeName(ref))
}

// derive walks key, key#2, key#3, ... from the last occurrence of key until
// it finds an unused identifier. Callers hold r.mu.
func (r *IdentityResolver) derive(key string) string {
	for n := r.seen[key] + 1; ; n++ {
		name := key
		if n > 1 {
			name = fmt.Sprintf("%s#%d", key, n)
		}
		id := uuid.NewSHA1(Namespace, []byte(name)).String()
		if _, taken := r.used[id]; taken {
			continue
		}
		r.seen[key] = n
		r.used[id] = struct{}{}
		return id
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
