package incidents

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDPrefix is prepended to every generated incident id.
const IDPrefix = "INC-"

// IDGenerator allocates collision-free incident ids. Each id is a ULID:
// millisecond timestamp plus an entropy component that increments
// monotonically within the same tick, so two incidents created in the same
// millisecond still receive distinct, ordered ids.
type IDGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewIDGenerator creates a new generator seeded from crypto/rand.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Next returns a new unique incident id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		// Monotonic entropy can overflow within a single tick; fall back to
		// a fresh random ULID rather than failing the create.
		id = ulid.Make()
	}
	return IDPrefix + id.String()
}
