package ids

import (
	mathrand "math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// Generator mints identifiers for store-owned records. Callers never supply ids.
type Generator interface {
	New() string
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func() string

func (f GeneratorFunc) New() string { return f() }

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier suitable for storage keys.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// ULID generates monotonic ULIDs. Two ids minted in the same millisecond still differ.
var ULID Generator = GeneratorFunc(New)

// UUID generates time-ordered v7 UUIDs, falling back to v4 if the clock source fails.
var UUID Generator = GeneratorFunc(func() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
})

// Sequence yields prefix-1, prefix-2, ... and is safe for concurrent use.
type Sequence struct {
	Prefix string
	n      atomic.Uint64
}

// NewSequence returns a deterministic generator for tests.
func NewSequence(prefix string) *Sequence {
	return &Sequence{Prefix: prefix}
}

func (s *Sequence) New() string {
	return s.Prefix + "-" + strconv.FormatUint(s.n.Add(1), 10)
}
