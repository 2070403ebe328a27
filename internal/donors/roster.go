package donors

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"lifedrop.org/internal/blood"
)

var _ Directory = (*Roster)(nil)

// Entry is a registered donor.
type Entry struct {
	ID           string     `yaml:"id"`
	Name         string     `yaml:"name"`
	BloodType    blood.Type `yaml:"bloodType"`
	Location     string     `yaml:"location"`
	Phone        string     `yaml:"phone"`
	LastDonation *time.Time `yaml:"lastDonation,omitempty"`
	// Distances holds known distances in km from named places.
	Distances map[string]float64 `yaml:"distances,omitempty"`
}

// DistanceFunc reports how far e is from the place named query.
type DistanceFunc func(query string, e Entry) (km float64, ok bool)

// KnownDistance is the default DistanceFunc: zero for the donor's own
// location, the roster's recorded distance otherwise, unknown if neither.
func KnownDistance(query string, e Entry) (float64, bool) {
	q := strings.TrimSpace(query)
	if q == "" {
		return 0, false
	}
	if strings.EqualFold(q, strings.TrimSpace(e.Location)) {
		return 0, true
	}
	for place, km := range e.Distances {
		if strings.EqualFold(q, strings.TrimSpace(place)) {
			return km, true
		}
	}
	return 0, false
}

// Roster is an in-memory Directory.
type Roster struct {
	mu       sync.RWMutex
	entries  []Entry
	now      func() time.Time
	distance DistanceFunc
}

// Option configures Roster.
type Option func(*Roster)

// WithClock sets the clock used for the eligibility check.
func WithClock(now func() time.Time) Option {
	return func(r *Roster) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDistance replaces KnownDistance.
func WithDistance(fn DistanceFunc) Option {
	return func(r *Roster) {
		if fn != nil {
			r.distance = fn
		}
	}
}

// NewRoster validates entries and builds a Roster.
func NewRoster(entries []Entry, opts ...Option) (*Roster, error) {
	r := &Roster{now: time.Now, distance: KnownDistance}
	for _, opt := range opts {
		opt(r)
	}
	seen := make(map[string]bool, len(entries))
	for i, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("donor %d: id is required", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("donor %s: duplicate id", e.ID)
		}
		seen[e.ID] = true
		bt, err := blood.ParseType(string(e.BloodType))
		if err != nil {
			return nil, fmt.Errorf("donor %s: %w", e.ID, err)
		}
		e.BloodType = bt
		r.entries = append(r.entries, e)
	}
	return r, nil
}

type rosterFile struct {
	Donors []Entry `yaml:"donors"`
}

// LoadRoster decodes a YAML document with a top-level donors list.
func LoadRoster(rd io.Reader, opts ...Option) (*Roster, error) {
	var f rosterFile
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return NewRoster(f.Donors, opts...)
}

// LoadRosterFile is LoadRoster on a file path.
func LoadRosterFile(path string, opts ...Option) (*Roster, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return LoadRoster(fh, opts...)
}

// Len reports the number of registered donors.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Eligible reports whether e may donate at now.
func Eligible(e Entry, now time.Time) bool {
	if e.LastDonation == nil {
		return true
	}
	return !now.Before(e.LastDonation.Add(EligibilityInterval))
}

type ranked struct {
	donor Donor
	km    float64
	known bool
	exact bool
}

// Search returns compatible, eligible donors, nearest first. Donors at an
// unknown distance follow the known ones; exact type matches win ties.
func (r *Roster) Search(ctx context.Context, c Criteria) ([]Donor, error) {
	c, err := c.Normalize()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	accept := make(map[blood.Type]bool)
	for _, t := range c.Acceptable() {
		accept[t] = true
	}
	now := r.now()

	r.mu.RLock()
	var hits []ranked
	for _, e := range r.entries {
		if !accept[e.BloodType] || !Eligible(e, now) {
			continue
		}
		km, known := r.distance(c.Location, e)
		if c.RadiusKm > 0 && (!known || km > c.RadiusKm) {
			continue
		}
		d := Donor{
			ID:        e.ID,
			Name:      e.Name,
			BloodType: e.BloodType,
			Location:  e.Location,
			Phone:     e.Phone,
		}
		if e.LastDonation != nil {
			ld := *e.LastDonation
			d.LastDonation = &ld
		}
		if known {
			v := km
			d.DistanceKm = &v
		}
		hits = append(hits, ranked{donor: d, km: km, known: known, exact: e.BloodType == c.BloodType})
	}
	r.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.known != b.known {
			return a.known
		}
		if a.known && a.km != b.km {
			return a.km < b.km
		}
		if a.exact != b.exact {
			return a.exact
		}
		return a.donor.ID < b.donor.ID
	})

	if len(hits) > c.Limit {
		hits = hits[:c.Limit]
	}
	out := make([]Donor, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.donor)
	}
	return out, nil
}
