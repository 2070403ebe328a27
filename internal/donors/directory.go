// Package donors is the donor directory: given what blood is needed and
// where, it returns compatible, eligible donors nearest first.
package donors

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"lifedrop.org/internal/blood"
)

// DefaultLimit caps a search when Criteria.Limit is not set.
const DefaultLimit = 20

// EligibilityInterval is the minimum gap between two whole-blood donations.
const EligibilityInterval = 56 * 24 * time.Hour

// RadiusOptions are the radii the search screen offers, in km. Zero means
// no radius.
var RadiusOptions = []float64{5, 10, 20, 50}

// ValidRadius reports whether km is zero or one of RadiusOptions.
func ValidRadius(km float64) bool {
	return km == 0 || slices.Contains(RadiusOptions, km)
}

var (
	ErrInvalidCriteria = errors.New("donors: invalid search criteria")
)

// UrgencyAll disables urgency narrowing.
const UrgencyAll = "All"

// Criteria describes one search.
type Criteria struct {
	BloodType blood.Type `json:"bloodType"`
	Location  string     `json:"location"`
	// RadiusKm > 0 drops donors farther away or at an unknown distance. It
	// only applies when Location is set.
	RadiusKm float64 `json:"radiusKm"`
	// Urgency is All, Normal, Urgent or Critical. Normal only matches the
	// exact type; the others accept every compatible type.
	Urgency string `json:"urgency"`
	Limit   int    `json:"limit"`
}

// Normalize validates c and fills defaults.
func (c Criteria) Normalize() (Criteria, error) {
	bt, err := blood.ParseType(string(c.BloodType))
	if err != nil {
		return Criteria{}, errors.Join(ErrInvalidCriteria, err)
	}
	c.BloodType = bt
	c.Location = strings.TrimSpace(c.Location)
	if !ValidRadius(c.RadiusKm) {
		return Criteria{}, fmt.Errorf("%w: radius %v km is not one of %v", ErrInvalidCriteria, c.RadiusKm, RadiusOptions)
	}
	if c.Location == "" {
		c.RadiusKm = 0
	}
	switch u := strings.TrimSpace(c.Urgency); {
	case u == "" || strings.EqualFold(u, UrgencyAll):
		c.Urgency = UrgencyAll
	default:
		parsed, err := blood.ParseUrgency(u)
		if err != nil {
			return Criteria{}, errors.Join(ErrInvalidCriteria, err)
		}
		c.Urgency = string(parsed)
	}
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	return c, nil
}

// Acceptable returns the donor types a search with c accepts.
func (c Criteria) Acceptable() []blood.Type {
	if c.Urgency == string(blood.Normal) {
		return []blood.Type{c.BloodType}
	}
	return blood.DonorsFor(c.BloodType)
}

// Donor is one search result.
type Donor struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	BloodType    blood.Type `json:"bloodType"`
	Location     string     `json:"location"`
	DistanceKm   *float64   `json:"distanceKm,omitempty"`
	LastDonation *time.Time `json:"lastDonation,omitempty"`
	Phone        string     `json:"phone"`
}

// Directory looks donors up.
type Directory interface {
	Search(ctx context.Context, c Criteria) ([]Donor, error)
}

// DirectoryFunc adapts a function to Directory.
type DirectoryFunc func(ctx context.Context, c Criteria) ([]Donor, error)

func (f DirectoryFunc) Search(ctx context.Context, c Criteria) ([]Donor, error) { return f(ctx, c) }
