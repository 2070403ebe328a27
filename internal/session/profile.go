package session

import (
	"errors"
	"strings"
	"time"

	"lifedrop.org/internal/blood"
)

// ErrInvalidProfile rejects a profile without an id or with an unknown blood type.
var ErrInvalidProfile = errors.New("session: invalid profile")

// UserProfile is the donor identity kept for the logged-in user. Its JSON form
// is the record persisted under gateway.UserDataKey.
type UserProfile struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Phone             string     `json:"phone"`
	BloodType         blood.Type `json:"bloodType"`
	Location          string     `json:"location"`
	DateOfBirth       time.Time  `json:"dateOfBirth"`
	Weight            string     `json:"weight,omitempty"`
	MedicalConditions string     `json:"medicalConditions"`
	DonationCount     int        `json:"donationCount"`
	LastDonation      *time.Time `json:"lastDonation,omitempty"`
}

// Validate checks the fields a restored or submitted record cannot do without.
func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return ErrInvalidProfile
	}
	if !p.BloodType.Valid() {
		return ErrInvalidProfile
	}
	if p.DonationCount < 0 {
		return ErrInvalidProfile
	}
	return nil
}

// Clone returns a deep copy.
func (p UserProfile) Clone() UserProfile {
	if p.LastDonation != nil {
		ld := *p.LastDonation
		p.LastDonation = &ld
	}
	return p
}

// LivesSaved is the profile screen's estimate: three recipients per donation.
func (p UserProfile) LivesSaved() int { return p.DonationCount * 3 }

// ProfilePatch is a partial profile. Nil fields are left untouched by Merge.
// The id is not patchable.
type ProfilePatch struct {
	Name              *string     `json:"name,omitempty"`
	Email             *string     `json:"email,omitempty"`
	Phone             *string     `json:"phone,omitempty"`
	BloodType         *blood.Type `json:"bloodType,omitempty"`
	Location          *string     `json:"location,omitempty"`
	DateOfBirth       *time.Time  `json:"dateOfBirth,omitempty"`
	Weight            *string     `json:"weight,omitempty"`
	MedicalConditions *string     `json:"medicalConditions,omitempty"`
	DonationCount     *int        `json:"donationCount,omitempty"`
	LastDonation      *time.Time  `json:"lastDonation,omitempty"`
}

// Merge overlays the non-nil fields of patch onto p.
func (p UserProfile) Merge(patch ProfilePatch) UserProfile {
	out := p.Clone()
	if patch.Name != nil {
		out.Name = *patch.Name
	}
	if patch.Email != nil {
		out.Email = *patch.Email
	}
	if patch.Phone != nil {
		out.Phone = *patch.Phone
	}
	if patch.BloodType != nil {
		out.BloodType = *patch.BloodType
	}
	if patch.Location != nil {
		out.Location = *patch.Location
	}
	if patch.DateOfBirth != nil {
		out.DateOfBirth = *patch.DateOfBirth
	}
	if patch.Weight != nil {
		out.Weight = *patch.Weight
	}
	if patch.MedicalConditions != nil {
		out.MedicalConditions = *patch.MedicalConditions
	}
	if patch.DonationCount != nil {
		out.DonationCount = *patch.DonationCount
	}
	if patch.LastDonation != nil {
		ld := *patch.LastDonation
		out.LastDonation = &ld
	}
	return out
}
