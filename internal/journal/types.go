package journal

import (
	"errors"
	"time"

	"lifedrop.org/internal/blood"
	"lifedrop.org/internal/donors"
)

// ErrInvalidInput rejects structurally impossible entries. Presence of the
// human-entered fields is checked by the caller.
var ErrInvalidInput = errors.New("journal: invalid input")

// ErrNoDirectory is returned by FindDonors when no directory is configured.
var ErrNoDirectory = errors.New("journal: no donor directory")

type RequestStatus string

const (
	RequestActive    RequestStatus = "active"
	RequestFulfilled RequestStatus = "fulfilled"
	RequestCancelled RequestStatus = "cancelled"
)

type DonationStatus string

const (
	DonationScheduled DonationStatus = "scheduled"
	DonationCompleted DonationStatus = "completed"
	DonationCancelled DonationStatus = "cancelled"
)

type NotificationType string

const (
	NotifySuccess  NotificationType = "success"
	NotifyInfo     NotificationType = "info"
	NotifyReminder NotificationType = "reminder"
	NotifyUrgent   NotificationType = "urgent"
)

// BloodRequest is a request for blood. ID, CreatedAt and Status are set by the store.
type BloodRequest struct {
	ID             string        `json:"id"`
	BloodType      blood.Type    `json:"bloodType"`
	Urgency        blood.Urgency `json:"urgency"`
	UnitsNeeded    int           `json:"unitsNeeded"`
	HospitalName   string        `json:"hospitalName"`
	ContactNumber  string        `json:"contactNumber"`
	AdditionalInfo string        `json:"additionalInfo"`
	RequesterName  string        `json:"requesterName"`
	Location       string        `json:"location"`
	CreatedAt      time.Time     `json:"createdAt"`
	Status         RequestStatus `json:"status"`
}

// RequestInput is what the caller supplies for a new BloodRequest.
type RequestInput struct {
	BloodType      blood.Type    `json:"bloodType"`
	Urgency        blood.Urgency `json:"urgency"`
	UnitsNeeded    int           `json:"unitsNeeded"`
	HospitalName   string        `json:"hospitalName"`
	ContactNumber  string        `json:"contactNumber"`
	AdditionalInfo string        `json:"additionalInfo"`
	RequesterName  string        `json:"requesterName"`
	Location       string        `json:"location"`
}

// Donation is a scheduled or completed donation. DonatedAt records creation.
type Donation struct {
	ID             string         `json:"id"`
	DonorName      string         `json:"donorName"`
	BloodType      blood.Type     `json:"bloodType"`
	DonationCenter string         `json:"donationCenter"`
	ScheduledDate  time.Time      `json:"scheduledDate"`
	Notes          string         `json:"notes"`
	Units          int            `json:"units"`
	Status         DonationStatus `json:"status"`
	DonatedAt      time.Time      `json:"donatedAt"`
}

// DonationInput is what AddDonation accepts. Zero Units means 1.
type DonationInput struct {
	DonorName      string         `json:"donorName"`
	BloodType      blood.Type     `json:"bloodType"`
	DonationCenter string         `json:"donationCenter"`
	ScheduledDate  time.Time      `json:"scheduledDate"`
	Notes          string         `json:"notes"`
	Units          int            `json:"units"`
	Status         DonationStatus `json:"status"`
}

type Notification struct {
	ID        string           `json:"id"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
	Read      bool             `json:"read"`
}

type NotificationInput struct {
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Type    NotificationType `json:"type"`
}

func (in RequestInput) normalize() (RequestInput, error) {
	if !in.BloodType.Valid() {
		return in, errors.Join(ErrInvalidInput, blood.ErrUnknownType)
	}
	if in.Urgency == "" {
		in.Urgency = blood.Normal
	}
	if !in.Urgency.Valid() {
		return in, errors.Join(ErrInvalidInput, blood.ErrUnknownUrgency)
	}
	if in.UnitsNeeded < 1 {
		return in, errors.Join(ErrInvalidInput, errors.New("unitsNeeded must be at least 1"))
	}
	return in, nil
}

func (in DonationInput) normalize() (DonationInput, error) {
	if in.BloodType != "" && !in.BloodType.Valid() {
		return in, errors.Join(ErrInvalidInput, blood.ErrUnknownType)
	}
	switch {
	case in.Units == 0:
		in.Units = 1
	case in.Units < 0:
		return in, errors.Join(ErrInvalidInput, errors.New("units must not be negative"))
	}
	switch in.Status {
	case "":
		in.Status = DonationScheduled
	case DonationScheduled, DonationCompleted, DonationCancelled:
	default:
		return in, errors.Join(ErrInvalidInput, errors.New("unknown donation status"))
	}
	return in, nil
}

func (in NotificationInput) normalize() (NotificationInput, error) {
	switch in.Type {
	case "":
		in.Type = NotifyInfo
	case NotifySuccess, NotifyInfo, NotifyReminder, NotifyUrgent:
	default:
		return in, errors.Join(ErrInvalidInput, errors.New("unknown notification type"))
	}
	return in, nil
}

// Donor is a search result held in State.AvailableDonors.
type Donor = donors.Donor
