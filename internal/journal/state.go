package journal

import "lifedrop.org/internal/blood"

// State holds the journals, newest first, and the last donor search result.
type State struct {
	BloodRequests   []BloodRequest `json:"bloodRequests"`
	DonationHistory []Donation     `json:"donationHistory"`
	AvailableDonors []Donor        `json:"availableDonors"`
	Notifications   []Notification `json:"notifications"`
}

// Initial is the empty state.
func Initial() State {
	return State{
		BloodRequests:   []BloodRequest{},
		DonationHistory: []Donation{},
		AvailableDonors: []Donor{},
		Notifications:   []Notification{},
	}
}

// Clone copies every list. Entries are values; donor pointers are shared
// read-only.
func (s State) Clone() State {
	return State{
		BloodRequests:   append([]BloodRequest{}, s.BloodRequests...),
		DonationHistory: append([]Donation{}, s.DonationHistory...),
		AvailableDonors: append([]Donor{}, s.AvailableDonors...),
		Notifications:   append([]Notification{}, s.Notifications...),
	}
}

// UnreadCount counts notifications not yet read.
func (s State) UnreadCount() int {
	n := 0
	for _, nt := range s.Notifications {
		if !nt.Read {
			n++
		}
	}
	return n
}

// Message is one of RequestAdded, DonationAdded, DonorsFound, NotificationAdded.
type Message interface {
	journal() string
}

type RequestAdded struct{ Request BloodRequest }
type DonationAdded struct{ Donation Donation }

// DonorsFound replaces AvailableDonors wholesale.
type DonorsFound struct{ Donors []Donor }
type NotificationAdded struct{ Notification Notification }

func (RequestAdded) journal() string      { return "blood_requests" }
func (DonationAdded) journal() string     { return "donation_history" }
func (DonorsFound) journal() string       { return "available_donors" }
func (NotificationAdded) journal() string { return "notifications" }

func prepend[T any](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, v)
	return append(out, list...)
}

// Reduce is the journal transition function. It never mutates s.
func Reduce(s State, m Message) State {
	next := s.Clone()
	switch m := m.(type) {
	case RequestAdded:
		next.BloodRequests = prepend(s.BloodRequests, m.Request)
	case DonationAdded:
		next.DonationHistory = prepend(s.DonationHistory, m.Donation)
	case DonorsFound:
		next.AvailableDonors = append([]Donor{}, m.Donors...)
	case NotificationAdded:
		next.Notifications = prepend(s.Notifications, m.Notification)
	}
	return next
}

// UrgentRequests returns the active Urgent and Critical requests, newest first.
func (s State) UrgentRequests() []BloodRequest {
	out := []BloodRequest{}
	for _, r := range s.BloodRequests {
		if r.Status == RequestActive && (r.Urgency == blood.Urgent || r.Urgency == blood.Critical) {
			out = append(out, r)
		}
	}
	return out
}

// Stats summarises the journals for the history and profile screens.
type Stats struct {
	CompletedDonations  int
	ScheduledDonations  int
	UnitsDonated        int
	ActiveRequests      int
	UnreadNotifications int
}

func (s State) Stats() Stats {
	var st Stats
	for _, d := range s.DonationHistory {
		switch d.Status {
		case DonationCompleted:
			st.CompletedDonations++
			st.UnitsDonated += d.Units
		case DonationScheduled:
			st.ScheduledDonations++
		}
	}
	for _, r := range s.BloodRequests {
		if r.Status == RequestActive {
			st.ActiveRequests++
		}
	}
	st.UnreadNotifications = s.UnreadCount()
	return st
}
