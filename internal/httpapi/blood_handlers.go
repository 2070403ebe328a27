package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lifedrop.org/internal/audit"
	"lifedrop.org/internal/blood"
	"lifedrop.org/internal/donors"
	"lifedrop.org/internal/journal"
	"lifedrop.org/internal/session"
)

// DonationCenters are the centers the donate screen offers.
var DonationCenters = []string{
	"City General Hospital Blood Bank",
	"Red Cross Blood Center",
	"Memorial Medical Center",
	"Community Health Blood Drive",
	"University Hospital Blood Bank",
}

// scheduleDateLayout renders dates the way the donate screen does (M/D/YYYY).
const scheduleDateLayout = "1/2/2006"

func (a *API) getJournal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.journal.State())
}

func (a *API) urgentRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"requests": a.journal.UrgentRequests()})
}

func (a *API) donationCenters(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"centers": DonationCenters})
}

// currentUser returns the logged-in profile and a context carrying its id.
func (a *API) currentUser(ctx context.Context) (session.UserProfile, context.Context, error) {
	s := a.sessions.State()
	if !s.IsAuthenticated || s.User == nil {
		return session.UserProfile{}, ctx, session.ErrNoSession
	}
	return *s.User, audit.WithUserID(ctx, s.User.ID), nil
}

type bloodRequestBody struct {
	BloodType      string `json:"bloodType"`
	Urgency        string `json:"urgency"`
	UnitsNeeded    *int   `json:"unitsNeeded"`
	HospitalName   string `json:"hospitalName"`
	ContactNumber  string `json:"contactNumber"`
	AdditionalInfo string `json:"additionalInfo"`
}

type bloodRequestResult struct {
	Request      journal.BloodRequest `json:"request"`
	Notification journal.Notification `json:"notification"`
}

func (a *API) addBloodRequest(w http.ResponseWriter, r *http.Request) {
	var body bloodRequestBody
	if !decodeJSON(w, r, &body) {
		return
	}
	for _, f := range []struct{ name, value string }{
		{"bloodType", body.BloodType},
		{"hospitalName", body.HospitalName},
		{"contactNumber", body.ContactNumber},
	} {
		if strings.TrimSpace(f.value) == "" {
			a.respondError(w, r, required(f.name))
			return
		}
	}
	user, ctx, err := a.currentUser(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	bt, err := blood.ParseType(body.BloodType)
	if err != nil {
		a.respondError(w, r, fmt.Errorf("%w: %w", journal.ErrInvalidInput, err))
		return
	}
	urgency, err := blood.ParseUrgency(body.Urgency)
	if err != nil {
		a.respondError(w, r, fmt.Errorf("%w: %w", journal.ErrInvalidInput, err))
		return
	}
	units := 1
	if body.UnitsNeeded != nil {
		units = *body.UnitsNeeded
	}

	req, err := a.journal.AddBloodRequest(ctx, journal.RequestInput{
		BloodType:      bt,
		Urgency:        urgency,
		UnitsNeeded:    units,
		HospitalName:   strings.TrimSpace(body.HospitalName),
		ContactNumber:  strings.TrimSpace(body.ContactNumber),
		AdditionalInfo: body.AdditionalInfo,
		RequesterName:  user.Name,
		Location:       user.Location,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	n, err := a.journal.AddNotification(ctx, journal.NotificationInput{
		Title:   "Blood Request Submitted",
		Message: fmt.Sprintf("Your request for %d unit(s) of %s blood has been submitted.", req.UnitsNeeded, req.BloodType),
		Type:    journal.NotifySuccess,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, bloodRequestResult{Request: req, Notification: n})
}

type donationBody struct {
	DonationCenter string     `json:"donationCenter"`
	ScheduledDate  *time.Time `json:"scheduledDate"`
	Notes          string     `json:"notes"`
	Units          int        `json:"units"`
}

type donationResult struct {
	Donation     journal.Donation     `json:"donation"`
	Notification journal.Notification `json:"notification"`
}

func (a *API) addDonation(w http.ResponseWriter, r *http.Request) {
	var body donationBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.DonationCenter) == "" {
		a.respondError(w, r, &fieldError{field: "donationCenter", message: "Please select a donation center"})
		return
	}
	user, ctx, err := a.currentUser(r.Context())
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	when := a.now().UTC()
	if body.ScheduledDate != nil {
		when = *body.ScheduledDate
	}

	d, err := a.journal.AddDonation(ctx, journal.DonationInput{
		DonorName:      user.Name,
		BloodType:      user.BloodType,
		DonationCenter: strings.TrimSpace(body.DonationCenter),
		ScheduledDate:  when,
		Notes:          body.Notes,
		Units:          body.Units,
		Status:         journal.DonationScheduled,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	n, err := a.journal.AddNotification(ctx, journal.NotificationInput{
		Title:   "Donation Scheduled",
		Message: fmt.Sprintf("Your blood donation has been scheduled for %s at %s.", when.Format(scheduleDateLayout), d.DonationCenter),
		Type:    journal.NotifySuccess,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, donationResult{Donation: d, Notification: n})
}

type donorSearchBody struct {
	BloodType string   `json:"bloodType"`
	Location  string   `json:"location"`
	RadiusKm  *float64 `json:"radiusKm"`
	Urgency   string   `json:"urgency"`
	Limit     int      `json:"limit"`
}

func (a *API) findDonors(w http.ResponseWriter, r *http.Request) {
	var body donorSearchBody
	if !decodeJSON(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.BloodType) == "" {
		a.respondError(w, r, &fieldError{field: "bloodType", message: "Please select a blood type to search"})
		return
	}
	radius := a.defaultRadius
	if body.RadiusKm != nil {
		radius = *body.RadiusKm
	}
	limit := body.Limit
	if limit <= 0 {
		limit = a.defaultLimit
	}
	found, err := a.journal.FindDonors(r.Context(), donors.Criteria{
		BloodType: blood.Type(body.BloodType),
		Location:  body.Location,
		RadiusKm:  radius,
		Urgency:   body.Urgency,
		Limit:     limit,
	})
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"donors": found})
}

func (a *API) addNotification(w http.ResponseWriter, r *http.Request) {
	var in journal.NotificationInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		a.respondError(w, r, required("title"))
		return
	}
	n, err := a.journal.AddNotification(r.Context(), in)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}
