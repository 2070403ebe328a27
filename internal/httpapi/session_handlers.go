package httpapi

import (
	"net/http"
	"strings"

	"lifedrop.org/internal/audit"
	"lifedrop.org/internal/session"
)

func (a *API) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.sessions.State())
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var p session.UserProfile
	if !decodeJSON(w, r, &p) {
		return
	}
	if err := a.sessions.Login(r.Context(), p); err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a.sessions.State())
}

// logout reports a removal failure but the session is cleared regardless.
func (a *API) logout(w http.ResponseWriter, r *http.Request) {
	err := a.sessions.Logout(r.Context())
	body := map[string]any{"state": a.sessions.State()}
	if err != nil {
		a.logger.WarnContext(r.Context(), "logout_persist_failed", "request_id", requestIDFrom(r.Context()), "error", err)
		body["warning"] = "logged out, but the saved session could not be removed"
	}
	writeJSON(w, http.StatusOK, body)
}

func (a *API) updateProfile(w http.ResponseWriter, r *http.Request) {
	var patch session.ProfilePatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		a.respondError(w, r, required("name"))
		return
	}
	if patch.Email != nil && strings.TrimSpace(*patch.Email) == "" {
		a.respondError(w, r, required("email"))
		return
	}
	ctx := r.Context()
	if u := a.sessions.State().User; u != nil {
		ctx = audit.WithUserID(ctx, u.ID)
	}
	p, err := a.sessions.UpdateProfile(ctx, patch)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type profileStats struct {
	DonationCount       int `json:"donationCount"`
	LivesSaved          int `json:"livesSaved"`
	CompletedDonations  int `json:"completedDonations"`
	ScheduledDonations  int `json:"scheduledDonations"`
	UnitsDonated        int `json:"unitsDonated"`
	ActiveRequests      int `json:"activeRequests"`
	UnreadNotifications int `json:"unreadNotifications"`
}

func (a *API) profileStats(w http.ResponseWriter, r *http.Request) {
	s := a.sessions.State()
	if s.User == nil {
		a.respondError(w, r, session.ErrNoSession)
		return
	}
	js := a.journal.Stats()
	writeJSON(w, http.StatusOK, profileStats{
		DonationCount:       s.User.DonationCount,
		LivesSaved:          s.User.LivesSaved(),
		CompletedDonations:  js.CompletedDonations,
		ScheduledDonations:  js.ScheduledDonations,
		UnitsDonated:        js.UnitsDonated,
		ActiveRequests:      js.ActiveRequests,
		UnreadNotifications: js.UnreadNotifications,
	})
}
