package httpapi

import (
	"net/http"

	"lifedrop.org/internal/registration"
	"lifedrop.org/internal/session"
)

type registrationView struct {
	Step       string               `json:"step"`
	Submitting bool                 `json:"submitting"`
	Name       string               `json:"name"`
	Email      string               `json:"email"`
	Details    registration.Details `json:"details"`
}

func viewOf(f *registration.Flow) registrationView {
	b := f.Basic()
	return registrationView{
		Step:       f.Step().String(),
		Submitting: f.Submitting(),
		Name:       b.Name,
		Email:      b.Email,
		Details:    f.Details(),
	}
}

func (a *API) getRegistration(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(a.currentFlow()))
}

func (a *API) registrationBasic(w http.ResponseWriter, r *http.Request) {
	var b registration.Basic
	if !decodeJSON(w, r, &b) {
		return
	}
	f := a.currentFlow()
	if err := f.Next(b); err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(f))
}

func (a *API) registrationBack(w http.ResponseWriter, r *http.Request) {
	f := a.currentFlow()
	if err := f.Back(); err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(f))
}

type registrationResult struct {
	Message string              `json:"message"`
	User    session.UserProfile `json:"user"`
	Session session.State       `json:"session"`
}

func (a *API) registrationSubmit(w http.ResponseWriter, r *http.Request) {
	var d registration.Details
	if !decodeJSON(w, r, &d) {
		return
	}
	p, err := a.currentFlow().Submit(r.Context(), d)
	if err != nil {
		a.respondError(w, r, err)
		return
	}
	a.replaceFlow()
	writeJSON(w, http.StatusCreated, registrationResult{
		Message: registration.SuccessMessage,
		User:    p,
		Session: a.sessions.State(),
	})
}

func (a *API) registrationReset(w http.ResponseWriter, r *http.Request) {
	f := a.currentFlow()
	if err := f.Reset(); err != nil {
		a.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(f))
}
