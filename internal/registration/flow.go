// Package registration drives the two-step sign-up form and hands the
// resulting profile to the session store.
package registration

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"lifedrop.org/internal/blood"
	"lifedrop.org/internal/ids"
	"lifedrop.org/internal/obs"
	"lifedrop.org/internal/session"
)

const (
	// DefaultSubmitDelay is the pause before the profile is handed over.
	DefaultSubmitDelay = 1500 * time.Millisecond
	// MinPasswordLength is counted in characters.
	MinPasswordLength = 6
	// SuccessMessage is shown once the account exists.
	SuccessMessage = "Account created successfully! Welcome to Blood Donation App."
)

const (
	msgMissingFields    = "Please fill in all required fields"
	msgPasswordMatch    = "Passwords do not match"
	msgPasswordLength   = "Password must be at least 6 characters long"
	msgInvalidBloodType = "Please select a valid blood type"
)

// Step is the form page currently shown.
type Step int

const (
	StepBasic Step = iota + 1
	StepDetails
	StepDone
)

func (s Step) String() string {
	switch s {
	case StepBasic:
		return "basic"
	case StepDetails:
		return "details"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

// Basic holds the first page.
type Basic struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

// Details holds the second page. DateOfBirth defaults to the submission time.
type Details struct {
	Phone             string     `json:"phone"`
	BloodType         string     `json:"bloodType"`
	Location          string     `json:"location"`
	DateOfBirth       *time.Time `json:"dateOfBirth,omitempty"`
	Weight            string     `json:"weight,omitempty"`
	MedicalConditions string     `json:"medicalConditions,omitempty"`
}

// Authenticator receives the finished profile. *session.Store satisfies it.
type Authenticator interface {
	Login(ctx context.Context, p session.UserProfile) error
}

// Flow is one sign-up form. It is safe for concurrent use; a second Submit
// while one is pending is rejected.
type Flow struct {
	mu         sync.Mutex
	step       Step
	basic      Basic
	details    Details
	submitting bool

	auth   Authenticator
	ids    ids.Generator
	now    func() time.Time
	delay  time.Duration
	logger *slog.Logger
}

// Option configures Flow.
type Option func(*Flow)

// WithIDs sets the profile id generator (default ids.UUID).
func WithIDs(g ids.Generator) Option {
	return func(f *Flow) {
		if g != nil {
			f.ids = g
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

// WithSubmitDelay overrides DefaultSubmitDelay. Zero submits immediately.
func WithSubmitDelay(d time.Duration) Option {
	return func(f *Flow) {
		if d >= 0 {
			f.delay = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// New starts a form on the first page.
func New(auth Authenticator, opts ...Option) *Flow {
	f := &Flow{
		step:   StepBasic,
		auth:   auth,
		ids:    ids.UUID,
		now:    func() time.Time { return time.Now().UTC() },
		delay:  DefaultSubmitDelay,
		logger: obs.Logger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) Step() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.step
}

// Basic returns the retained first-page values.
func (f *Flow) Basic() Basic {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.basic
}

// Details returns the retained second-page values.
func (f *Flow) Details() Details {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.details
}

// Submitting reports whether a submission is pending.
func (f *Flow) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

// ValidateBasic checks the first page in display order.
func ValidateBasic(b Basic) error {
	// Passwords are taken verbatim, so only the empty string counts as missing.
	missing := ""
	switch {
	case blank(b.Name):
		missing = "name"
	case blank(b.Email):
		missing = "email"
	case b.Password == "":
		missing = "password"
	case b.ConfirmPassword == "":
		missing = "confirmPassword"
	}
	if missing != "" {
		return invalid(missing, msgMissingFields, ErrMissingFields)
	}
	if b.Password != b.ConfirmPassword {
		return invalid("confirmPassword", msgPasswordMatch, ErrPasswordMismatch)
	}
	if utf8.RuneCountInString(b.Password) < MinPasswordLength {
		return invalid("password", msgPasswordLength, ErrPasswordTooShort)
	}
	return nil
}

// ValidateDetails checks the second page and returns the parsed blood type.
func ValidateDetails(d Details) (blood.Type, error) {
	if blank(d.Phone) || blank(d.BloodType) || blank(d.Location) {
		return "", invalid(firstBlank(map[string]string{
			"phone": d.Phone, "bloodType": d.BloodType, "location": d.Location,
		}, "phone", "bloodType", "location"), msgMissingFields, ErrMissingFields)
	}
	bt, err := blood.ParseType(d.BloodType)
	if err != nil {
		return "", invalid("bloodType", msgInvalidBloodType, ErrInvalidBloodType)
	}
	return bt, nil
}

// Next validates the first page and moves to the second. The entered values
// are kept whether or not they pass.
func (f *Flow) Next(b Basic) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepBasic {
		return ErrWrongStep
	}
	f.basic = b
	if err := ValidateBasic(b); err != nil {
		return err
	}
	f.step = StepDetails
	return nil
}

// Back returns from the second page to the first without clearing anything.
func (f *Flow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.step != StepDetails || f.submitting {
		return ErrWrongStep
	}
	f.step = StepBasic
	return nil
}

// Submit validates the second page, waits the submit delay, builds the
// profile and logs it in. On failure the form stays on the second page.
func (f *Flow) Submit(ctx context.Context, d Details) (session.UserProfile, error) {
	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return session.UserProfile{}, ErrSubmitInFlight
	}
	if f.step != StepDetails {
		f.mu.Unlock()
		return session.UserProfile{}, ErrWrongStep
	}
	f.details = d
	bt, err := ValidateDetails(d)
	if err != nil {
		f.mu.Unlock()
		return session.UserProfile{}, err
	}
	f.submitting = true
	basic := f.basic
	f.mu.Unlock()

	profile, err := f.submit(ctx, basic, d, bt)

	f.mu.Lock()
	f.submitting = false
	if err == nil {
		f.step = StepDone
	}
	f.mu.Unlock()
	return profile, err
}

func (f *Flow) submit(ctx context.Context, b Basic, d Details, bt blood.Type) (session.UserProfile, error) {
	if err := sleep(ctx, f.delay); err != nil {
		return session.UserProfile{}, err
	}
	dob := f.now()
	if d.DateOfBirth != nil {
		dob = *d.DateOfBirth
	}
	p := session.UserProfile{
		ID:                f.ids.New(),
		Name:              strings.TrimSpace(b.Name),
		Email:             strings.TrimSpace(b.Email),
		Phone:             strings.TrimSpace(d.Phone),
		BloodType:         bt,
		Location:          strings.TrimSpace(d.Location),
		DateOfBirth:       dob,
		Weight:            strings.TrimSpace(d.Weight),
		MedicalConditions: d.MedicalConditions,
	}
	if err := f.auth.Login(ctx, p); err != nil {
		f.logger.Error("registration_login_failed", "error", err, "user_id", p.ID)
		return session.UserProfile{}, err
	}
	f.logger.Info("registration_complete", "user_id", p.ID, "blood_type", string(bt))
	return p, nil
}

// Reset clears the form back to an empty first page.
func (f *Flow) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitting {
		return ErrSubmitInFlight
	}
	f.step = StepBasic
	f.basic = Basic{}
	f.details = Details{}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func firstBlank(values map[string]string, order ...string) string {
	for _, k := range order {
		if blank(values[k]) {
			return k
		}
	}
	return ""
}
