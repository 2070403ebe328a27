// Package journal is the domain store: append-only journals of blood
// requests, donations and notifications, plus the last donor search.
package journal

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"lifedrop.org/internal/audit"
	"lifedrop.org/internal/donors"
	"lifedrop.org/internal/ids"
	"lifedrop.org/internal/obs"
	"lifedrop.org/internal/stream"
)

// Store owns the journal State. Entry ids and timestamps are assigned here.
type Store struct {
	mu    sync.RWMutex
	state State

	dir    donors.Directory
	ids    ids.Generator
	now    func() time.Time
	logger *slog.Logger
	hub    *stream.Hub[State]
}

// Option configures Store.
type Option func(*Store)

// WithIDs sets the entry id generator (default ids.ULID).
func WithIDs(g ids.Generator) Option {
	return func(s *Store) {
		if g != nil {
			s.ids = g
		}
	}
}

// WithClock sets the clock used for CreatedAt, DonatedAt and Timestamp.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHub publishes every new state on h.
func WithHub(h *stream.Hub[State]) Option {
	return func(s *Store) {
		if h != nil {
			s.hub = h
		}
	}
}

// New returns an empty store backed by dir for donor searches. dir may be nil.
func New(dir donors.Directory, opts ...Option) *Store {
	s := &Store{
		state:  Initial(),
		dir:    dir,
		ids:    ids.ULID,
		now:    func() time.Time { return time.Now().UTC() },
		logger: obs.Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = stream.New[State](0)
	}
	return s
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe streams every state produced after the call until ctx ends.
func (s *Store) Subscribe(ctx context.Context) <-chan State {
	return s.hub.Subscribe(ctx)
}

// AddBloodRequest records a new active request at the head of BloodRequests.
func (s *Store) AddBloodRequest(ctx context.Context, in RequestInput) (BloodRequest, error) {
	in, err := in.normalize()
	if err != nil {
		return BloodRequest{}, err
	}
	req := BloodRequest{
		ID:             s.ids.New(),
		BloodType:      in.BloodType,
		Urgency:        in.Urgency,
		UnitsNeeded:    in.UnitsNeeded,
		HospitalName:   in.HospitalName,
		ContactNumber:  in.ContactNumber,
		AdditionalInfo: in.AdditionalInfo,
		RequesterName:  in.RequesterName,
		Location:       in.Location,
		CreatedAt:      s.now(),
		Status:         RequestActive,
	}
	s.apply(RequestAdded{Request: req})
	audit.Log(ctx, s.logger, "journal.request_added", map[string]any{
		"id": req.ID, "blood_type": string(req.BloodType), "urgency": string(req.Urgency), "units": req.UnitsNeeded,
	})
	return req, nil
}

// AddDonation records a donation at the head of DonationHistory.
func (s *Store) AddDonation(ctx context.Context, in DonationInput) (Donation, error) {
	in, err := in.normalize()
	if err != nil {
		return Donation{}, err
	}
	d := Donation{
		ID:             s.ids.New(),
		DonorName:      in.DonorName,
		BloodType:      in.BloodType,
		DonationCenter: in.DonationCenter,
		ScheduledDate:  in.ScheduledDate,
		Notes:          in.Notes,
		Units:          in.Units,
		Status:         in.Status,
		DonatedAt:      s.now(),
	}
	s.apply(DonationAdded{Donation: d})
	audit.Log(ctx, s.logger, "journal.donation_added", map[string]any{
		"id": d.ID, "center": d.DonationCenter, "status": string(d.Status), "units": d.Units,
	})
	return d, nil
}

// AddNotification records an unread notification at the head of Notifications.
func (s *Store) AddNotification(ctx context.Context, in NotificationInput) (Notification, error) {
	in, err := in.normalize()
	if err != nil {
		return Notification{}, err
	}
	n := Notification{
		ID:        s.ids.New(),
		Title:     in.Title,
		Message:   in.Message,
		Type:      in.Type,
		Timestamp: s.now(),
	}
	s.apply(NotificationAdded{Notification: n})
	return n, nil
}

// FindDonors asks the directory and replaces AvailableDonors with the result.
// On error the previous result is kept.
func (s *Store) FindDonors(ctx context.Context, c donors.Criteria) ([]Donor, error) {
	if s.dir == nil {
		return nil, ErrNoDirectory
	}
	found, err := s.dir.Search(ctx, c)
	if err != nil {
		obs.DonorSearches.WithLabelValues("error").Inc()
		s.logger.Warn("donor_search_failed", "error", err, "blood_type", string(c.BloodType))
		return nil, err
	}
	obs.DonorSearches.WithLabelValues("ok").Inc()
	s.apply(DonorsFound{Donors: found})
	return append([]Donor{}, found...), nil
}

// apply publishes under mu so subscribers see states in transition order.
// Publish never blocks.
func (s *Store) apply(m Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, m)
	obs.JournalAppends.WithLabelValues(m.journal()).Inc()
	s.hub.Publish(s.state.Clone())
}

// UrgentRequests is State().UrgentRequests() without copying the other lists.
func (s *Store) UrgentRequests() []BloodRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.UrgentRequests()
}

// Stats is State().Stats() without copying the lists.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Stats()
}
