// Package session is the authentication store: who is logged in, kept in
// step with the persisted user record.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"lifedrop.org/internal/audit"
	"lifedrop.org/internal/gateway"
	"lifedrop.org/internal/obs"
	"lifedrop.org/internal/stream"
)

// DefaultGatewayTimeout bounds each gateway call.
const DefaultGatewayTimeout = 5 * time.Second

// Store owns the session State. Operations are serialized: each gateway call
// and the transition that follows it complete before the next operation starts.
type Store struct {
	op sync.Mutex

	mu    sync.RWMutex
	state State

	gw      gateway.Gateway
	logger  *slog.Logger
	timeout time.Duration
	hub     *stream.Hub[State]
}

// Option configures Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence faults and audit events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithGatewayTimeout overrides DefaultGatewayTimeout. Zero disables the bound.
func WithGatewayTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d >= 0 {
			s.timeout = d
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

// New returns a store in the Initial state. Call RestoreSession once at start.
func New(gw gateway.Gateway, opts ...Option) *Store {
	s := &Store{
		state:   Initial(),
		gw:      gw,
		logger:  obs.Logger(),
		timeout: DefaultGatewayTimeout,
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

// RestoreSession loads the persisted record. Absent, unreadable or malformed
// records all end logged out; faults are logged, never returned.
func (s *Store) RestoreSession(ctx context.Context) State {
	s.op.Lock()
	defer s.op.Unlock()

	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()

	var restored *UserProfile
	raw, err := s.gw.Get(gctx, gateway.UserDataKey)
	switch {
	case errors.Is(err, gateway.ErrNotFound):
	case err != nil:
		obs.GatewayFaults.WithLabelValues("get").Inc()
		s.logger.Warn("session_restore_failed", "error", err)
	default:
		var p UserProfile
		if err := json.Unmarshal(raw, &p); err != nil {
			s.logger.Warn("session_restore_malformed", "error", err)
			break
		}
		if err := p.Validate(); err != nil {
			s.logger.Warn("session_restore_malformed", "error", err, "id", p.ID, "blood_type", string(p.BloodType))
			break
		}
		restored = &p
	}
	return s.apply(Restored{User: restored})
}

// Login persists p, then makes it the current session. On a gateway failure
// the state is left as it was and a PersistError is returned.
func (s *Store) Login(ctx context.Context, p UserProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.op.Lock()
	defer s.op.Unlock()

	if err := s.persist(ctx, p); err != nil {
		obs.GatewayFaults.WithLabelValues("set").Inc()
		s.logger.Error("session_login_persist_failed", "error", err, "user_id", p.ID)
		return &PersistError{Op: OpLogin, Err: err}
	}
	s.apply(LoggedIn{User: p})
	audit.Log(audit.WithUserID(ctx, p.ID), s.logger, "session.login", map[string]any{
		"blood_type": string(p.BloodType),
	})
	return nil
}

// Logout removes the persisted record and always ends logged out. A removal
// failure is returned as a PersistError after the transition.
func (s *Store) Logout(ctx context.Context) error {
	s.op.Lock()
	defer s.op.Unlock()

	prev := s.State()
	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()
	rmErr := s.gw.Remove(gctx, gateway.UserDataKey)

	s.apply(LoggedOut{})
	if prev.User != nil {
		ctx = audit.WithUserID(ctx, prev.User.ID)
	}
	audit.Log(ctx, s.logger, "session.logout", nil)

	if rmErr != nil {
		obs.GatewayFaults.WithLabelValues("remove").Inc()
		s.logger.Warn("session_logout_persist_failed", "error", rmErr)
		return &PersistError{Op: OpLogout, Err: rmErr}
	}
	return nil
}

// UpdateProfile merges patch onto the current user, persists the result and
// then applies it. Without a session it returns ErrNoSession.
func (s *Store) UpdateProfile(ctx context.Context, patch ProfilePatch) (UserProfile, error) {
	s.op.Lock()
	defer s.op.Unlock()

	cur := s.State()
	if !cur.IsAuthenticated || cur.User == nil {
		return UserProfile{}, ErrNoSession
	}
	merged := cur.User.Merge(patch)
	if err := merged.Validate(); err != nil {
		return UserProfile{}, err
	}
	if err := s.persist(ctx, merged); err != nil {
		obs.GatewayFaults.WithLabelValues("set").Inc()
		s.logger.Error("session_update_persist_failed", "error", err, "user_id", merged.ID)
		return UserProfile{}, &PersistError{Op: OpUpdateProfile, Err: err}
	}
	s.apply(ProfileUpdated{User: merged})
	audit.Log(audit.WithUserID(ctx, merged.ID), s.logger, "session.update_profile", nil)
	return merged.Clone(), nil
}

func (s *Store) persist(ctx context.Context, p UserProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	gctx, cancel := s.gatewayContext(ctx)
	defer cancel()
	return s.gw.Set(gctx, gateway.UserDataKey, raw)
}

func (s *Store) apply(m Message) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, m)
	obs.SessionTransitions.WithLabelValues(m.kind()).Inc()
	s.hub.Publish(s.state.Clone())
	return s.state.Clone()
}

func (s *Store) gatewayContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
