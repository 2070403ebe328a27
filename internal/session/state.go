package session

// State is the authentication snapshot observed by the UI.
// IsAuthenticated implies User != nil.
type State struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *UserProfile `json:"user"`
	Loading         bool         `json:"loading"`
}

// Initial is the state before the restore check has run.
func Initial() State {
	return State{Loading: true}
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	if s.User != nil {
		u := s.User.Clone()
		s.User = &u
	}
	return s
}

// Message is one of Restored, LoggedIn, LoggedOut, ProfileUpdated.
type Message interface {
	kind() string
}

// Restored ends the restore check. A nil User means nothing usable was persisted.
type Restored struct{ User *UserProfile }

// LoggedIn replaces any prior session.
type LoggedIn struct{ User UserProfile }

// LoggedOut clears the session.
type LoggedOut struct{}

// ProfileUpdated replaces the current user with an already merged profile.
type ProfileUpdated struct{ User UserProfile }

func (Restored) kind() string       { return "restore" }
func (LoggedIn) kind() string       { return "login" }
func (LoggedOut) kind() string      { return "logout" }
func (ProfileUpdated) kind() string { return "update_profile" }

// Reduce is the session transition function. It never mutates s.
func Reduce(s State, m Message) State {
	switch m := m.(type) {
	case Restored:
		if m.User == nil {
			return State{}
		}
		u := m.User.Clone()
		return State{IsAuthenticated: true, User: &u}
	case LoggedIn:
		u := m.User.Clone()
		return State{IsAuthenticated: true, User: &u}
	case LoggedOut:
		return State{}
	case ProfileUpdated:
		if !s.IsAuthenticated || s.User == nil {
			return s.Clone()
		}
		u := m.User.Clone()
		return State{IsAuthenticated: true, User: &u}
	default:
		return s.Clone()
	}
}
