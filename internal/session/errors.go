package session

import "errors"

// Operations named in PersistError.
const (
	OpLogin         = "login"
	OpUpdateProfile = "updateProfile"
	OpLogout        = "logout"
)

var (
	ErrLoginPersist         = errors.New("session: login not persisted")
	ErrUpdateProfilePersist = errors.New("session: profile update not persisted")
	ErrLogoutPersist        = errors.New("session: logout not persisted")
	// ErrNoSession is returned by UpdateProfile when nobody is logged in.
	ErrNoSession = errors.New("session: not authenticated")
)

// PersistError reports a gateway failure during a session operation.
// errors.Is matches it against the Err*Persist sentinel of its Op and
// against the underlying gateway error.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return "session: " + e.Op + ": " + e.Err.Error()
}

func (e *PersistError) Unwrap() error { return e.Err }

func (e *PersistError) Is(target error) bool {
	switch target {
	case ErrLoginPersist:
		return e.Op == OpLogin
	case ErrUpdateProfilePersist:
		return e.Op == OpUpdateProfile
	case ErrLogoutPersist:
		return e.Op == OpLogout
	}
	return false
}
