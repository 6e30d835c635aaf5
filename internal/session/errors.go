package session

import (
	"fmt"
	"time"
)

// AuthenticationError is returned by Login for invalid credentials, accounts
// pending approval, or an unreachable backend. The session is unchanged.
type AuthenticationError struct {
	Reason string
	Err    error
}

func (e *AuthenticationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// SessionExpiredError reports that the expiry check found the session past
// its deadline and forced a logout.
type SessionExpiredError struct {
	ExpiredAt time.Time
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session expired at %s", e.ExpiredAt.Format(time.RFC3339))
}
