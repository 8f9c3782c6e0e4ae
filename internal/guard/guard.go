// Package guard decides whether a session state may enter a route.
package guard

import (
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/session"
)

type Outcome int

const (
	Loading Outcome = iota
	Allow
	Deny
)

func (o Outcome) String() string {
	switch o {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	}
	return "loading"
}

const HomePath = "/"

const (
	ReasonNotSignedIn     = "not signed in"
	ReasonProfileNotFound = "profile not found"
	ReasonProfileError    = "profile unavailable"
	ReasonRole            = "insufficient role"
)

// Route is a protected destination. An empty Role admits any signed-in profile.
type Route struct {
	Path string
	Role models.Role
}

type Decision struct {
	Outcome  Outcome
	Redirect string
	Reason   string
}

// Decide maps a session state to a decision. It never allows while resolving.
func Decide(s session.State, r Route) Decision {
	switch {
	case s.Resolving:
		return Decision{Outcome: Loading}
	case s.Identity == nil:
		return Decision{Outcome: Deny, Redirect: HomePath, Reason: ReasonNotSignedIn}
	case s.Profile == nil:
		if s.Err != nil && !s.ProfileMissing() {
			return Decision{Outcome: Deny, Redirect: HomePath, Reason: ReasonProfileError}
		}
		return Decision{Outcome: Deny, Redirect: HomePath, Reason: ReasonProfileNotFound}
	case r.Role != "" && s.Profile.Role != r.Role:
		return Decision{Outcome: Deny, Redirect: HomePath, Reason: ReasonRole}
	}
	return Decision{Outcome: Allow}
}
