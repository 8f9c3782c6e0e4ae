package session

import (
	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/models"
)

// State is the value published to subscribers on every transition.
//
//	signed out:        Identity nil, Profile nil, Resolving false
//	resolving:         Identity set, Resolving true (Profile may hold a snapshot being re-checked)
//	resolved:          Identity set, Profile set
//	profile missing:   Identity set, Profile nil, Err kind ProfileMissing
//	store unavailable: Identity set, Profile nil, Err kind StoreUnavailable
type State struct {
	Identity  *models.Identity
	Profile   *models.Profile
	Resolving bool
	Err       error
}

func (s State) SignedIn() bool {
	return s.Identity != nil
}

// ProfileMissing reports the distinct "authenticated but no profile" state.
func (s State) ProfileMissing() bool {
	return s.Identity != nil && s.Profile == nil && !s.Resolving && apperr.KindOf(s.Err) == apperr.KindProfileMissing
}

// failed reports a finished resolution that left no profile, the state a retry starts from.
func (s State) failed() bool {
	return s.Identity != nil && s.Profile == nil && !s.Resolving && s.Err != nil
}

func (s State) clone() State {
	out := s
	if s.Identity != nil {
		id := *s.Identity
		out.Identity = &id
	}
	out.Profile = s.Profile.Clone()
	return out
}

func (s State) identityID() string {
	if s.Identity == nil {
		return ""
	}
	return s.Identity.ID
}
