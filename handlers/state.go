package handlers

import (
	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/session"
)

// Session states as reported to clients.
const (
	StatusSignedOut      = "signed_out"
	StatusLoading        = "loading"
	StatusReady          = "ready"
	StatusProfileMissing = "profile_missing"
	StatusError          = "error"
)

type stateResponse struct {
	Status   string           `json:"status"`
	Identity *models.Identity `json:"identity,omitempty"`
	Profile  *models.Profile  `json:"profile,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func stateView(s session.State) stateResponse {
	out := stateResponse{Identity: s.Identity, Profile: s.Profile}
	switch {
	case s.Identity == nil:
		out.Status = StatusSignedOut
	case s.Resolving:
		out.Status = StatusLoading
	case s.Profile != nil:
		out.Status = StatusReady
	case s.ProfileMissing():
		out.Status = StatusProfileMissing
		out.Error = apperr.Message(s.Err)
	default:
		out.Status = StatusError
		out.Error = apperr.Message(s.Err)
	}
	return out
}
