package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/techfemme/academy/backend/go-services/internal/apperr"
	"github.com/techfemme/academy/backend/go-services/internal/models"
	"github.com/techfemme/academy/backend/go-services/internal/session"
)

func TestDecide(t *testing.T) {
	id := &models.Identity{ID: "u1", Email: "u1@example.com"}
	student := &models.Profile{IdentityID: "u1", Role: models.RoleStudent}
	admin := &models.Profile{IdentityID: "u1", Role: models.RoleAdmin}
	dashboard := Route{Path: "/dashboard"}
	adminRoute := Route{Path: "/admin", Role: models.RoleAdmin}

	cases := []struct {
		name   string
		state  session.State
		route  Route
		expect Decision
	}{
		{"resolving without identity", session.State{Resolving: true}, dashboard, Decision{Outcome: Loading}},
		{"resolving with stale profile", session.State{Identity: id, Profile: admin, Resolving: true}, adminRoute, Decision{Outcome: Loading}},
		{"signed out", session.State{}, dashboard, Decision{Outcome: Deny, Redirect: "/", Reason: ReasonNotSignedIn}},
		{"profile missing", session.State{Identity: id, Err: apperr.New(apperr.KindProfileMissing, "", "profile not found")}, dashboard,
			Decision{Outcome: Deny, Redirect: "/", Reason: ReasonProfileNotFound}},
		{"store error", session.State{Identity: id, Err: apperr.Wrap(errors.New("down"), apperr.KindStoreUnavailable, "", "")}, dashboard,
			Decision{Outcome: Deny, Redirect: "/", Reason: ReasonProfileError}},
		{"student on dashboard", session.State{Identity: id, Profile: student}, dashboard, Decision{Outcome: Allow}},
		{"student on admin", session.State{Identity: id, Profile: student}, adminRoute, Decision{Outcome: Deny, Redirect: "/", Reason: ReasonRole}},
		{"admin on admin", session.State{Identity: id, Profile: admin}, adminRoute, Decision{Outcome: Allow}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expect, Decide(tc.state, tc.route))
		})
	}
}

func TestDecide_NeverAllowsWhileResolving(t *testing.T) {
	id := &models.Identity{ID: "u1"}
	for _, p := range []*models.Profile{nil, {IdentityID: "u1", Role: models.RoleAdmin}} {
		for _, r := range []Route{{}, {Role: models.RoleAdmin}, {Role: models.RoleStudent}} {
			d := Decide(session.State{Identity: id, Profile: p, Resolving: true}, r)
			assert.NotEqual(t, Allow, d.Outcome)
		}
	}
}
