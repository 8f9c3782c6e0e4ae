package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestProfileUpdateApplyPreservesUnsetFields(t *testing.T) {
	avatar := "http://blob/avatars/u1"
	p := &Profile{
		IdentityID:      "u1",
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Phone:           "0123456789",
		Role:            RoleStudent,
		AvatarURL:       &avatar,
		EnrolledCourses: []string{"Frontend"},
		Streak:          4,
		TotalHours:      12.5,
		Certificates:    1,
	}
	first := "Augusta"
	out := ProfileUpdate{FirstName: &first}.Apply(p)

	require.Equal(t, "Augusta", out.FirstName)
	require.Equal(t, "Lovelace", out.LastName)
	require.Equal(t, 4, out.Streak)
	require.Equal(t, 12.5, out.TotalHours)
	require.Equal(t, []string{"Frontend"}, out.EnrolledCourses)
	require.Equal(t, "Ada", p.FirstName, "original must not be mutated")
}

func TestProfileCloneIsDeep(t *testing.T) {
	avatar := "a"
	p := &Profile{AvatarURL: &avatar, EnrolledCourses: []string{"x"}}
	c := p.Clone()
	*c.AvatarURL = "b"
	c.EnrolledCourses[0] = "y"
	require.Equal(t, "a", *p.AvatarURL)
	require.Equal(t, "x", p.EnrolledCourses[0])
	require.Nil(t, (*Profile)(nil).Clone())
}

func TestRoleValid(t *testing.T) {
	require.True(t, RoleAdmin.Valid())
	require.True(t, RoleStudent.Valid())
	require.False(t, Role("teacher").Valid())
}
