package models

import "time"

// Role is the access level stored on a profile. Only administrative actions change it.
type Role string

const (
	RoleStudent Role = "student"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleAdmin
}

// Identity is the authenticated principal issued by the credential store.
type Identity struct {
	ID    string `bson:"_id" json:"id"`
	Email string `bson:"email" json:"email"`
}

// Profile is the application-level record for a learner or admin, keyed by identity id.
type Profile struct {
	IdentityID      string    `bson:"_id" json:"id"`
	FirstName       string    `bson:"firstName" json:"firstName"`
	LastName        string    `bson:"lastName" json:"lastName"`
	Email           string    `bson:"email" json:"email"`
	Phone           string    `bson:"phone" json:"phone"`
	Country         string    `bson:"country" json:"country"`
	Occupation      string    `bson:"occupation,omitempty" json:"occupation,omitempty"`
	Role            Role      `bson:"role" json:"role"`
	AvatarURL       *string   `bson:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	JoinedAt        time.Time `bson:"joinedAt" json:"joinedAt"`
	EnrolledCourses []string  `bson:"enrolledCourses" json:"enrolledCourses"`

	// Engagement counters have no update path yet; they are stored and returned as-is.
	Streak       int     `bson:"streak" json:"streak"`
	TotalHours   float64 `bson:"totalHours" json:"totalHours"`
	Certificates int     `bson:"certificates" json:"certificates"`

	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Clone returns a deep copy so cached values can't be mutated through shared slices or pointers.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.AvatarURL != nil {
		url := *p.AvatarURL
		c.AvatarURL = &url
	}
	if p.EnrolledCourses != nil {
		c.EnrolledCourses = append([]string(nil), p.EnrolledCourses...)
	}
	return &c
}

// ProfileUpdate is a partial record. Nil fields are left untouched by the store.
type ProfileUpdate struct {
	FirstName  *string
	LastName   *string
	Email      *string
	Phone      *string
	Country    *string
	Occupation *string
	AvatarURL  *string
}

// Apply merges the non-nil fields of u into a copy of p.
func (u ProfileUpdate) Apply(p *Profile) *Profile {
	out := p.Clone()
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&out.FirstName, u.FirstName)
	set(&out.LastName, u.LastName)
	set(&out.Email, u.Email)
	set(&out.Phone, u.Phone)
	set(&out.Country, u.Country)
	set(&out.Occupation, u.Occupation)
	if u.AvatarURL != nil {
		url := *u.AvatarURL
		out.AvatarURL = &url
	}
	return out
}
