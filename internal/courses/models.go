package courses

import "time"

// Status is the publication state shown on the admin dashboard.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Course is a catalogue entry managed by admins. Completion is a percentage.
type Course struct {
	ID         string    `json:"id" bson:"_id"`
	Title      string    `json:"title" bson:"title"`
	Completion int       `json:"completion" bson:"completion"`
	Students   int       `json:"students" bson:"students"`
	Status     Status    `json:"status" bson:"status"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}
