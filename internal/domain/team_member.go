package domain

import "time"

// TeamMember is a handler eligible to receive assigned tickets. Each member
// serves exactly one category.
type TeamMember struct {
	ID          string
	Name        string
	Email       string
	CategoryID  string
	IsAvailable bool
	CreatedAt   time.Time
}
