package domain

import "time"

// User is an account that can submit tickets; admins additionally manage
// categories, team members and ticket statuses.
type User struct {
	ID                 string
	Name               string
	Email              string
	PasswordHash       string
	IsAdmin            bool
	MustChangePassword bool
	CreatedAt          time.Time
}
