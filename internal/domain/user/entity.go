package user

import "time"

// User represents a user entity in the system.
type User struct {
	ID        int64     `json:"id"`         // ID is the unique identifier for the user, zero until persisted
	Name      string    `json:"name"`       // Name is the full name of the user
	Email     string    `json:"email"`      // Email is the unique email address of the user
	CreatedAt time.Time `json:"created_at"` // CreatedAt is set when the user is constructed by the service
}
