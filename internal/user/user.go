package user

import "time"

// User is a registered account in the credential store
type User struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	DOB          string    `json:"dob,omitempty"` // YYYY-MM-DD
	MobileNumber string    `json:"mobile_number,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the projection returned to clients after register and login
type Profile struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName"`
	Email     string `json:"email"`
}
