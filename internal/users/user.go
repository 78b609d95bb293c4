package users

import "time"

// UserProfile is an account and its sharing preferences. The password
// hash never leaves the server.
type UserProfile struct {
	ID                  int       `json:"id"`
	Email               string    `json:"email"`
	Name                string    `json:"name"`
	PasswordHash        string    `json:"-"`
	PublicProfile       bool      `json:"publicProfile"`
	AllowFriendRequests bool      `json:"allowFriendRequests"`
	CreatedAt           time.Time `json:"createdAt"`
}
