// Package users defines the user account entity owned by the record store.
package users

// User represents an authenticated account. PasswordHash holds a salted
// bcrypt hash and is never serialized to clients.
type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
}
