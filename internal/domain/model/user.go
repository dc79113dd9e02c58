// Package model holds the reference host records the auth core operates on.
package model

import "time"

// User is the reference host's account record. Email, Phone and Login are its identity keys;
// each is stored normalized and is unique when present.
type User struct {
	ID        string    `json:"id"                   db:"id"`
	Email     *string   `json:"email,omitempty"      db:"email"`
	Phone     *string   `json:"phone,omitempty"      db:"phone"`
	Login     *string   `json:"login,omitempty"      db:"login"`
	FirstName string    `json:"first_name,omitempty" db:"first_name"`
	LastName  string    `json:"last_name,omitempty"  db:"last_name"`
	CreatedAt time.Time `json:"created_at"           db:"created_at"`
}

// GetID returns the user id.
func (u *User) GetID() string { return u.ID }

// Identity key names understood by the reference user repository.
const (
	KeyEmail = "email"
	KeyPhone = "phone"
	KeyLogin = "login"
)

// Profile field names accepted alongside the identity keys.
const (
	KeyFirstName = "first_name"
	KeyLastName  = "last_name"
)

// IdentityValue returns the value stored for key, or "".
func (u *User) IdentityValue(key string) string {
	var p *string
	switch key {
	case KeyEmail:
		p = u.Email
	case KeyPhone:
		p = u.Phone
	case KeyLogin:
		p = u.Login
	}
	if p == nil {
		return ""
	}
	return *p
}
