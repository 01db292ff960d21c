// Package models contains the data structures shared by the social stores,
// the remote collaborator and the CLI.
package models

import "strings"

// Gender of an account holder.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// Role of an account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Account is a registered identity. Passwords are stored in plaintext; the
// application has no real authentication layer.
type Account struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"fullName"`
	Phone     string    `json:"phone"`
	Password  string    `json:"password"`
	Gender    Gender    `json:"gender"`
	Role      Role      `json:"role"`
	CreatedAt Timestamp `json:"createdAt"`
}

// IsAdmin reports whether the account has the admin role.
func (a Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// NormalizePhone strips every whitespace rune from a phone number.
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

// NormalizeUsername trims and lower-cases a username for comparisons.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
