package model

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
	"unicode"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type User struct {
	ID           int        `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	PasswordHash string     `json:"-"`
	Role         Role       `json:"role"`
	Banned       bool       `json:"banned"`
	BannedAt     *time.Time `json:"banned_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) Initials() string {
	var b strings.Builder
	for _, name := range []string{u.FirstName, u.LastName} {
		for _, r := range name {
			b.WriteRune(unicode.ToUpper(r))
			break
		}
	}
	return b.String()
}

// ActiveForAuthentication is false while the user is banned.
func (u *User) ActiveForAuthentication() bool {
	return !u.Banned
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (u *User) Validate() ValidationErrors {
	v := &validator{}

	if v.presence("email", u.Email) {
		if addr, err := mail.ParseAddress(u.Email); err != nil || addr.Address != u.Email {
			v.add("email", ReasonInvalid)
		}
	}
	if v.presence("username", u.Username) {
		v.length("username", u.Username, 3, 50)
		if !usernamePattern.MatchString(u.Username) {
			v.add("username", ReasonInvalid)
		}
	}
	if v.presence("first_name", u.FirstName) {
		v.length("first_name", u.FirstName, 2, 50)
	}
	if v.presence("last_name", u.LastName) {
		v.length("last_name", u.LastName, 2, 50)
	}
	v.inclusion("role", u.Role.Valid())

	return v.errs
}

// ValidatePassword checks the plaintext password before hashing.
func ValidatePassword(password string) ValidationErrors {
	v := &validator{}
	if v.presence("password", password) {
		v.length("password", password, 6, 128)
	}
	return v.errs
}
