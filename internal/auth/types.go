package auth

import (
	"regexp"
	"time"
)

// usernamePattern accepts 1-150 letters, digits and the characters
// "_", ".", "@", "+" and "-", so e-mail addresses work as usernames.
var usernamePattern = regexp.MustCompile(`^[\pL\pN_.@+-]{1,150}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Actor returns the user as a decision-function subject.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// Session is the result of a successful register or login.
type Session struct {
	User      *User     `json:"user"`
	Token     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}
