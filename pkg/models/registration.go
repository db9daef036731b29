package models

import (
	"log/slog"
	"strings"
	"time"
)

// RegistrationForm is the payload collected by the registration screen.
type RegistrationForm struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	FirstName            string `json:"first_name,omitempty"`
	LastName             string `json:"last_name,omitempty"`
}

// LogValue keeps passwords out of logs whatever handler is installed.
func (f RegistrationForm) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("username", f.Username),
		slog.String("email", f.Email),
	)
}

// Normalized trims identifiers. Passwords are kept byte for byte.
func (f RegistrationForm) Normalized() RegistrationForm {
	f.Username = strings.TrimSpace(f.Username)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	return f
}

// RegistrationResult describes the account created by a successful registration.
type RegistrationResult struct {
	UserID         string    `json:"user_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	CreatedAt      time.Time `json:"created_at"`
	RecoveryPhrase string    `json:"recovery_phrase,omitempty"`
}
