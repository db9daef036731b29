package acsclient

import "time"

const (
	CreateUserPath    = "/v1/users/create.json"
	IdempotencyHeader = "X-Idempotency-Key"
	AppKeyParam       = "key"

	StatusOK   = "ok"
	StatusFail = "fail"
)

// CreateUserRequest is the body of a user-create call.
type CreateUserRequest struct {
	Username             string `json:"username"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	FirstName            string `json:"first_name,omitempty"`
	LastName             string `json:"last_name,omitempty"`
}

// Envelope wraps every response: meta carries the status, response the data.
type Envelope struct {
	Meta     Meta          `json:"meta"`
	Response *UserResponse `json:"response,omitempty"`
}

type Meta struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
	Method  string `json:"method_name,omitempty"`
}

type UserResponse struct {
	Users          []User `json:"users"`
	RecoveryPhrase string `json:"recovery_phrase,omitempty"`
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
