package models

import "time"

// User is the credential row used by login/register.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the public view of a user attached to connections and messages.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url"`
}

// Identity is resolved once at handshake and never changes for the
// lifetime of the connection.
type Identity struct {
	UserID  string
	Role    string
	Profile Profile
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30"`
	FullName string `json:"full_name" validate:"max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token   string  `json:"token"`
	Profile Profile `json:"user"`
}
