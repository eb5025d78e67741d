package auth

import (
	"errors"
	"net/http"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingUserID      = errors.New("invalid user ID in token")
)

// Handshake rejection reasons reported to the connecting client.
const (
	ReasonTokenRequired   = "Authentication token required"
	ReasonInvalidToken    = "Invalid authentication token"
	ReasonMissingUserID   = "Invalid token: missing user id"
	ReasonProfileNotFound = "User profile not found"
	ReasonMaxConnections  = "Maximum connections reached"
)

// HandshakeError rejects a connection attempt before it enters the registry.
type HandshakeError struct {
	Reason string
	Status int
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *HandshakeError) Unwrap() error { return e.Err }

func reject(reason string, err error) *HandshakeError {
	status := http.StatusUnauthorized
	if reason == ReasonMaxConnections {
		status = http.StatusTooManyRequests
	}
	return &HandshakeError{Reason: reason, Status: status, Err: err}
}
