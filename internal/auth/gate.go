package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"collab-realtime/internal/models"
)

// TokenValidator resolves a bearer credential to a user id.
type TokenValidator interface {
	UserIDFromToken(token string) (string, *Claims, error)
}

// Gate authenticates connection attempts and enforces the per-user
// connection cap. The counter it keeps is provisional: it is only used for
// the cap check and is reconciled against the live registry by the sweep.
type Gate struct {
	tokens   TokenValidator
	profiles *ProfileCache
	maxConns int
	log      *slog.Logger

	mu     sync.Mutex
	counts map[string]int
}

func NewGate(tokens TokenValidator, profiles *ProfileCache, maxConns int, log *slog.Logger) *Gate {
	return &Gate{
		tokens:   tokens,
		profiles: profiles,
		maxConns: maxConns,
		log:      log,
		counts:   make(map[string]int),
	}
}

// Authenticate validates the credential and admits one more connection for
// the user. Every failure is a *HandshakeError.
func (g *Gate) Authenticate(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, reject(ReasonTokenRequired, nil)
	}

	userID, claims, err := g.tokens.UserIDFromToken(token)
	if err != nil {
		if errors.Is(err, ErrMissingUserID) {
			return nil, reject(ReasonMissingUserID, err)
		}
		return nil, reject(ReasonInvalidToken, err)
	}

	profile, err := g.profiles.Get(ctx, userID)
	if err != nil {
		g.log.Warn("Profile lookup failed during handshake", "user_id", userID, "error", err)
		return nil, reject(ReasonProfileNotFound, err)
	}

	if !g.admit(userID) {
		g.log.Warn("Connection cap reached", "user_id", userID, "max", g.maxConns)
		return nil, reject(ReasonMaxConnections, nil)
	}

	return &models.Identity{
		UserID:  userID,
		Role:    claims.Role,
		Profile: *profile,
	}, nil
}

func (g *Gate) admit(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.counts[userID] >= g.maxConns {
		return false
	}
	g.counts[userID]++
	return true
}

// Release undoes one admission. The count never goes below zero and the
// entry is dropped when it reaches zero.
func (g *Gate) Release(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.counts[userID]
	if !ok {
		return
	}
	if n <= 1 {
		delete(g.counts, userID)
		return
	}
	g.counts[userID] = n - 1
}

func (g *Gate) Count(userID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counts[userID]
}

// Reconcile deletes counter entries for users with no live connection and
// returns the ids it removed.
func (g *Gate) Reconcile(isLive func(userID string) bool) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	var removed []string
	for userID := range g.counts {
		if !isLive(userID) {
			delete(g.counts, userID)
			removed = append(removed, userID)
		}
	}
	return removed
}
