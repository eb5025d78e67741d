package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"collab-realtime/internal/config"
	"collab-realtime/internal/mocks"
	"collab-realtime/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-with-enough-entropy"

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{Secret: testSecret, ExpiresIn: time.Hour, Issuer: "test"}
}

func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestService_IssuedTokenRoundTrip(t *testing.T) {
	req := require.New(t)
	svc := NewService(nil, jwtConfig())

	token, err := svc.generateToken(&models.User{ID: "u-1", Username: "ada"})
	req.NoError(err)

	userID, claims, err := svc.UserIDFromToken(token)
	req.NoError(err)
	req.Equal("u-1", userID)
	req.Equal("ada", claims.Username)
	req.Equal("authenticated", claims.Role)
}

func TestService_UserIDFallsBackToUserIDClaim(t *testing.T) {
	req := require.New(t)
	svc := NewService(nil, jwtConfig())
	token := signToken(t, testSecret, &Claims{
		UserID:           "legacy-user",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute))},
	})

	userID, _, err := svc.UserIDFromToken(token)

	req.NoError(err)
	req.Equal("legacy-user", userID)
}

func TestService_RejectsTokenWithoutUserID(t *testing.T) {
	svc := NewService(nil, jwtConfig())
	token := signToken(t, testSecret, &Claims{Username: "nobody"})

	_, _, err := svc.UserIDFromToken(token)

	require.ErrorIs(t, err, ErrMissingUserID)
}

func TestService_RejectsBadSignatureAndExpiry(t *testing.T) {
	req := require.New(t)
	svc := NewService(nil, jwtConfig())

	forged := signToken(t, "another-secret", &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u-1"}})
	_, err := svc.ValidateToken(forged)
	req.Error(err)

	expired := signToken(t, testSecret, &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}})
	_, err = svc.ValidateToken(expired)
	req.ErrorIs(err, jwt.ErrTokenExpired)

	_, err = svc.ValidateToken("not-a-jwt")
	req.Error(err)
}

func TestService_Login(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	svc := NewService(users, jwtConfig())

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	req.NoError(err)
	stored := &models.User{ID: "u-7", Username: "grace", Email: "grace@example.com", PasswordHash: string(hash)}

	// Given the user exists
	users.EXPECT().GetUserByEmail(gomock.Any(), "grace@example.com").Return(stored, nil).Times(2)

	// When the right password is given
	resp, err := svc.Login(context.Background(), &models.LoginRequest{Email: "grace@example.com", Password: "correct horse"})
	req.NoError(err)
	req.Equal("u-7", resp.Profile.ID)
	userID, _, err := svc.UserIDFromToken(resp.Token)
	req.NoError(err)
	req.Equal("u-7", userID)

	// When the password is wrong
	_, err = svc.Login(context.Background(), &models.LoginRequest{Email: "grace@example.com", Password: "wrong"})
	req.ErrorIs(err, ErrInvalidCredentials)
}

func TestService_LoginUnknownUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	svc := NewService(users, jwtConfig())
	users.EXPECT().GetUserByEmail(gomock.Any(), "who@example.com").Return(nil, errors.New("no rows"))

	_, err := svc.Login(context.Background(), &models.LoginRequest{Email: "who@example.com", Password: "whatever"})

	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestService_RegisterValidates(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	users := mocks.NewMockUserRepository(ctrl)
	svc := NewService(users, jwtConfig())

	// Invalid input never reaches the store
	_, err := svc.Register(context.Background(), &models.RegisterRequest{Username: "ab", Email: "bad", Password: "short"})
	req.Error(err)

	users.EXPECT().CreateUser(gomock.Any(), gomock.Any()).Return(&models.User{ID: "u-9", Username: "linus"}, nil)
	resp, err := svc.Register(context.Background(), &models.RegisterRequest{
		Username: "  linus ", FullName: "Linus T", Email: "linus@example.com", Password: "longenough",
	})
	req.NoError(err)
	req.Equal("u-9", resp.Profile.ID)
	req.Equal("Linus T", resp.Profile.FullName)
}
