package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"collab-realtime/internal/config"
	"collab-realtime/internal/database"
	"collab-realtime/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

// Claims is the token body. Tokens from an external identity provider carry
// the user id in "sub"; tokens issued here also carry "user_id".
type Claims struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ResolvedUserID returns the user id carried by the token.
func (c *Claims) ResolvedUserID() string {
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	return c.UserID
}

type Service struct {
	db  database.UserRepository
	cfg config.JWTConfig
}

func NewService(db database.UserRepository, cfg config.JWTConfig) *Service {
	return &Service{
		db:  db,
		cfg: cfg,
	}
}

func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.LoginResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid registration: %w", err)
	}

	user, err := s.db.CreateUser(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.LoginResponse{
		Token:   token,
		Profile: models.Profile{ID: user.ID, Username: user.Username, FullName: req.FullName},
	}, nil
}

func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.db.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &models.LoginResponse{
		Token:   token,
		Profile: models.Profile{ID: user.ID, Username: user.Username},
	}, nil
}

// ValidateToken checks signature, algorithm and expiry.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// UserIDFromToken validates the token and extracts the user id.
func (s *Service) UserIDFromToken(tokenString string) (string, *Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return "", nil, err
	}

	userID := claims.ResolvedUserID()
	if userID == "" {
		return "", claims, ErrMissingUserID
	}
	return userID, claims, nil
}

func (s *Service) generateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Role:     "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.ExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}
