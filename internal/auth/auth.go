package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"municipality/internal/cache"
	"municipality/internal/config"
	"municipality/internal/policy"
)

// Claims are the access token claims
type Claims struct {
	AccountID  uint     `json:"account_id"`
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
	CitizenID  uint     `json:"citizen_id,omitempty"`
	EmployeeID uint     `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal converts the claims into the caller identity used by the policy
func (c *Claims) Principal() policy.Principal {
	return policy.Principal{
		AccountID:  c.AccountID,
		CitizenID:  c.CitizenID,
		EmployeeID: c.EmployeeID,
		Email:      c.Email,
		Roles:      c.Roles,
	}
}

// Service issues, validates and revokes access tokens
type Service struct {
	config  config.AuthConfig
	revoked cache.Cache
	now     func() time.Time
}

// NewService creates a token service; revoked token ids are kept in revoked
func NewService(cfg config.AuthConfig, revoked cache.Cache) *Service {
	return &Service{config: cfg, revoked: revoked, now: time.Now}
}

// GenerateToken signs a token for principal and returns it with its expiry
func (s *Service) GenerateToken(principal policy.Principal) (string, time.Time, error) {
	now := s.now()
	expirationTime := now.Add(s.config.TokenTTL)
	subject := fmt.Sprintf("%d", principal.AccountID)

	claims := &Claims{
		AccountID:  principal.AccountID,
		Email:      principal.Email,
		Roles:      principal.Roles,
		CitizenID:  principal.CitizenID,
		EmployeeID: principal.EmployeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.config.Issuer,
			Subject:   subject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "failed to sign token")
	}

	return tokenString, expirationTime, nil
}

// ValidateToken parses tokenString and rejects revoked tokens
func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	if claims.ID != "" {
		_, revoked, err := s.revoked.Get(ctx, revokedKey(claims.ID))
		if err != nil {
			return nil, errors.Wrap(err, "failed to check token revocation")
		}
		if revoked {
			return nil, errors.New("token has been revoked")
		}
	}

	return claims, nil
}

// Revoke blocks the token id until the token would have expired anyway
func (s *Service) Revoke(ctx context.Context, claims *Claims) error {
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Set(ctx, revokedKey(claims.ID), "1", ttl)
}

func revokedKey(id string) string {
	return "auth:revoked:" + id
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
