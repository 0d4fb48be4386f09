package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned for tokens that fail signature, expiry, or shape checks.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrMissingSecret is returned when an issuer is built without a signing secret.
	ErrMissingSecret = errors.New("auth: signing secret is required")
)

const issuerName = "counseling-diary"

// Claims are the JWT claims carried by every access token.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token and the values it was signed with.
type IssuedToken struct {
	Value     string
	ID        string
	UserID    string
	Role      string
	ExpiresAt time.Time
}

// Issuer signs and verifies tokens with a shared HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer returns an issuer whose tokens live for ttl.
func NewIssuer(secret string, ttl time.Duration, now func() time.Time) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// TTL reports the lifetime of issued tokens.
func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token for userID with a fresh random id.
func (i *Issuer) Issue(userID, role string) (IssuedToken, error) {
	now := i.now().UTC().Truncate(time.Second)
	expires := now.Add(i.ttl)
	id := uuid.NewString()

	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    issuerName,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return IssuedToken{Value: signed, ID: id, UserID: userID, Role: role, ExpiresAt: expires}, nil
}

// Parse verifies value and returns its claims.
func (i *Issuer) Parse(value string) (IssuedToken, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(value, claims,
		func(token *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return IssuedToken{}, ErrInvalidToken
	}
	return IssuedToken{
		Value:     value,
		ID:        claims.ID,
		UserID:    claims.Subject,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
