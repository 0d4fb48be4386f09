package application

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const minPasswordLength = 8

// Token is an issued bearer credential.
type Token struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// TokenClaims is the verified content of a bearer credential.
type TokenClaims struct {
	ID        string
	UserID    string
	Role      Role
	ExpiresAt time.Time
}

// TokenIssuer signs and verifies bearer credentials.
type TokenIssuer interface {
	Issue(ctx context.Context, principal Principal) (Token, error)
	Parse(ctx context.Context, value string) (TokenClaims, error)
}

// RevocationList remembers logged-out token ids until they would have expired anyway.
type RevocationList interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthService coordinates signup, login, token authentication, and logout.
type AuthService struct {
	users       UserRepository
	hasher      PasswordHasher
	tokens      TokenIssuer
	revocations RevocationList
	idGenerator func() string
	now         func() time.Time
	logger      *zap.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, revocations RevocationList, idGenerator func() string, now func() time.Time) *AuthService {
	return NewAuthServiceWithLogger(users, hasher, tokens, revocations, idGenerator, now, nil)
}

// NewAuthServiceWithLogger constructs an AuthService with a specified logger.
func NewAuthServiceWithLogger(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, revocations RevocationList, idGenerator func() string, now func() time.Time, logger *zap.Logger) *AuthService {
	if hasher == nil {
		hasher = NewArgon2idHasher()
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuthService{
		users:       users,
		hasher:      hasher,
		tokens:      tokens,
		revocations: revocations,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *AuthService) loggerWith(ctx context.Context, operation string, fields ...zap.Field) *zap.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, fields...)
}

func (s *AuthService) ready() error {
	if s == nil {
		return fmt.Errorf("AuthService is nil")
	}
	if s.users == nil || s.tokens == nil {
		return fmt.Errorf("auth dependencies not configured")
	}
	return nil
}

// Signup registers an account and issues its first token.
func (s *AuthService) Signup(ctx context.Context, params SignupParams) (result AuthResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Signup", zap.String("email", email))
	defer func() {
		logOutcome(logger, err, "signup failed", "signup succeeded",
			zap.String("user_id", result.User.ID), zap.Stringer("role", result.User.Role))
	}()

	name := sanitizeText(params.Name)
	vErr := &ValidationError{}
	if !validEmail(email) {
		vErr.add("email", "email must be a valid address")
	}
	if utf8.RuneCountInString(params.Password) < minPasswordLength {
		vErr.add("password", fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	switch {
	case name == "":
		vErr.add("name", "name is required")
	case utf8.RuneCountInString(name) > maxUserNameLength:
		vErr.add("name", fmt.Sprintf("name must be at most %d characters", maxUserNameLength))
	}
	role, roleErr := ParseRole(params.Role)
	if roleErr != nil {
		vErr.add("role", "role must be counselor or client")
	}
	if err = vErr.asError(); err != nil {
		return
	}

	var exists bool
	if exists, err = s.users.EmailExists(ctx, email); err != nil {
		return
	}
	if exists {
		err = ErrEmailAlreadyExists
		return
	}

	var hash string
	if hash, err = s.hasher.Hash(params.Password); err != nil {
		return
	}

	now := s.now()
	user := User{
		ID:        s.idGenerator(),
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err = s.users.CreateUser(ctx, UserCredentials{User: user, PasswordHash: hash}); err != nil {
		if isDuplicate(err) {
			err = ErrEmailAlreadyExists
		}
		return
	}

	result, err = s.issue(ctx, user)
	return
}

// Login verifies credentials and issues a token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, params LoginParams) (result AuthResult, err error) {
	if err = s.ready(); err != nil {
		return
	}

	email := normalizeEmail(params.Email)
	logger := s.loggerWith(ctx, "Login", zap.String("email", email))
	defer func() {
		logOutcome(logger, err, "login failed", "login succeeded", zap.String("user_id", result.User.ID))
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var creds UserCredentials
	creds, err = s.users.GetUserCredentialsByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			err = ErrInvalidCredentials
		}
		return
	}

	if verifyErr := s.hasher.Verify(creds.PasswordHash, params.Password); verifyErr != nil {
		err = ErrInvalidCredentials
		return
	}

	result, err = s.issue(ctx, creds.User)
	return
}

func (s *AuthService) issue(ctx context.Context, user User) (AuthResult, error) {
	token, err := s.tokens.Issue(ctx, Principal{UserID: user.ID, Role: user.Role})
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{User: user, Token: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

// Authenticate resolves a bearer token to the principal it was issued for.
// Any verification failure, revoked token, or vanished account yields
// ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, value string) (Principal, error) {
	if err := s.ready(); err != nil {
		return Principal{}, err
	}

	claims, err := s.verify(ctx, value)
	if err != nil {
		return Principal{}, err
	}

	user, err := resolveCaller(ctx, s.users, Principal{UserID: claims.UserID})
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: user.ID, Role: user.Role}, nil
}

// Logout revokes the token until its natural expiry.
func (s *AuthService) Logout(ctx context.Context, value string) (err error) {
	if err = s.ready(); err != nil {
		return
	}

	logger := s.loggerWith(ctx, "Logout")
	var claims TokenClaims
	defer func() {
		logOutcome(logger, err, "logout failed", "logout succeeded",
			zap.String("user_id", claims.UserID), zap.String("token_id", claims.ID))
	}()

	if claims, err = s.verify(ctx, value); err != nil {
		return
	}
	if s.revocations == nil {
		return
	}
	err = s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt)
	return
}

func (s *AuthService) verify(ctx context.Context, value string) (TokenClaims, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return TokenClaims{}, ErrUnauthorized
	}
	claims, err := s.tokens.Parse(ctx, value)
	if err != nil {
		s.loggerWith(ctx, "verify").Debug("token rejected", zap.Error(err))
		return TokenClaims{}, ErrUnauthorized
	}
	if !claims.ExpiresAt.IsZero() && !s.now().Before(claims.ExpiresAt) {
		return TokenClaims{}, ErrUnauthorized
	}
	if s.revocations != nil && claims.ID != "" {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return TokenClaims{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return TokenClaims{}, ErrUnauthorized
		}
	}
	return claims, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	if email == "" || len(email) > 254 {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
