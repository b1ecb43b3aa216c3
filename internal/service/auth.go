package service

import (
	"crypto/subtle"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/octobees/payadvice/internal/auth"
)

// ErrInvalidCredentials is returned for any failed login.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AuthService validates the operator account and issues session tokens.
type AuthService struct {
	username     string
	passwordHash []byte
	jwt          *auth.JWTManager
}

// NewAuthService constructs an AuthService for the configured operator.
// An empty password hash disables login entirely.
func NewAuthService(username, passwordHash string, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{username: username, passwordHash: []byte(passwordHash), jwt: jwtManager}
}

// Enabled reports whether an operator password has been configured.
func (s *AuthService) Enabled() bool {
	return len(s.passwordHash) > 0
}

// Login validates credentials and returns a JWT.
func (s *AuthService) Login(username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", errors.New("username and password must not be empty")
	}
	if !s.Enabled() {
		return "", ErrInvalidCredentials
	}

	if subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) != 1 {
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.jwt.GenerateToken(s.username, auth.RoleOperator)
}

// HashPassword produces a bcrypt hash suitable for OPERATOR_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
