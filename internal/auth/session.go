// Package auth implements session tokens and the GitHub OAuth flow.
package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/snatchdl/snatch/internal/domain"
)

// CookieName is the session cookie the browser carries between requests.
const CookieName = "token"

// Claims is the signed session payload.
type Claims struct {
	UserID   int64  `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies signed session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessions creates a session manager. secure controls the cookie's
// Secure flag; enable it whenever the service sits behind TLS.
func NewSessions(secret string, ttl time.Duration, secure bool) *Sessions {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Sessions{secret: []byte(secret), ttl: ttl, secure: secure}
}

// Token signs a session token for the user.
func (s *Sessions) Token(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token, returning the session user.
func (s *Sessions) Verify(tokenString string) (*domain.User, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	return &domain.User{ID: claims.UserID, Username: claims.Username}, nil
}

// FromRequest extracts and verifies the session from a request, checking
// the Authorization header first and the session cookie second.
func (s *Sessions) FromRequest(r *http.Request) (*domain.User, error) {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return s.Verify(strings.TrimPrefix(header, "Bearer "))
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return nil, domain.ErrUnauthorized
	}
	return s.Verify(cookie.Value)
}

// NewCookie builds the session cookie for a signed token.
func (s *Sessions) NewCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie builds an expired cookie that removes the session.
func (s *Sessions) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
