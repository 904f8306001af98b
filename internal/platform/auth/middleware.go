package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

type contextKey string

const (
	EmailKey contextKey = "session_email"
	RoleKey  contextKey = "session_role"
)

const (
	RolePatient = "patient"
	RoleDoctor  = "doctor"
)

// SessionCookie is read when no Authorization header is present.
const SessionCookie = "carepilot_session"

const DevEmail = "dev@carepilot.local"

// Claims carried by a session token. The subject is the user's email.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IssueToken signs a session token for email with the given role.
func IssueToken(key []byte, email, role string, ttl time.Duration) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("signing key is required")
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Role:  role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseToken verifies an HS256 session token and returns its claims.
func ParseToken(key []byte, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Email == "" {
		claims.Email = claims.Subject
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("token has no email")
	}
	if claims.Role == "" {
		claims.Role = RolePatient
	}
	return claims, nil
}

func tokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			return "", fmt.Errorf("invalid authorization format")
		}
		return strings.TrimSpace(parts[1]), nil
	}
	if ck, err := r.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value, nil
	}
	return "", nil
}

// SessionMiddleware requires a valid session token from the Authorization
// header or the session cookie.
func SessionMiddleware(key []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenStr, err := tokenFromRequest(c.Request())
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}
			if tokenStr == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session")
			}
			claims, err := ParseToken(key, tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			setIdentity(c, claims.Email, claims.Role)
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as a dev doctor.
// A presented token is still verified when a key is configured.
func DevAuthMiddleware(key []byte) echo.MiddlewareFunc {
	strict := SessionMiddleware(key)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		verified := strict(next)
		return func(c echo.Context) error {
			tokenStr, _ := tokenFromRequest(c.Request())
			if tokenStr != "" && len(key) > 0 {
				return verified(c)
			}
			setIdentity(c, DevEmail, RoleDoctor)
			return next(c)
		}
	}
}

func setIdentity(c echo.Context, email, role string) {
	c.SetRequest(c.Request().WithContext(WithIdentity(c.Request().Context(), email, role)))
}

// WithIdentity returns ctx carrying the session email and role.
func WithIdentity(ctx context.Context, email, role string) context.Context {
	ctx = context.WithValue(ctx, EmailKey, email)
	return context.WithValue(ctx, RoleKey, role)
}

func EmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(EmailKey).(string)
	return email
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(RoleKey).(string)
	return role
}
