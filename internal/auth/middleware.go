// Package auth gives every browser an anonymous session id carried in a
// signed cookie. It identifies sessions; it does not authenticate users.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

// CookieName is the name of the session cookie.
const CookieName = "describer_session"

const issuer = "describer"

// GetSessionID retrieves the session id from context.
func GetSessionID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if value, ok := ctx.Value(sessionIDKey).(string); ok && value != "" {
		return value, true
	}
	return "", false
}

// SessionID retrieves the session id stored on a gin context.
func SessionID(c *gin.Context) string {
	id, _ := GetSessionID(c.Request.Context())
	return id
}

// Options configures the session cookie.
type Options struct {
	Secret []byte
	TTL    time.Duration
	Secure bool
}

// SessionMiddleware resolves the session id from the cookie, minting a new
// session when the cookie is missing, tampered with or expired. The cookie is
// re-issued on every request so idle expiry slides.
func SessionMiddleware(opts Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := ""
		if cookie, err := c.Cookie(CookieName); err == nil {
			if id, err := ParseToken(opts.Secret, cookie); err == nil {
				sessionID = id
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
		}

		token, err := IssueToken(opts.Secret, sessionID, opts.TTL)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unable to start session"})
			return
		}
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     CookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(opts.TTL.Seconds()),
			HttpOnly: true,
			Secure:   opts.Secure,
			SameSite: http.SameSiteLaxMode,
		})

		ctx := context.WithValue(c.Request.Context(), sessionIDKey, sessionID)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(sessionIDKey), sessionID)

		c.Next()
	}
}

// IssueToken signs a session token for sessionID valid for ttl.
func IssueToken(secret []byte, sessionID string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("missing session secret")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   sessionID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates a session token and returns its session id.
func ParseToken(secret []byte, tokenString string) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("missing session secret")
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(strings.TrimSpace(tokenString), claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil || !token.Valid {
		return "", errors.New("invalid session token")
	}
	if _, err := uuid.Parse(claims.Subject); err != nil {
		return "", errors.New("invalid session id")
	}
	return claims.Subject, nil
}
