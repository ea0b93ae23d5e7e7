// Package auth resolves the calling user from a signed session token.
// Tokens are issued elsewhere; this package only verifies them.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Bharath-S-J/Intent-Chat/config"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

type contextKey string

const userIDKey contextKey = "user_id"

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Subject returns the user id, falling back to the standard sub claim.
func (c *Claims) Subject() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.RegisteredClaims.Subject
}

type Verifier struct {
	secret     []byte
	cookieName string
}

func NewVerifier(cfg config.JWTConfig) *Verifier {
	return &Verifier{secret: []byte(cfg.Secret), cookieName: cfg.CookieName}
}

// ValidateJWT checks the HS256 signature and expiry of tokenString.
func (v *Verifier) ValidateJWT(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject() == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// UserIDFromRequest reads the token from the Authorization header, the
// session cookie or the token query parameter, in that order.
func (v *Verifier) UserIDFromRequest(r *http.Request) (string, error) {
	token := tokenFromRequest(r, v.cookieName)
	if token == "" {
		return "", ErrMissingToken
	}
	claims, err := v.ValidateJWT(token)
	if err != nil {
		return "", err
	}
	return claims.Subject(), nil
}

// AuthMiddleware rejects unauthenticated requests and stores the caller id
// in the request context.
func (v *Verifier) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := v.UserIDFromRequest(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "Unauthorized - " + unauthorizedReason(err)})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func GetUserID(ctx context.Context) string {
	userID, _ := ctx.Value(userIDKey).(string)
	return userID
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func tokenFromRequest(r *http.Request, cookieName string) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookieName != "" {
		if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return r.URL.Query().Get("token")
}

func unauthorizedReason(err error) string {
	if errors.Is(err, ErrMissingToken) {
		return "No Token Provided"
	}
	return "Invalid Token"
}
