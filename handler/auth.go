package handler

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

const tokenCookie = "token"

type userKey struct{}

// UserID returns the authenticated user stored on ctx by requireUser.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey{}).(string)
	return id
}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

var errNoToken = errors.New("no token")

// bearerToken reads the token from the Authorization header, falling back
// to the token cookie set by the web client.
func bearerToken(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, tok, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(tok) == "" {
			return "", errNoToken
		}
		return strings.TrimSpace(tok), nil
	}
	if c, err := r.Cookie(tokenCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errNoToken
}

// userFromToken verifies an HS256 token and extracts the user id from its
// "id" claim, or "sub" when "id" is absent.
func userFromToken(raw string, secret []byte) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if id, ok := claims["id"].(string); ok && id != "" {
		return id, nil
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token carries no user id")
	}
	return sub, nil
}

func (h *Handler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := bearerToken(r)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "not authorized, no token")
			return
		}
		userID, err := userFromToken(raw, h.secret)
		if err != nil {
			writeErr(w, http.StatusUnauthorized, "not authorized, token failed")
			return
		}
		next(w, r.WithContext(withUser(r.Context(), userID)))
	}
}

const apiKeyHeader = "X-API-KEY"

// requirePaymentKey admits only the payment collaborator, identified by a
// shared key in the X-API-KEY header. User tokens are not accepted.
func (h *Handler) requirePaymentKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(apiKeyHeader)
		if len(h.paymentKey) == 0 || key == "" ||
			subtle.ConstantTimeCompare([]byte(key), h.paymentKey) != 1 {
			writeErr(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next(w, r)
	}
}
