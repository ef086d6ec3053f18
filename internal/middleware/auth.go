package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"manifestun/internal/whop"
)

// Cookie names shared by the callback handler and the gate.
const (
	AccessTokenCookie = "whop_access_token"
	UserIDCookie      = "whop_user_id"
)

// Session is the request-scoped auth context populated by the gate.
type Session struct {
	WhopUserID  string
	AccessToken string
}

type sessionKey struct{}

// WithSession returns ctx carrying the given session.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the session placed by RequireAuth.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// MembershipVerifier revalidates a user's subscription on every request.
type MembershipVerifier interface {
	VerifyMembership(ctx context.Context, userID string) (*whop.User, error)
}

type AuthMiddleware struct {
	verifier MembershipVerifier
}

func NewAuthMiddleware(verifier MembershipVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth guards a protected operation. Both session cookies must be
// present and the membership must verify remotely; there is no local cache
// of verification results.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := r.Cookie(AccessTokenCookie)
		if err != nil || token.Value == "" {
			unauthorized(w, "No valid session")
			return
		}
		userID, err := r.Cookie(UserIDCookie)
		if err != nil || userID.Value == "" {
			unauthorized(w, "No valid session")
			return
		}

		user, err := m.verifier.VerifyMembership(r.Context(), userID.Value)
		if err != nil {
			slog.Warn("membership verification failed", slog.Any("err", err))
			unauthorized(w, "Invalid or expired membership")
			return
		}
		if user == nil {
			unauthorized(w, "Invalid or expired membership")
			return
		}

		ctx := WithSession(r.Context(), Session{
			WhopUserID:  userID.Value,
			AccessToken: token.Value,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
