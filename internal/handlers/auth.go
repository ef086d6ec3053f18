package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"manifestun/internal/middleware"
	"manifestun/internal/models"
	"manifestun/internal/store"
	"manifestun/internal/whop"
)

const sessionMaxAge = 7 * 24 * time.Hour

// IdentityProvider is the slice of the membership platform the auth flow uses.
type IdentityProvider interface {
	AuthorizeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	CurrentUser(ctx context.Context, accessToken string) (*whop.User, error)
}

type AuthHandler struct {
	store         store.Store
	provider      IdentityProvider
	stateSecret   []byte
	secureCookies bool
}

func NewAuthHandler(st store.Store, provider IdentityProvider, stateSecret []byte, secureCookies bool) *AuthHandler {
	return &AuthHandler{store: st, provider: provider, stateSecret: stateSecret, secureCookies: secureCookies}
}

// Login redirects the browser to the provider authorize URL. The experience
// id rides along in a signed state token so the callback can trust it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	experienceID := r.URL.Query().Get("experience_id")
	if experienceID == "" {
		experienceID = "default"
	}
	state, err := h.signState(experienceID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Could not start login")
		return
	}
	http.Redirect(w, r, h.provider.AuthorizeURL(state), http.StatusFound)
}

// Callback finishes the OAuth flow: exchanges the code, fetches the remote
// identity, upserts the local profile and issues the session cookies.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "No authorization code provided")
		return
	}

	ctx := r.Context()
	accessToken, err := h.provider.ExchangeCode(ctx, code)
	if err != nil {
		slog.Error("token exchange failed", slog.Any("err", err))
		writeErrorDetails(w, http.StatusInternalServerError, "Authentication failed", err.Error())
		return
	}

	user, err := h.provider.CurrentUser(ctx, accessToken)
	if err == nil && user == nil {
		err = errors.New("identity endpoint rejected the token")
	}
	if err != nil {
		slog.Error("identity fetch failed", slog.Any("err", err))
		writeErrorDetails(w, http.StatusInternalServerError, "Authentication failed", err.Error())
		return
	}

	profile, err := h.store.GetUserByWhopID(ctx, user.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		profile = newProfile(user)
		if err := h.store.CreateUser(ctx, profile); err != nil {
			slog.Error("profile creation failed", slog.Any("err", err))
			writeErrorDetails(w, http.StatusInternalServerError, "Authentication failed", err.Error())
			return
		}
	case err != nil:
		slog.Error("profile lookup failed", slog.Any("err", err))
		writeErrorDetails(w, http.StatusInternalServerError, "Authentication failed", err.Error())
		return
	default:
		if err := h.store.TouchLastActive(ctx, user.ID); err != nil {
			slog.Error("last_active update failed", slog.Any("err", err))
			writeErrorDetails(w, http.StatusInternalServerError, "Authentication failed", err.Error())
			return
		}
	}

	// Record keeping only; the gate re-verifies remotely on every request.
	if err := h.store.UpsertSubscription(ctx, &models.Subscription{
		UserID: profile.ID,
		Status: "active",
	}); err != nil {
		slog.Warn("subscription upsert failed", slog.Any("err", err))
	}

	h.setSessionCookie(w, middleware.AccessTokenCookie, accessToken)
	h.setSessionCookie(w, middleware.UserIDCookie, user.ID)

	http.Redirect(w, r, "/customer/"+h.parseState(r.URL.Query().Get("state")), http.StatusFound)
}

// Logout clears both session cookies. POST answers JSON; GET redirects home.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w, middleware.AccessTokenCookie)
	h.clearSessionCookie(w, middleware.UserIDCookie)

	if r.Method == http.MethodGet {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Logged out successfully"})
}

func newProfile(user *whop.User) *models.UserProfile {
	displayName := user.Username
	if displayName == "" {
		displayName = user.Email
	}
	if displayName == "" {
		displayName = "Seeker"
	}
	profile := &models.UserProfile{
		WhopUserID:   user.ID,
		DisplayName:  &displayName,
		CurrentPhase: 1,
		Level:        "Seeker",
		Badges:       models.Badges{},
	}
	if user.Email != "" {
		email := user.Email
		profile.Email = &email
	}
	return profile
}

func (h *AuthHandler) signState(experienceID string) (string, error) {
	claims := jwt.MapClaims{
		"exp_id": experienceID,
		"exp":    time.Now().Add(10 * time.Minute).Unix(),
		"iat":    time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(h.stateSecret)
}

// parseState recovers the routing id from the signed state; anything invalid
// falls back to the default experience.
func (h *AuthHandler) parseState(state string) string {
	if state == "" {
		return "default"
	}
	token, err := jwt.Parse(state, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return h.stateSecret, nil
	})
	if err != nil || !token.Valid {
		return "default"
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "default"
	}
	experienceID, ok := claims["exp_id"].(string)
	if !ok || experienceID == "" {
		return "default"
	}
	return experienceID
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(sessionMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
