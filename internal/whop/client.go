package whop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the Whop membership platform: OAuth code exchange, the
// authenticated-identity endpoint and per-request membership verification.
type Client struct {
	clientID     string
	clientSecret string
	apiKey       string
	apiBaseURL   string
	oauthBaseURL string
	redirectURI  string
	httpClient   *http.Client
}

type Config struct {
	ClientID     string
	ClientSecret string
	APIKey       string
	APIBaseURL   string
	OAuthBaseURL string
	RedirectURI  string
	Timeout      time.Duration
}

// DefaultConfig returns the production endpoints.
func DefaultConfig() Config {
	return Config{
		APIBaseURL:   "https://api.whop.com",
		OAuthBaseURL: "https://whop.com",
		Timeout:      10 * time.Second,
	}
}

func NewClient(config Config) *Client {
	if config.APIBaseURL == "" {
		config.APIBaseURL = "https://api.whop.com"
	}
	if config.OAuthBaseURL == "" {
		config.OAuthBaseURL = "https://whop.com"
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}
	return &Client{
		clientID:     config.ClientID,
		clientSecret: config.ClientSecret,
		apiKey:       config.APIKey,
		apiBaseURL:   config.APIBaseURL,
		oauthBaseURL: config.OAuthBaseURL,
		redirectURI:  config.RedirectURI,
		httpClient:   &http.Client{Timeout: config.Timeout},
	}
}

// User is the identity record returned by the platform.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AuthorizeURL builds the provider authorize URL carrying the given state.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", "read_user")
	q.Set("state", state)
	return c.oauthBaseURL + "/oauth/authorize?" + q.Encode()
}

// ExchangeCode swaps an authorization code for an access token. A single
// failure is terminal; no retry.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"code":          code,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"redirect_uri":  c.redirectURI,
		"grant_type":    "authorization_code",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBaseURL+"/oauth/token", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("token exchange returned status %d: %s", resp.StatusCode, string(detail))
	}

	var token struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("token response missing access_token")
	}
	return token.AccessToken, nil
}

// CurrentUser fetches the identity behind an access token.
func (c *Client) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	return c.fetchUser(ctx, c.apiBaseURL+"/api/v5/me", "Bearer "+accessToken)
}

// VerifyMembership checks that a user's subscription is still valid using the
// service API key. A (nil, nil) return means the platform rejected the user;
// a non-nil error means the check itself could not be performed.
func (c *Client) VerifyMembership(ctx context.Context, userID string) (*User, error) {
	u, err := c.fetchUser(ctx, c.apiBaseURL+"/api/v5/users/"+url.PathEscape(userID), "Bearer "+c.apiKey)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (c *Client) fetchUser(ctx context.Context, endpoint, authz string) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authz)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("user fetch returned status %d: %s", resp.StatusCode, string(detail))
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user response: %w", err)
	}
	if u.ID == "" {
		return nil, fmt.Errorf("user response missing id")
	}
	return &u, nil
}
