package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// GitHubUser is the profile subset needed to provision an account.
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
}

// GitHub drives the OAuth web flow against github.com.
type GitHub struct {
	httpClient   *http.Client
	clientID     string
	clientSecret string

	// Overridable in tests.
	AuthBase string
	APIBase  string
}

// NewGitHub creates a GitHub OAuth client.
func NewGitHub(clientID, clientSecret string) *GitHub {
	return &GitHub{
		httpClient:   &http.Client{Timeout: 15 * time.Second},
		clientID:     clientID,
		clientSecret: clientSecret,
		AuthBase:     "https://github.com",
		APIBase:      "https://api.github.com",
	}
}

// Configured reports whether OAuth credentials are present.
func (g *GitHub) Configured() bool {
	return g.clientID != "" && g.clientSecret != ""
}

// AuthorizeURL builds the login redirect target for the given callback.
func (g *GitHub) AuthorizeURL(redirectURI string) string {
	params := url.Values{}
	params.Set("client_id", g.clientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("scope", "read:user")
	params.Set("allow_signup", "true")
	return g.AuthBase + "/login/oauth/authorize?" + params.Encode()
}

// Exchange trades the callback code for an access token.
func (g *GitHub) Exchange(ctx context.Context, code string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     g.clientID,
		"client_secret": g.clientSecret,
		"code":          code,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.AuthBase+"/login/oauth/access_token", strings.NewReader(string(payload)))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("exchange oauth code: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if body.AccessToken == "" {
		if body.Error != "" {
			return "", fmt.Errorf("oauth exchange rejected: %s", body.Error)
		}
		return "", fmt.Errorf("no access token in response")
	}
	return body.AccessToken, nil
}

// FetchUser loads the authenticated user's profile.
func (g *GitHub) FetchUser(ctx context.Context, accessToken string) (*GitHubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.APIBase+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch github user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github api status %d", resp.StatusCode)
	}

	var user GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("decode github user: %w", err)
	}
	return &user, nil
}

// GithubID formats the numeric GitHub ID the way the user store keys it.
func (u *GitHubUser) GithubID() string {
	return strconv.FormatInt(u.ID, 10)
}
