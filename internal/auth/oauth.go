package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPIURL = "https://api.github.com"

// GitHubUser is the part of GitHub's /user response used to seed a new
// minispace profile.
type GitHubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Bio   string `json:"bio"`
	Blog  string `json:"blog"`
}

// GitHubProvider runs the OAuth authorization code flow against GitHub.
//
// The state passed to AuthURL must be stored by the caller (a short-lived
// cookie) and compared with the state GitHub sends back to the callback.
//
// THE FLOW:
//
//	browser ── /auth/github/login ──► minispace sets state cookie
//	        ◄── 302 to github.com/login/oauth/authorize?state=...
//	browser ── user approves ──► github.com
//	        ◄── 302 to /auth/github/callback?code=...&state=...
//	minispace ── Exchange(code) ──► access token ──► GET api.github.com/user
//
// The code is single-use and short-lived; the access token never reaches
// the browser.
type GitHubProvider struct {
	config *oauth2.Config
	apiURL string
}

// NewGitHubProvider configures the flow. callbackURL must match the OAuth
// app's "Authorization callback URL" exactly.
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		apiURL: githubAPIURL,
	}
}

// AuthURL is where the browser is sent to approve the login.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for an access token and fetches the
// authenticated GitHub user with it.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// The client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user returned status %d", resp.StatusCode)
	}

	var user GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("auth: GitHub returned a user without an ID")
	}
	return &user, nil
}
