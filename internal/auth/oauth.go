package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"studybuddy/internal/config"
	"studybuddy/internal/session"
)

// StateTTL bounds how long a login may sit at the provider
const StateTTL = 10 * time.Minute

var ErrInvalidState = errors.New("invalid or expired oauth state")

// Profile is what a provider tells us about the user
type Profile struct {
	Email     string
	Name      string
	AvatarURL string
}

// Provider is one configured OAuth login
type Provider struct {
	Name   string
	Config *oauth2.Config
	// Fetch loads the profile with an authorized client
	Fetch func(ctx context.Context, client *http.Client) (Profile, error)
}

// LoadProviders configures every provider whose client id is set.
// Callbacks land on <SITE_URL>/auth/oauth/<name>/callback.
func LoadProviders() map[string]*Provider {
	site := config.GetEnvOrDefault("SITE_URL", "http://localhost:8080")
	out := map[string]*Provider{}

	if id := config.GetEnvOrDefault("GOOGLE_CLIENT_ID", ""); id != "" {
		out[ProviderGoogle] = &Provider{
			Name: ProviderGoogle,
			Config: &oauth2.Config{
				ClientID:     id,
				ClientSecret: config.GetEnvOrDefault("GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  site + "/auth/oauth/google/callback",
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			},
			Fetch: fetchGoogleProfile,
		}
	}
	if id := config.GetEnvOrDefault("GITHUB_CLIENT_ID", ""); id != "" {
		out[ProviderGitHub] = &Provider{
			Name: ProviderGitHub,
			Config: &oauth2.Config{
				ClientID:     id,
				ClientSecret: config.GetEnvOrDefault("GITHUB_CLIENT_SECRET", ""),
				RedirectURL:  site + "/auth/oauth/github/callback",
				Scopes:       []string{"read:user", "user:email"},
				Endpoint:     github.Endpoint,
			},
			Fetch: fetchGitHubProfile,
		}
	}
	return out
}

// StateStore issues single-use OAuth state tokens
type StateStore struct {
	store session.Store
}

func NewStateStore(store session.Store) *StateStore {
	return &StateStore{store: store}
}

func stateKey(state string) string { return "oauth_state:" + state }

// Issue returns a fresh state bound to provider
func (s *StateStore) Issue(ctx context.Context, provider string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	ok, err := s.store.SetNX(ctx, stateKey(state), provider, StateTTL)
	if err != nil {
		return "", fmt.Errorf("store oauth state: %w", err)
	}
	if !ok {
		return "", errors.New("oauth state collision")
	}
	return state, nil
}

// Consume checks state was issued for provider and deletes it
func (s *StateStore) Consume(ctx context.Context, provider, state string) error {
	if state == "" {
		return ErrInvalidState
	}
	saved, err := s.store.Get(ctx, stateKey(state))
	if err != nil || saved != provider {
		return ErrInvalidState
	}
	return s.store.Delete(ctx, stateKey(state))
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

var (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubAPIURL      = "https://api.github.com"
)

func fetchGoogleProfile(ctx context.Context, client *http.Client) (Profile, error) {
	var info struct {
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		GivenName     string `json:"given_name"`
		Picture       string `json:"picture"`
	}
	if err := getJSON(ctx, client, googleUserInfoURL, &info); err != nil {
		return Profile{}, fmt.Errorf("google userinfo: %w", err)
	}
	if !info.VerifiedEmail {
		return Profile{}, errors.New("google email is not verified")
	}
	name := info.GivenName
	if name == "" {
		name = info.Name
	}
	return Profile{Email: info.Email, Name: name, AvatarURL: info.Picture}, nil
}

func fetchGitHubProfile(ctx context.Context, client *http.Client) (Profile, error) {
	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := getJSON(ctx, client, githubAPIURL+"/user", &user); err != nil {
		return Profile{}, fmt.Errorf("github user: %w", err)
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := getJSON(ctx, client, githubAPIURL+"/user/emails", &emails); err != nil {
		return Profile{}, fmt.Errorf("github emails: %w", err)
	}

	email := ""
	for _, e := range emails {
		if e.Verified && (e.Primary || email == "") {
			email = e.Email
		}
	}
	if email == "" {
		return Profile{}, errors.New("github account has no verified email")
	}

	name := user.Login
	if name == "" {
		name = "github-" + strconv.FormatInt(user.ID, 10)
	}
	return Profile{Email: email, Name: name, AvatarURL: user.AvatarURL}, nil
}
