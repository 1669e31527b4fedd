// Package auth loads the Google authorized-user token used by the Sheets
// store. The token comes from the GOOGLE_TOKEN_JSON blob when set, or from
// a local token file otherwise; refreshed tokens are written back only to
// the file they were read from.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

var (
	ErrNoCredentials      = errors.New("no google credentials: set GOOGLE_TOKEN_JSON or provide a token file")
	ErrInvalidCredentials = errors.New("google token is expired and has no refresh token")
)

const defaultTokenURI = "https://oauth2.googleapis.com/token"

// Scopes requested for spreadsheet access.
var Scopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/drive",
}

// AuthorizedUser is the on-disk token layout written by Google's client
// libraries.
type AuthorizedUser struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes,omitempty"`
	Expiry       string   `json:"expiry,omitempty"`
}

var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseExpiry(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// OAuthToken converts the stored token.
func (u AuthorizedUser) OAuthToken() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  u.Token,
		RefreshToken: u.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       parseExpiry(u.Expiry),
	}
}

// OAuthConfig builds the refresh configuration.
func (u AuthorizedUser) OAuthConfig() *oauth2.Config {
	tokenURI := u.TokenURI
	if tokenURI == "" {
		tokenURI = defaultTokenURI
	}
	scopes := u.Scopes
	if len(scopes) == 0 {
		scopes = Scopes
	}
	return &oauth2.Config{
		ClientID:     u.ClientID,
		ClientSecret: u.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURI},
		Scopes:       scopes,
	}
}

// Credentials is a loaded token and where it came from.
type Credentials struct {
	User AuthorizedUser
	// Path is the token file, empty when the token came from the environment.
	Path string
}

// FromFile reports whether refreshed tokens should be persisted.
func (c *Credentials) FromFile() bool { return c.Path != "" }

// Load reads credentials from tokenJSON when non-empty, falling back to
// tokenFile.
func Load(tokenJSON, tokenFile string) (*Credentials, error) {
	if strings.TrimSpace(tokenJSON) != "" {
		var u AuthorizedUser
		if err := json.Unmarshal([]byte(tokenJSON), &u); err != nil {
			return nil, fmt.Errorf("invalid GOOGLE_TOKEN_JSON: %w", err)
		}
		return validate(&Credentials{User: u})
	}

	if tokenFile == "" {
		return nil, ErrNoCredentials
	}
	data, err := os.ReadFile(tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("read token file %s: %w", tokenFile, err)
	}
	var u AuthorizedUser
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", tokenFile, err)
	}
	return validate(&Credentials{User: u, Path: tokenFile})
}

func validate(c *Credentials) (*Credentials, error) {
	if c.User.Token == "" && c.User.RefreshToken == "" {
		return nil, ErrNoCredentials
	}
	tok := c.User.OAuthToken()
	if c.User.RefreshToken == "" && !tok.Valid() {
		return nil, ErrInvalidCredentials
	}
	return c, nil
}

// TokenSource returns a refreshing token source. When the credentials came
// from a file, every newly issued token is saved back to it.
func (c *Credentials) TokenSource(ctx context.Context, logger logrus.FieldLogger) oauth2.TokenSource {
	base := c.User.OAuthConfig().TokenSource(ctx, c.User.OAuthToken())
	if !c.FromFile() {
		return base
	}
	return &persistingSource{
		base:   base,
		creds:  c,
		last:   c.User.Token,
		logger: logger,
	}
}

type persistingSource struct {
	mu     sync.Mutex
	base   oauth2.TokenSource
	creds  *Credentials
	last   string
	logger logrus.FieldLogger
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	p.last = tok.AccessToken
	if err := p.save(tok); err != nil {
		p.logger.WithError(err).WithField("path", p.creds.Path).Warn("could not persist refreshed token")
	}
	return tok, nil
}

func (p *persistingSource) save(tok *oauth2.Token) error {
	u := p.creds.User
	u.Token = tok.AccessToken
	if tok.RefreshToken != "" {
		u.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		u.Expiry = tok.Expiry.UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p.creds.Path, data, 0o600); err != nil {
		return err
	}
	p.creds.User = u
	return nil
}
