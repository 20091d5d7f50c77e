package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/prperemyshlev/spamdetect-backend/internal/config"
	"github.com/prperemyshlev/spamdetect-backend/internal/domain"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleIssuer      = "https://accounts.google.com"
	googleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	googleHTTPTimeout = 10 * time.Second
)

// GoogleProvider implements FederationProvider against Google's OAuth2 endpoints
type GoogleProvider struct {
	oauth       *oauth2.Config
	httpClient  *http.Client
	userInfoURL string
	issuer      string
	keySet      oidc.KeySet
	verifier    *oidc.IDTokenVerifier
}

var _ FederationProvider = (*GoogleProvider)(nil)

// GoogleOption configures a GoogleProvider
type GoogleOption func(*GoogleProvider)

// WithGoogleHTTPClient overrides the HTTP client used for Google calls
func WithGoogleHTTPClient(client *http.Client) GoogleOption {
	return func(p *GoogleProvider) {
		p.httpClient = client
	}
}

// WithGoogleEndpoints points the provider at alternative endpoints
func WithGoogleEndpoints(authURL, tokenURL, userInfoURL string) GoogleOption {
	return func(p *GoogleProvider) {
		p.oauth.Endpoint = oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		}
		p.userInfoURL = userInfoURL
	}
}

// WithGoogleIDTokenKeys verifies ID tokens from issuer against keySet
// instead of Google's published signing keys.
func WithGoogleIDTokenKeys(issuer string, keySet oidc.KeySet) GoogleOption {
	return func(p *GoogleProvider) {
		p.issuer = issuer
		p.keySet = keySet
	}
}

// NewGoogleProvider creates a Google identity provider. Signing keys are
// fetched lazily on the first ID token verification.
func NewGoogleProvider(cfg config.GoogleConfig, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		httpClient:  &http.Client{Timeout: googleHTTPTimeout},
		userInfoURL: googleUserInfoURL,
		issuer:      googleIssuer,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.keySet == nil {
		p.keySet = oidc.NewRemoteKeySet(oidc.ClientContext(context.Background(), p.httpClient), googleJWKSURL)
	}
	p.verifier = oidc.NewVerifier(p.issuer, p.keySet, &oidc.Config{ClientID: cfg.ClientID})
	return p
}

func (p *GoogleProvider) Name() string {
	return domain.ProviderGoogle
}

// AuthCodeURL returns the consent page URL carrying state
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// ExchangeCode trades an authorization code for the user's profile
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (*domain.FederatedIdentity, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	var info googleUserInfo
	if err := getJSON(ctx, p.oauth.Client(ctx, token), p.userInfoURL, &info); err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	if info.ID == "" || info.Email == "" {
		return nil, errors.New("user info is missing id or email")
	}

	return &domain.FederatedIdentity{
		Provider:      domain.ProviderGoogle,
		Subject:       info.ID,
		Email:         info.Email,
		Name:          info.Name,
		EmailVerified: info.VerifiedEmail,
	}, nil
}

type googleIDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

// VerifyIDToken checks the signature, issuer, audience and expiry of an ID
// token locally against Google's signing keys.
func (p *GoogleProvider) VerifyIDToken(ctx context.Context, rawIDToken string) (*domain.FederatedIdentity, error) {
	if rawIDToken == "" {
		return nil, errors.New("empty id token")
	}

	idToken, err := p.verifier.Verify(oidc.ClientContext(ctx, p.httpClient), rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify id token: %w", err)
	}

	var claims googleIDTokenClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode id token claims: %w", err)
	}
	if idToken.Subject == "" || claims.Email == "" {
		return nil, errors.New("id token is missing sub or email")
	}

	return &domain.FederatedIdentity{
		Provider:      domain.ProviderGoogle,
		Subject:       idToken.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
	}, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}
