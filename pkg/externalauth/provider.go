package externalauth

import (
	"fmt"
	"net/url"
	"strings"
)

// Provider represents an external OpenID Connect identity provider configuration
type Provider struct {
	Name         string   `json:"name"`
	Issuer       string   `json:"issuer"`
	AuthURL      string   `json:"auth_url"`
	TokenURL     string   `json:"token_url"`
	UserInfoURL  string   `json:"user_info_url"`
	JWKSURL      string   `json:"jwks_url,omitempty"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	RedirectURI  string   `json:"redirect_uri"`
	Scopes       []string `json:"scopes"`
}

// ValidateConfig validates the provider configuration
func (p *Provider) ValidateConfig() error {
	if p.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if p.AuthURL == "" {
		return fmt.Errorf("authorization URL is required")
	}
	if p.TokenURL == "" {
		return fmt.Errorf("token URL is required")
	}
	if p.RedirectURI == "" {
		return fmt.Errorf("redirect URI is required")
	}

	for _, u := range []string{p.AuthURL, p.TokenURL, p.UserInfoURL, p.JWKSURL, p.RedirectURI} {
		if u == "" {
			continue
		}
		if _, err := url.Parse(u); err != nil {
			return fmt.Errorf("invalid provider URL %q: %w", u, err)
		}
	}

	return nil
}

// BuildAuthURL builds the authorization URL for the browser redirect
func (p *Provider) BuildAuthURL(state string) (string, error) {
	authURL, err := url.Parse(p.AuthURL)
	if err != nil {
		return "", fmt.Errorf("invalid auth URL: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", p.ClientID)
	params.Set("redirect_uri", p.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(p.GetScopes(), " "))
	params.Set("state", state)

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}

// GetScopes returns the configured scopes, defaulting to the standard OIDC set
func (p *Provider) GetScopes() []string {
	if len(p.Scopes) > 0 {
		return p.Scopes
	}
	return []string{"openid", "profile", "email"}
}

// TokenResponse represents the provider's token endpoint response
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
}
