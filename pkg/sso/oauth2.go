package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"github.com/platinummonkey/usercenter/pkg/auth"
)

// maxUserInfoBytes bounds the user info response body
const maxUserInfoBytes = 1 << 20

// OAuth2Provider implements the OAuth2 authorization code flow
type OAuth2Provider struct {
	config       *ProviderConfig
	oauth2Config *oauth2.Config
	mapping      AttributeMap
}

// NewOAuth2Provider creates a new OAuth2 provider
func NewOAuth2Provider(config *ProviderConfig) (*OAuth2Provider, error) {
	if config.OAuth2Config == nil {
		return nil, fmt.Errorf("OAuth2 config is required")
	}

	oauth2Cfg := &oauth2.Config{
		ClientID:     config.OAuth2Config.ClientID,
		ClientSecret: config.OAuth2Config.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  config.OAuth2Config.AuthURL,
			TokenURL: config.OAuth2Config.TokenURL,
		},
		RedirectURL: config.OAuth2Config.RedirectURL,
		Scopes:      config.OAuth2Config.Scopes,
	}

	return &OAuth2Provider{
		config:       config,
		oauth2Config: oauth2Cfg,
		mapping:      config.AttributeMapping.withDefaults("id"),
	}, nil
}

// Type returns the provider type
func (p *OAuth2Provider) Type() ProviderType {
	return ProviderTypeOAuth2
}

// Name returns the provider name
func (p *OAuth2Provider) Name() ProviderName {
	return p.config.ProviderName
}

// AuthCodeURL returns the OAuth2 authorization endpoint URL
func (p *OAuth2Provider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

// ExchangeCode trades the code for a token, then reads the profile from the
// token response and the user info endpoint. User info values win.
func (p *OAuth2Provider) ExchangeCode(ctx context.Context, code string) (*auth.ExternalProfile, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	// Providers such as WeChat return the identity next to the access token
	attrs := make(map[string]interface{})
	for _, key := range []string{p.mapping.UnionID, p.mapping.OpenID, p.mapping.Nickname, p.mapping.Avatar} {
		if key == "" {
			continue
		}
		if v := token.Extra(key); v != nil {
			attrs[key] = v
		}
	}

	if p.config.OAuth2Config.UserInfoURL != "" {
		userInfo, err := p.fetchUserInfo(ctx, token, getStringValue(attrs, p.mapping.OpenID))
		if err != nil {
			return nil, err
		}
		for k, v := range userInfo {
			attrs[k] = v
		}
	}

	profile := profileFromAttributes(attrs, p.mapping)
	if profile.UnionID == "" {
		return nil, fmt.Errorf("missing %q in OAuth2 response", p.mapping.UnionID)
	}
	return profile, nil
}

func (p *OAuth2Provider) fetchUserInfo(ctx context.Context, token *oauth2.Token, openID string) (map[string]interface{}, error) {
	userInfoURL := p.config.OAuth2Config.UserInfoURL
	if p.config.OAuth2Config.TokenInQuery {
		u, err := url.Parse(userInfoURL)
		if err != nil {
			return nil, fmt.Errorf("invalid user_info_url: %w", err)
		}
		q := u.Query()
		q.Set("access_token", token.AccessToken)
		if openID != "" {
			q.Set("openid", openID)
		}
		u.RawQuery = q.Encode()
		userInfoURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build user info request: %w", err)
	}

	resp, err := p.oauth2Config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUserInfoBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read user info: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo map[string]interface{}
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}

	// WeChat reports failures with HTTP 200 and a non-zero errcode
	if code, ok := userInfo["errcode"].(float64); ok && code != 0 {
		return nil, fmt.Errorf("user info request failed with errcode %v: %s", code, getStringValue(userInfo, "errmsg"))
	}

	return userInfo, nil
}

// ValidateConfig validates the OAuth2 configuration
func (p *OAuth2Provider) ValidateConfig() error {
	if p.config.OAuth2Config == nil {
		return fmt.Errorf("OAuth2 config is required")
	}

	cfg := p.config.OAuth2Config

	if cfg.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if cfg.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if cfg.AuthURL == "" {
		return fmt.Errorf("auth_url is required")
	}
	if cfg.TokenURL == "" {
		return fmt.Errorf("token_url is required")
	}
	if cfg.RedirectURL == "" {
		return fmt.Errorf("redirect_url is required")
	}
	if len(cfg.Scopes) == 0 {
		return fmt.Errorf("scopes are required")
	}

	return nil
}
