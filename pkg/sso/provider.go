package sso

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/platinummonkey/usercenter/pkg/auth"
)

// ErrMissingCode is returned when an exchange is attempted without an authorization code
var ErrMissingCode = errors.New("missing authorization code")

// Provider exchanges authorization codes with a third-party identity provider
type Provider interface {
	// Type returns the provider type (OAuth2, OIDC)
	Type() ProviderType

	// Name returns the provider name
	Name() ProviderName

	// AuthCodeURL returns the URL the client is sent to for consent
	AuthCodeURL(state string) string

	// ExchangeCode trades an authorization code for the caller's profile
	ExchangeCode(ctx context.Context, code string) (*auth.ExternalProfile, error)

	// ValidateConfig validates the provider configuration
	ValidateConfig() error
}

// NewProvider creates a provider instance from configuration
func NewProvider(ctx context.Context, config *ProviderConfig) (Provider, error) {
	if config == nil {
		return nil, fmt.Errorf("provider config is required")
	}
	if !config.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", config.Name)
	}

	var (
		provider Provider
		err      error
	)
	switch config.ProviderType {
	case ProviderTypeOAuth2:
		provider, err = NewOAuth2Provider(config)
	case ProviderTypeOIDC:
		if err := validateOIDC(config.OIDCConfig); err != nil {
			return nil, err
		}
		provider, err = NewOIDCProvider(ctx, config)
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.ProviderType)
	}
	if err != nil {
		return nil, err
	}

	if err := provider.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("invalid %s provider config: %w", config.ProviderType, err)
	}
	return provider, nil
}

// GetPresetConfig returns preset configuration for well-known providers.
// Credentials and redirect URLs still have to be filled in.
func GetPresetConfig(providerName ProviderName) (*ProviderConfig, error) {
	switch providerName {
	case ProviderWeChat:
		return &ProviderConfig{
			Name:         string(ProviderWeChat),
			ProviderType: ProviderTypeOAuth2,
			ProviderName: ProviderWeChat,
			AttributeMapping: AttributeMap{
				UnionID:  "unionid",
				OpenID:   "openid",
				Nickname: "nickname",
				Avatar:   "headimgurl",
			},
			OAuth2Config: &OAuth2Config{
				AuthURL:      "https://open.weixin.qq.com/connect/qrconnect",
				TokenURL:     "https://api.weixin.qq.com/sns/oauth2/access_token",
				UserInfoURL:  "https://api.weixin.qq.com/sns/userinfo",
				Scopes:       []string{"snsapi_login"},
				TokenInQuery: true,
			},
		}, nil

	case ProviderGoogle:
		return &ProviderConfig{
			Name:         string(ProviderGoogle),
			ProviderType: ProviderTypeOIDC,
			ProviderName: ProviderGoogle,
			AttributeMapping: AttributeMap{
				UnionID:  "sub",
				OpenID:   "sub",
				Nickname: "name",
				Avatar:   "picture",
			},
			OIDCConfig: &OIDCConfig{
				IssuerURL: "https://accounts.google.com",
				Scopes:    []string{"openid", "profile"},
			},
		}, nil

	default:
		return nil, fmt.Errorf("no preset configuration for provider: %s", providerName)
	}
}

// profileFromAttributes maps raw provider attributes onto an external profile
func profileFromAttributes(data map[string]interface{}, mapping AttributeMap) *auth.ExternalProfile {
	return &auth.ExternalProfile{
		UnionID:   getStringValue(data, mapping.UnionID),
		OpenID:    getStringValue(data, mapping.OpenID),
		Nickname:  getStringValue(data, mapping.Nickname),
		AvatarURL: getStringValue(data, mapping.Avatar),
	}
}

func getStringValue(data map[string]interface{}, key string) string {
	if key == "" {
		return ""
	}
	switch v := data[key].(type) {
	case string:
		return v
	case float64:
		// Some providers send numeric subject ids
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}
