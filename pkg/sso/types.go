package sso

// ProviderType represents the protocol spoken by an identity provider
type ProviderType string

const (
	ProviderTypeOAuth2 ProviderType = "oauth2"
	ProviderTypeOIDC   ProviderType = "oidc"
)

// ProviderName represents a well-known identity provider
type ProviderName string

const (
	ProviderWeChat        ProviderName = "wechat"
	ProviderGoogle        ProviderName = "google"
	ProviderGenericOAuth2 ProviderName = "generic_oauth2"
	ProviderGenericOIDC   ProviderName = "generic_oidc"
)

// ProviderConfig represents identity provider configuration
type ProviderConfig struct {
	Name             string        `json:"name" yaml:"name"`
	ProviderType     ProviderType  `json:"provider_type" yaml:"provider_type"`
	ProviderName     ProviderName  `json:"provider_name" yaml:"provider_name"`
	Enabled          bool          `json:"enabled" yaml:"enabled"`
	OAuth2Config     *OAuth2Config `json:"oauth2_config,omitempty" yaml:"oauth2,omitempty"`
	OIDCConfig       *OIDCConfig   `json:"oidc_config,omitempty" yaml:"oidc,omitempty"`
	AttributeMapping AttributeMap  `json:"attribute_mapping" yaml:"attribute_mapping"`
}

// OAuth2Config holds OAuth2 configuration
type OAuth2Config struct {
	ClientID     string   `json:"client_id" yaml:"client_id"`
	ClientSecret string   `json:"-" yaml:"client_secret"` // Never expose secret in JSON
	AuthURL      string   `json:"auth_url" yaml:"auth_url"`
	TokenURL     string   `json:"token_url" yaml:"token_url"`
	UserInfoURL  string   `json:"user_info_url,omitempty" yaml:"user_info_url"`
	Scopes       []string `json:"scopes" yaml:"scopes"`
	RedirectURL  string   `json:"redirect_url" yaml:"redirect_url"`
	// TokenInQuery also sends access_token and openid as user info query
	// parameters, as the WeChat open platform expects
	TokenInQuery bool `json:"token_in_query,omitempty" yaml:"token_in_query"`
}

// OIDCConfig holds OpenID Connect configuration
type OIDCConfig struct {
	ClientID        string   `json:"client_id" yaml:"client_id"`
	ClientSecret    string   `json:"-" yaml:"client_secret"`       // Never expose secret in JSON
	IssuerURL       string   `json:"issuer_url" yaml:"issuer_url"` // Discovery endpoint
	RedirectURL     string   `json:"redirect_url" yaml:"redirect_url"`
	Scopes          []string `json:"scopes" yaml:"scopes"`
	SkipIssuerCheck bool     `json:"skip_issuer_check,omitempty" yaml:"skip_issuer_check"`
}

// AttributeMap names the provider attributes that carry each profile field
type AttributeMap struct {
	UnionID  string `json:"union_id" yaml:"union_id"` // Stable identity across the provider's apps
	OpenID   string `json:"open_id" yaml:"open_id"`   // Identity within this app
	Nickname string `json:"nickname,omitempty" yaml:"nickname"`
	Avatar   string `json:"avatar,omitempty" yaml:"avatar"`
}

// withDefaults fills unmapped identity attributes from the other one
func (m AttributeMap) withDefaults(fallback string) AttributeMap {
	if m.UnionID == "" {
		m.UnionID = fallback
	}
	if m.OpenID == "" {
		m.OpenID = m.UnionID
	}
	return m
}
