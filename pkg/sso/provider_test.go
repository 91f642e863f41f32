package sso

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	valid := &OAuth2Config{
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      "https://provider.com/oauth/authorize",
		TokenURL:     "https://provider.com/oauth/token",
		RedirectURL:  "https://usercenter.example.com/callback",
		Scopes:       []string{"profile"},
	}

	tests := []struct {
		name     string
		config   *ProviderConfig
		errorMsg string
	}{
		{"nil config", nil, "provider config is required"},
		{"disabled", &ProviderConfig{Name: "off", ProviderType: ProviderTypeOAuth2, OAuth2Config: valid}, "is disabled"},
		{"unsupported type", &ProviderConfig{Name: "saml", Enabled: true, ProviderType: "saml"}, "unsupported provider type"},
		{"missing oauth2 block", &ProviderConfig{Name: "x", Enabled: true, ProviderType: ProviderTypeOAuth2}, "OAuth2 config is required"},
		{"invalid oauth2 block", &ProviderConfig{Name: "x", Enabled: true, ProviderType: ProviderTypeOAuth2,
			OAuth2Config: &OAuth2Config{ClientID: "client"}}, "client_secret is required"},
		{"invalid oidc block", &ProviderConfig{Name: "x", Enabled: true, ProviderType: ProviderTypeOIDC,
			OIDCConfig: &OIDCConfig{ClientID: "client"}}, "client_secret is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Nil(t, provider)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}

	provider, err := NewProvider(context.Background(), &ProviderConfig{
		Name:         "generic",
		Enabled:      true,
		ProviderType: ProviderTypeOAuth2,
		ProviderName: ProviderGenericOAuth2,
		OAuth2Config: valid,
	})
	require.NoError(t, err)
	assert.Equal(t, ProviderTypeOAuth2, provider.Type())
	assert.Equal(t, ProviderGenericOAuth2, provider.Name())
}

func TestGetPresetConfig_WeChat(t *testing.T) {
	config, err := GetPresetConfig(ProviderWeChat)
	require.NoError(t, err)

	assert.Equal(t, ProviderTypeOAuth2, config.ProviderType)
	assert.Equal(t, ProviderWeChat, config.ProviderName)
	require.NotNil(t, config.OAuth2Config)
	assert.True(t, config.OAuth2Config.TokenInQuery)
	assert.Contains(t, config.OAuth2Config.Scopes, "snsapi_login")
	assert.Equal(t, "unionid", config.AttributeMapping.UnionID)
	assert.Equal(t, "openid", config.AttributeMapping.OpenID)
	assert.Equal(t, "headimgurl", config.AttributeMapping.Avatar)
}

func TestGetPresetConfig_Google(t *testing.T) {
	config, err := GetPresetConfig(ProviderGoogle)
	require.NoError(t, err)

	assert.Equal(t, ProviderTypeOIDC, config.ProviderType)
	require.NotNil(t, config.OIDCConfig)
	assert.Equal(t, "https://accounts.google.com", config.OIDCConfig.IssuerURL)
	assert.Contains(t, config.OIDCConfig.Scopes, "openid")
	assert.Equal(t, "sub", config.AttributeMapping.UnionID)
}

func TestGetPresetConfig_Invalid(t *testing.T) {
	config, err := GetPresetConfig(ProviderName("invalid"))
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "no preset configuration")
}

func TestGetStringValue(t *testing.T) {
	data := map[string]interface{}{
		"string_field": "value",
		"number_field": float64(123),
		"bool_field":   true,
		"nil_field":    nil,
	}

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{"existing string", "string_field", "value"},
		{"number field", "number_field", "123"},
		{"bool field", "bool_field", ""},
		{"nil field", "nil_field", ""},
		{"missing field", "missing", ""},
		{"empty key", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, getStringValue(data, tt.key))
		})
	}
}
