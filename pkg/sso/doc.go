// Package sso exchanges third-party authorization codes for external profiles.
//
// # Overview
//
// A Provider performs the OAuth2 authorization code flow against an identity
// provider and maps the returned attributes onto an auth.ExternalProfile. The
// account service only needs ExchangeCode; AuthCodeURL is used to send clients
// to the provider's consent page.
//
// # Supported Protocols
//
// OAuth2: token endpoint plus an optional user info endpoint. The WeChat preset
// reads unionid and openid from the token response and sends the access token as
// a query parameter.
// OpenID Connect: endpoints come from discovery and the ID token is verified
// before its claims are mapped.
//
// # Usage Example
//
//	config, _ := sso.GetPresetConfig(sso.ProviderWeChat)
//	config.Enabled = true
//	config.OAuth2Config.ClientID = appID
//	config.OAuth2Config.ClientSecret = appSecret
//	config.OAuth2Config.RedirectURL = "https://usercenter.example.com/api/user/login/wx_open"
//
//	provider, err := sso.NewProvider(ctx, config)
//	profile, err := provider.ExchangeCode(ctx, code)
//
// # Attribute Mapping
//
// AttributeMap names the attributes carrying the union id, open id, nickname
// and avatar. When the open id is unmapped it falls back to the union id.
package sso
