// Package config loads the user center configuration.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional YAML file named by USERCENTER_CONFIG_FILE, and USERCENTER_*
// environment variables.
//
// # Environment
//
// Server settings:
//
//	USERCENTER_HOST="0.0.0.0"
//	USERCENTER_PORT="8080"
//	USERCENTER_HEALTH_PORT="9090"
//	USERCENTER_CORS_ORIGINS="https://app.example.com,https://admin.example.com"
//	USERCENTER_API_DOCS="false"  # disables /openapi.yaml and /swagger-ui
//
// Storage settings:
//
//	USERCENTER_STORAGE_TYPE="postgres"  # memory, sqlite, postgres
//	USERCENTER_POSTGRES_URL="postgres://localhost/usercenter"
//	USERCENTER_POSTGRES_REPLICA_URLS="postgres://replica-1/usercenter"
//	USERCENTER_SQLITE_PATH="usercenter.db"
//	USERCENTER_REDIS_URL="redis://localhost:6379"
//
// Sessions and rate limiting:
//
//	USERCENTER_SESSION_STORE="redis"  # memory, redis
//	USERCENTER_SESSION_TTL="30m"
//	USERCENTER_RATE_LIMIT_BACKEND="redis"
//	USERCENTER_RATE_LIMIT_REQUESTS="20"
//
// Third-party login selects a preset and supplies its credentials:
//
//	USERCENTER_SSO_PROVIDER="wechat"  # wechat, google
//	USERCENTER_SSO_CLIENT_ID="wx0123456789"
//	USERCENTER_SSO_CLIENT_SECRET="..."
//
// Observability settings:
//
//	USERCENTER_LOG_LEVEL="info"  # debug, info, warn, error
//	USERCENTER_OTEL_ENABLED="true"
//	USERCENTER_OTEL_ENDPOINT="otel-collector:4317"
//
// # Reloading
//
// Watch re-reads the file when it changes. The server only applies the new log
// level; everything else needs a restart.
package config
