package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/usercenter/pkg/config"
	"github.com/platinummonkey/usercenter/pkg/observability"
	"github.com/platinummonkey/usercenter/pkg/sso"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.ShutdownTimeout = 5 * time.Second
	return cfg
}

func newTestApplication(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	app, err := newApplication(context.Background(), cfg, observability.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.shutdown.Shutdown(context.Background()) })
	return app
}

func post(t *testing.T, h http.Handler, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, h http.Handler) {
	t.Helper()
	creds := map[string]string{
		"userAccount":   "wiring01",
		"userPassword":  "password1",
		"checkPassword": "password1",
	}

	rec := post(t, h, "/api/user/register", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = post(t, h, "/api/user/login", creds)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/user/get/login", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Code int `json:"code"`
		Data struct {
			UserAccount string `json:"userAccount"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, 0, envelope.Code)
	assert.Equal(t, "wiring01", envelope.Data.UserAccount)
}

func TestNewApplication_MemoryBackends(t *testing.T) {
	app := newTestApplication(t, testConfig())

	assert.NotNil(t, app.memorySessions)
	assert.NotNil(t, app.localLimiter)
	assert.Nil(t, app.redis)
	assert.Len(t, app.cron.Entries(), 2)

	registerAndLogin(t, app.apiHandler)

	rec := httptest.NewRecorder()
	app.healthHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.healthHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "usercenter_")
}

func TestNewApplication_SQLiteSchedulesPoolStats(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.Type = "sqlite"
	cfg.Storage.SQLitePath = fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())

	app := newTestApplication(t, cfg)
	assert.NotNil(t, app.backend.DB)
	assert.Len(t, app.cron.Entries(), 3)

	registerAndLogin(t, app.apiHandler)
}

func TestNewApplication_RedisBackends(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := testConfig()
	cfg.Storage.RedisURL = "redis://" + mr.Addr()
	cfg.Session.Store = config.BackendRedis
	cfg.RateLimit.Backend = config.BackendRedis

	app := newTestApplication(t, cfg)
	require.NotNil(t, app.redis)
	assert.Nil(t, app.memorySessions)
	assert.Nil(t, app.localLimiter)
	assert.Empty(t, app.cron.Entries())

	registerAndLogin(t, app.apiHandler)
	assert.NotEmpty(t, mr.Keys())

	status := app.health.Check(context.Background())
	assert.Equal(t, observability.StatusHealthy, status.Status)
	assert.Contains(t, status.Dependencies, "redis")
}

func TestNewApplication_RedisUnavailable(t *testing.T) {
	cfg := testConfig()
	cfg.Storage.RedisURL = "redis://127.0.0.1:1"
	cfg.Session.Store = config.BackendRedis

	_, err := newApplication(context.Background(), cfg, observability.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to redis")
}

func TestNewApplication_SSO(t *testing.T) {
	t.Run("wechat preset", func(t *testing.T) {
		preset, err := sso.GetPresetConfig(sso.ProviderWeChat)
		require.NoError(t, err)
		preset.Enabled = true
		preset.OAuth2Config.ClientID = "wx0123456789"
		preset.OAuth2Config.ClientSecret = "secret"
		preset.OAuth2Config.RedirectURL = "https://usercenter.example.com/callback"

		cfg := testConfig()
		cfg.SSO = *preset
		newTestApplication(t, cfg)
	})

	t.Run("unsupported provider type", func(t *testing.T) {
		cfg := testConfig()
		cfg.SSO = sso.ProviderConfig{Name: "saml", ProviderType: "saml", Enabled: true}

		_, err := newApplication(context.Background(), cfg, observability.NewNopLogger())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported provider type")
	})
}

func TestNewApplication_MetricsAndRateLimitDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Observability.MetricsEnabled = false
	cfg.RateLimit.Enabled = false

	app := newTestApplication(t, cfg)
	assert.Nil(t, app.registry)
	assert.Nil(t, app.credentialRate)

	rec := httptest.NewRecorder()
	app.healthHandler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewApplication_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.Session.SweepSchedule = "every so often"

	_, err := newApplication(context.Background(), cfg, observability.NewNopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to schedule session sweep")
}

func TestApplication_ServeUntilCancelled(t *testing.T) {
	app := newTestApplication(t, testConfig())

	apiListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	healthListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.serve(ctx, apiListener, healthListener) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + healthListener.Addr().String() + "/health/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	resp, err := http.Get("http://" + apiListener.Addr().String() + "/api/user/get/login")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancellation")
	}
}
