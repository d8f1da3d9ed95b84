package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseEnv() map[string]string {
	return map[string]string{
		"ACCESS_TOKEN_SECRET":  "access",
		"REFRESH_TOKEN_SECRET": "refresh",
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(context.Background(), envconfig.MapLookuper(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTokenTTL)
	assert.Equal(t, "cookie", cfg.Auth.RefreshTokenDelivery)
	assert.Equal(t, "refreshToken", cfg.Auth.RefreshCookieName)
	assert.True(t, cfg.Auth.CookieSecure)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
	assert.Equal(t, 5, cfg.Auth.LoginMaxAttempts)
	assert.True(t, cfg.Auth.LoginThrottle)
	assert.Equal(t, []string{"*"}, cfg.HTTP.CORSAllowOrigins)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	env := baseEnv()
	env["STORE_DRIVER"] = "mongo"
	env["REFRESH_TOKEN_DELIVERY"] = "body"
	env["ACCESS_TOKEN_TTL"] = "1h"
	env["CORS_ALLOW_ORIGINS"] = "https://a.example,https://b.example"
	env["ENV"] = "production"

	cfg, err := load(context.Background(), envconfig.MapLookuper(env))
	require.NoError(t, err)

	assert.Equal(t, DriverMongo, cfg.Store.Driver)
	assert.Equal(t, "body", cfg.Auth.RefreshTokenDelivery)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.CORSAllowOrigins)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_BcryptCostBounds(t *testing.T) {
	for _, cost := range []string{"4", "31"} {
		env := baseEnv()
		env["BCRYPT_COST"] = cost
		_, err := load(context.Background(), envconfig.MapLookuper(env))
		assert.NoError(t, err, "cost %s", cost)
	}
}

func TestLoad_RequiresSecrets(t *testing.T) {
	_, err := load(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.Error(t, err)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"same secrets":     {"REFRESH_TOKEN_SECRET": "access"},
		"unknown driver":   {"STORE_DRIVER": "sqlite"},
		"unknown delivery": {"REFRESH_TOKEN_DELIVERY": "header"},
		"zero attempts":    {"LOGIN_MAX_ATTEMPTS": "0"},
		"bcrypt too low":   {"BCRYPT_COST": "3"},
		"bcrypt too high":  {"BCRYPT_COST": "32"},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			env := baseEnv()
			for k, v := range overrides {
				env[k] = v
			}
			_, err := load(context.Background(), envconfig.MapLookuper(env))
			assert.Error(t, err)
		})
	}
}
