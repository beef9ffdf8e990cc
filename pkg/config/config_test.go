package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "")
	cfg := Load()

	assert.Equal(t, 15*24*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.OTPTTL)
	assert.Equal(t, "hotel-id-proofs", cfg.Storage.Bucket)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "72h")
	t.Setenv("HOTEL_REGISTRATION_KEY", "front-desk-key")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("GATEWAY_RPS", "2.5")

	cfg := Load()
	assert.Equal(t, 72*time.Hour, cfg.Auth.AccessTokenTTL)
	assert.Equal(t, "front-desk-key", cfg.Auth.RegistrationKey)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Gateway.AllowedOrigins)
	assert.Equal(t, 2.5, cfg.RateLimit.GatewayRPS)
}

func TestValidate(t *testing.T) {
	t.Setenv("HOTEL_REGISTRATION_KEY", "")
	cfg := Load()
	require.Error(t, cfg.Validate())

	cfg.Auth.RegistrationKey = "k"
	require.NoError(t, cfg.Validate())

	cfg.Server.DevMode = false
	cfg.Auth.JWTSecret = "dev-only-secret-change-in-prod"
	assert.Error(t, cfg.Validate())

	cfg.Auth.JWTSecret = "real-secret"
	cfg.Hotel.Timezone = "Not/AZone"
	assert.Error(t, cfg.Validate())
}

func TestHotelLocation(t *testing.T) {
	loc, err := HotelConfig{Timezone: "UTC"}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)

	loc, err = HotelConfig{}.Location()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	_, err = HotelConfig{Timezone: "Not/AZone"}.Location()
	assert.Error(t, err)
}
