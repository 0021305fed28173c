//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	env := SetupTestEnv(t)

	resp := DoRequest(t, env, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	assert.Equal(t, "healthy", data["status"])
}

func TestRegister(t *testing.T) {
	env := SetupTestEnv(t)

	t.Run("successful registration", func(t *testing.T) {
		result := RegisterUser(t, env, "test-reg@example.com", "password123")
		data := result["data"].(map[string]any)

		assert.NotEmpty(t, data["access_token"])
		assert.NotEmpty(t, data["refresh_token"])
	})

	t.Run("registration creates quota row", func(t *testing.T) {
		RegisterUser(t, env, "quota-row@example.com", "password123")
		token := LoginUser(t, env, "quota-row@example.com", "password123")

		resp := DoRequest(t, env, "GET", "/api/v1/quota", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, true, data["allowed"])
		assert.Equal(t, float64(TestMaxPerDay), data["daily_remaining"])
	})

	t.Run("duplicate email", func(t *testing.T) {
		RegisterUser(t, env, "dupe@example.com", "password123")

		body := map[string]string{"email": "dupe@example.com", "password": "password123"}
		resp := DoRequest(t, env, "POST", "/api/v1/auth/register", body, "")
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid email", func(t *testing.T) {
		body := map[string]string{"email": "not-an-email", "password": "password123"}
		resp := DoRequest(t, env, "POST", "/api/v1/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("short password", func(t *testing.T) {
		body := map[string]string{"email": "short@example.com", "password": "short"}
		resp := DoRequest(t, env, "POST", "/api/v1/auth/register", body, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLogin(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "login@example.com", "password123")

	t.Run("successful login", func(t *testing.T) {
		body := map[string]string{"email": "login@example.com", "password": "password123"}
		resp := DoRequest(t, env, "POST", "/api/v1/auth/login", body, "")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.NotEmpty(t, data["access_token"])
		assert.NotEmpty(t, data["refresh_token"])
	})

	t.Run("wrong password", func(t *testing.T) {
		body := map[string]string{"email": "login@example.com", "password": "wrongpass"}
		resp := DoRequest(t, env, "POST", "/api/v1/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("unknown email", func(t *testing.T) {
		body := map[string]string{"email": "nobody@example.com", "password": "password123"}
		resp := DoRequest(t, env, "POST", "/api/v1/auth/login", body, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestProfile(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "profile@example.com", "password123")
	token := LoginUser(t, env, "profile@example.com", "password123")

	t.Run("get own account", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/users/me", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, "profile@example.com", data["email"])
	})

	t.Run("update profile", func(t *testing.T) {
		body := map[string]any{
			"name":           "Jordan",
			"age":            34,
			"gender":         "other",
			"height_cm":      178.5,
			"weight_kg":      71.2,
			"activity_level": "moderate",
			"goal":           "maintain",
		}
		resp := DoRequest(t, env, "PUT", "/api/v1/users/me", body, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, "Jordan", data["name"])
		assert.Equal(t, float64(34), data["age"])
		assert.Equal(t, "moderate", data["activity_level"])
	})

	t.Run("invalid activity level", func(t *testing.T) {
		body := map[string]any{"activity_level": "heroic"}
		resp := DoRequest(t, env, "PUT", "/api/v1/users/me", body, token)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/users/me", nil, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}
