//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeMeal(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "analyze@example.com", "password123")
	token := LoginUser(t, env, "analyze@example.com", "password123")

	t.Run("image only", func(t *testing.T) {
		resp := DoAnalyzeRequest(t, env, token, false)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		result := ParseResponse(t, resp)
		data := result["data"].(map[string]any)
		assert.Equal(t, true, data["success"])

		items := data["items"].([]any)
		require.Len(t, items, 1)
		item := items[0].(map[string]any)
		assert.Equal(t, "apple", item["name"])

		nutrition := item["nutrition"].(map[string]any)
		assert.Equal(t, float64(62), nutrition["calories"])
	})

	t.Run("with audio note", func(t *testing.T) {
		resp := DoAnalyzeRequest(t, env, token, true)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data := ParseResponse(t, resp)["data"].(map[string]any)
		assert.Equal(t, "one apple", data["transcript"])
	})

	t.Run("unauthenticated", func(t *testing.T) {
		resp := DoAnalyzeRequest(t, env, "", false)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestAnalyzeDailyQuota(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "quota-cap@example.com", "password123")
	token := LoginUser(t, env, "quota-cap@example.com", "password123")

	// Burn the whole daily budget
	for i := 0; i < TestMaxPerDay; i++ {
		resp := DoAnalyzeRequest(t, env, token, false)
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d should be admitted", i+1)
		resp.Body.Close()
	}

	t.Run("over the cap", func(t *testing.T) {
		resp := DoAnalyzeRequest(t, env, token, false)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	})

	t.Run("quota endpoint reports exhaustion", func(t *testing.T) {
		resp := DoRequest(t, env, "GET", "/api/v1/quota", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		data := ParseResponse(t, resp)["data"].(map[string]any)
		assert.Equal(t, false, data["allowed"])
		assert.Equal(t, float64(0), data["daily_remaining"])
	})

	t.Run("other users unaffected", func(t *testing.T) {
		RegisterUser(t, env, "quota-other@example.com", "password123")
		otherToken := LoginUser(t, env, "quota-other@example.com", "password123")

		resp := DoAnalyzeRequest(t, env, otherToken, false)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestDailyQuotaResetsOnStaleDate(t *testing.T) {
	env := SetupTestEnv(t)

	RegisterUser(t, env, "quota-reset@example.com", "password123")
	token := LoginUser(t, env, "quota-reset@example.com", "password123")

	// Exhaust today's budget
	for i := 0; i < TestMaxPerDay; i++ {
		resp := DoAnalyzeRequest(t, env, token, false)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	}
	resp := DoAnalyzeRequest(t, env, token, false)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Backdate the quota row to yesterday; the next admission must reset
	// the daily counter exactly once and admit.
	_, err := env.Pool.Exec(t.Context(),
		`UPDATE user_quotas SET last_reset_date = CURRENT_DATE - 1
		 FROM users WHERE user_quotas.user_id = users.id AND users.email = $1`,
		"quota-reset@example.com")
	require.NoError(t, err)

	resp = DoAnalyzeRequest(t, env, token, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var count int
	err = env.Pool.QueryRow(t.Context(),
		`SELECT quota_count FROM user_quotas
		 JOIN users ON users.id = user_quotas.user_id WHERE users.email = $1`,
		"quota-reset@example.com").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
