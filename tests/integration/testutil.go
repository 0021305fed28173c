//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mealtrack/mealtrack/internal/analysis"
	"github.com/mealtrack/mealtrack/internal/api"
	"github.com/mealtrack/mealtrack/internal/audit"
	"github.com/mealtrack/mealtrack/internal/auth"
	"github.com/mealtrack/mealtrack/internal/config"
	"github.com/mealtrack/mealtrack/internal/meals"
	"github.com/mealtrack/mealtrack/internal/quota"
	"github.com/mealtrack/mealtrack/internal/users"
)

// TestMaxPerDay is the daily admission cap wired into the test server.
const TestMaxPerDay = 3

type TestEnv struct {
	Pool        *pgxpool.Pool
	RedisClient *redis.Client
	Server      *httptest.Server
	QuotaStore  quota.Store
}

var testEnv *TestEnv

func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	if testEnv != nil {
		return testEnv
	}

	ctx := context.Background()

	// Start PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "mealtrack_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")

	// Start Redis container
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("starting redis container: %v", err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")

	// Connect to PostgreSQL
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/mealtrack_test?sslmode=disable", pgHost, pgPort.Port())
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connecting to postgres: %v", err)
	}
	t.Cleanup(func() { pool.Close() })

	// Run migrations
	migrationsPath := getMigrationsPath()
	m, err := migrate.New(
		fmt.Sprintf("file://%s", migrationsPath),
		dsn,
	)
	if err != nil {
		t.Fatalf("creating migrator: %v", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("running migrations: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port()),
	})
	t.Cleanup(func() { redisClient.Close() })

	// Stub vision model: always recognizes one food item
	vlmStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"success\":true,\"requestId\":\"img_stub\",\"items\":[{\"name\":\"apple\",\"confidence\":0.95,\"serving_size_grams\":120,\"nutrition\":{\"calories\":62,\"protein_g\":0.3,\"fat_g\":0.2,\"carbohydrates_g\":17,\"sugar_g\":12,\"fiber_g\":3}}],\"errorMessage\":null}"}}]}`))
	}))
	t.Cleanup(vlmStub.Close)

	// Stub transcription service
	whisperStub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "one apple"}`))
	}))
	t.Cleanup(whisperStub.Close)

	// Setup services
	jwtManager := auth.NewJWTManager("test-access-secret-32-chars-long!!", "test-refresh-secret-32-chars-long!!", 15*time.Minute, 7*24*time.Hour)
	authSvc := auth.NewService(jwtManager, redisClient)
	userRepo := users.NewRepository(pool)
	userSvc := users.NewService(userRepo)
	authHandler := auth.NewHandler(authSvc, userSvc)

	quotaStore := quota.NewStore(pool)
	quotaWindow := quota.NewWindow(quota.WindowSpan)
	quotaSvc := quota.NewService(quotaStore, quotaWindow, config.QuotaConfig{MaxPerDay: TestMaxPerDay, MaxPerMinute: 100})
	quotaHandler := quota.NewHandler(quotaSvc)

	mealRepo := meals.NewRepository(pool)
	mealSvc := meals.NewService(mealRepo, nil)
	mealHandler := meals.NewHandler(mealSvc)

	vision := analysis.NewVision(config.VLMConfig{
		BaseURL: vlmStub.URL, APIKey: "test", Model: "test-model",
		MaxTokens: 2048, Timeout: 10 * time.Second,
	})
	transcriber := analysis.NewTranscriber(config.WhisperConfig{
		URL: whisperStub.URL, APIKey: "test", Language: "en", Timeout: 10 * time.Second,
	})
	analysisSvc := analysis.NewService(quotaSvc, vision, transcriber, nil)
	analysisHandler := analysis.NewHandler(analysisSvc)

	auditRepo := audit.NewRepository(pool)
	auditHandler := audit.NewHandler(auditRepo)

	router := api.NewRouter(pool, nil, api.RouterConfig{}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		GetMe:    authHandler.Me,
		UpdateMe: authHandler.UpdateMe,

		UpsertMeal: mealHandler.Upsert,
		GetMeal:    mealHandler.Get,
		ListMeals:  mealHandler.List,
		DeleteMeal: mealHandler.Delete,

		AnalyzeMeal: analysisHandler.Analyze,

		GetQuota:      quotaHandler.GetRemaining,
		ListAuditLogs: auditHandler.List,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	server := httptest.NewServer(router)
	t.Cleanup(func() { server.Close() })

	testEnv = &TestEnv{
		Pool:        pool,
		RedisClient: redisClient,
		Server:      server,
		QuotaStore:  quotaStore,
	}

	return testEnv
}

func getMigrationsPath() string {
	paths := []string{
		"../../migrations",
		"../../../migrations",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	log.Fatal("migrations directory not found")
	return ""
}

// Helper functions

func RegisterUser(t *testing.T, env *TestEnv, email, password string) map[string]any {
	t.Helper()
	body := map[string]string{"email": email, "password": password}
	resp := DoRequest(t, env, "POST", "/api/v1/auth/register", body, "")
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register failed: status %d", resp.StatusCode)
	}
	return ParseResponse(t, resp)
}

func LoginUser(t *testing.T, env *TestEnv, email, password string) string {
	t.Helper()
	body := map[string]string{"email": email, "password": password}
	resp := DoRequest(t, env, "POST", "/api/v1/auth/login", body, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: status %d", resp.StatusCode)
	}
	result := ParseResponse(t, resp)
	data := result["data"].(map[string]any)
	return data["access_token"].(string)
}

func DoRequest(t *testing.T, env *TestEnv, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

// DoAnalyzeRequest posts a meal photo (and optional audio payload) to
// the analyze endpoint.
func DoAnalyzeRequest(t *testing.T, env *TestEnv, token string, withAudio bool) *http.Response {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("image", "meal.jpg")
	if err != nil {
		t.Fatalf("creating image part: %v", err)
	}
	if _, err := part.Write(testJPEG(t)); err != nil {
		t.Fatalf("writing image part: %v", err)
	}
	if withAudio {
		audioPart, err := writer.CreateFormFile("audio", "note.m4a")
		if err != nil {
			t.Fatalf("creating audio part: %v", err)
		}
		if _, err := audioPart.Write([]byte("fake-audio")); err != nil {
			t.Fatalf("writing audio part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	req, err := http.NewRequest("POST", env.Server.URL+"/api/v1/meals/analyze", &body)
	if err != nil {
		t.Fatalf("creating request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("doing request: %v", err)
	}
	return resp
}

func testJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			img.Set(x, y, color.RGBA{R: 180, G: 90, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding test jpeg: %v", err)
	}
	return buf.Bytes()
}

func ParseResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("parsing response: %v", err)
	}
	return result
}
