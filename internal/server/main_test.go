package server

import (
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"citypulse/internal/config"
	"citypulse/internal/middleware"
	"citypulse/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "test-secret-key-for-handler-tests"

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		JWTSecret:    testJWTSecret,
		Port:         "8080",
		Env:          "test",
		AdminEmails:  "admin@civic.app",
		DemoPassword: "civic123",
		FeatureFlags: "assistant=on",
		MediaDir:     t.TempDir(),
	}
}

// newTestServer builds a Server over sqlite and miniredis with routes and
// middleware installed, mirroring production wiring minus metrics.
func newTestServer(t *testing.T) (*fiber.App, *Server) {
	t.Helper()
	t.Setenv("APP_ENV", "test")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Issue{}, &models.Profile{}))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := testConfig(t)
	middleware.InitMiddleware(cfg)

	srv, err := NewServerWithDeps(cfg, db, rdb, nil)
	require.NoError(t, err)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)
	return app, srv
}

func authHeader(t *testing.T, srv *Server, profile models.Profile) string {
	t.Helper()
	token, err := srv.generateToken(profile)
	require.NoError(t, err)
	return "Bearer " + token
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}
