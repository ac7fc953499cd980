package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"plume/internal/cache"
	"plume/internal/config"
	"plume/internal/database"
	"plume/internal/middleware"
	"plume/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testConfig() *config.Config {
	weights := models.DefaultEngagementWeights()
	return &config.Config{
		Port:            "0",
		Env:             "test",
		JWTSecret:       "test-secret-not-for-production-use",
		DefaultLanguage: "fr",

		EngagementWeightLikes:       weights.Likes,
		EngagementWeightRetweets:    weights.Retweets,
		EngagementWeightViews:       weights.Views,
		EngagementWeightImpressions: weights.Impressions,
		EngagementWeightClicks:      weights.Clicks,
	}
}

// setupTestServer builds a server on an isolated in-memory database with the
// cache disabled.
func setupTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	cache.Close()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewServerWithDeps(testConfig(), db), db
}

const testPassword = "motdepasse123"

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		Username: username,
		Email:    username + "@example.fr",
		Password: string(hash),
		Status:   models.UserStatusActive,
		Language: "fr",
		Timezone: "Europe/Paris",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func authHeader(t *testing.T, userID uint) string {
	t.Helper()
	token, err := middleware.IssueToken(userID, testConfig().JWTSecret, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(t *testing.T, srv *Server, method, path, auth string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}
