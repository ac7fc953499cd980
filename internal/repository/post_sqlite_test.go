package repository

import (
	"context"
	"fmt"
	"testing"

	"plume/internal/database"
	"plume/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupSQLiteRepo backs the repository with a real in-memory database for
// tests that need actual row state across several statements.
func setupSQLiteRepo(t *testing.T) (PostRepository, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewPostRepository(db), db
}

func TestUpdateKeepsConcurrentCounterAdvances(t *testing.T) {
	repo, db := setupSQLiteRepo(t)
	ctx := context.Background()
	weights := models.DefaultEngagementWeights()

	user := &models.User{
		Username: "colette",
		Email:    "colette@example.fr",
		Password: "x",
		Status:   models.UserStatusActive,
		Language: "fr",
		Timezone: "Europe/Paris",
	}
	require.NoError(t, db.Create(user).Error)

	post := &models.Post{
		UserID:   user.ID,
		Content:  "avant",
		Type:     models.PostTypePost,
		Language: "fr",
		Status:   models.PostStatusActive,
	}
	require.NoError(t, repo.Create(ctx, post))

	// Snapshot, then let an increment land behind the snapshot's back.
	snapshot, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	require.NoError(t, repo.AddEngagement(ctx, post.ID, models.EngagementCounters{Likes: 1}, weights))

	snapshot.Content = "après"
	require.NoError(t, repo.Update(ctx, snapshot))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "après", got.Content)
	assert.Equal(t, 1, got.LikesCount, "update from a stale snapshot must not revert counters")
	assert.InDelta(t, weights.Likes, got.EngagementScore, 0.001, "score must survive the update")
}

func TestUpdateDoesNotTouchPinnedCounterOnlySnapshot(t *testing.T) {
	repo, db := setupSQLiteRepo(t)
	ctx := context.Background()
	weights := models.DefaultEngagementWeights()

	user := &models.User{
		Username: "marcel",
		Email:    "marcel@example.fr",
		Password: "x",
		Status:   models.UserStatusActive,
		Language: "fr",
		Timezone: "Europe/Paris",
	}
	require.NoError(t, db.Create(user).Error)

	post := &models.Post{
		UserID:   user.ID,
		Content:  "billet",
		Type:     models.PostTypePost,
		Language: "fr",
		Status:   models.PostStatusActive,
	}
	require.NoError(t, repo.Create(ctx, post))
	require.NoError(t, repo.IncrementViews(ctx, post.ID, weights))

	// A plain field update after views moved: views stay put.
	post.IsPinned = true
	require.NoError(t, repo.Update(ctx, post))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, got.IsPinned)
	assert.Equal(t, 1, got.ViewsCount)
}
