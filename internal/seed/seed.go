// Package seed fills a development database with plausible users, posts and
// replies.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"plume/internal/middleware"
	"plume/internal/models"
	"plume/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options controls the volume of generated data.
type Options struct {
	Users   int
	Posts   int
	Replies int
	// Password is assigned to every generated account.
	Password string
}

// DefaultOptions returns a seed size suitable for local development.
func DefaultOptions() Options {
	return Options{
		Users:    20,
		Posts:    120,
		Replies:  80,
		Password: "motdepasse123",
	}
}

// Run populates the database. It is not idempotent; run it against an empty
// schema.
func Run(ctx context.Context, db *gorm.DB, opts Options, weights models.EngagementWeights) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.MinCost)
	if err != nil {
		return fmt.Errorf("hashing seed password: %w", err)
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		user := &models.User{
			Username: fmt.Sprintf("%s%d", gofakeit.Username(), i),
			Email:    fmt.Sprintf("seed%d.%s", i, gofakeit.Email()),
			Password: string(hash),
			Bio:      gofakeit.Sentence(8),
			Location: gofakeit.City(),
			Status:   models.UserStatusActive,
			Language: "fr",
			Timezone: "Europe/Paris",
		}
		if err := db.WithContext(ctx).Create(user).Error; err != nil {
			return fmt.Errorf("creating seed user: %w", err)
		}
		users = append(users, user)
	}

	posts := make([]*models.Post, 0, opts.Posts)
	for i := 0; i < opts.Posts; i++ {
		author := users[rand.Intn(len(users))]
		post := &models.Post{
			UserID:   author.ID,
			Content:  gofakeit.Sentence(3 + rand.Intn(15)),
			Type:     models.PostTypePost,
			Language: "fr",
			Status:   models.PostStatusActive,
		}
		if err := db.WithContext(ctx).Create(post).Error; err != nil {
			return fmt.Errorf("creating seed post: %w", err)
		}

		// Spread creation over the last month so listings are not one flat
		// timestamp.
		createdAt := time.Now().Add(-time.Duration(rand.Intn(30*24)) * time.Hour)
		counters := models.EngagementCounters{
			Likes:       rand.Intn(50),
			Retweets:    rand.Intn(15),
			Views:       rand.Intn(500),
			Impressions: rand.Intn(1000),
			Clicks:      rand.Intn(80),
		}
		err := db.WithContext(ctx).Model(post).UpdateColumns(map[string]interface{}{
			"created_at":        createdAt,
			"updated_at":        createdAt,
			"likes_count":       counters.Likes,
			"retweets_count":    counters.Retweets,
			"views_count":       counters.Views,
			"impressions_count": counters.Impressions,
			"clicks_count":      counters.Clicks,
			"engagement_score":  models.EngagementScore(counters, weights),
		}).Error
		if err != nil {
			return fmt.Errorf("backfilling seed post: %w", err)
		}
		posts = append(posts, post)
	}

	repo := repository.NewPostRepository(db)
	for i := 0; i < opts.Replies; i++ {
		author := users[rand.Intn(len(users))]
		parent := posts[rand.Intn(len(posts))]
		reply := &models.Post{
			UserID:       author.ID,
			ParentPostID: &parent.ID,
			Content:      gofakeit.Sentence(2 + rand.Intn(10)),
			Type:         models.PostTypeReply,
			Language:     "fr",
			Status:       models.PostStatusActive,
		}
		if err := repo.Create(ctx, reply); err != nil {
			return fmt.Errorf("creating seed reply: %w", err)
		}
	}

	middleware.Logger.Info("seed completed",
		slog.Int("users", len(users)),
		slog.Int("posts", len(posts)),
		slog.Int("replies", opts.Replies),
	)
	return nil
}
