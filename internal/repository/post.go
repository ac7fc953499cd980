// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"strings"
	"time"

	"plume/internal/cache"
	"plume/internal/models"

	"gorm.io/gorm"
)

// PostFilters is the structured filter set for listing queries. Zero-valued
// fields are no-ops; present fields combine with logical AND.
type PostFilters struct {
	UserID   *uint
	Type     models.PostType
	Language string
	// Search is a case-insensitive substring match against content.
	Search string
}

// PostRepository defines the interface for post data operations.
//
// Counter mutations are single atomic UPDATE statements: the store, not the
// caller, serializes concurrent writers on the same record.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	// GetByID returns the post whatever its lifecycle state: soft-deleted
	// posts stay addressable by direct lookup.
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	// Update persists content, language and is_pinned; counter columns are
	// never written by it.
	Update(ctx context.Context, post *models.Post) error
	// SoftDelete marks the post deleted. Calling it on an already-deleted
	// post is a no-op, so the operation is idempotent.
	SoftDelete(ctx context.Context, id uint) error
	// IncrementViews adds exactly one view and recomputes the engagement
	// score in the same statement.
	IncrementViews(ctx context.Context, id uint, w models.EngagementWeights) error
	// AddEngagement applies non-negative counter deltas and recomputes the
	// engagement score in the same statement.
	AddEngagement(ctx context.Context, id uint, d models.EngagementCounters, w models.EngagementWeights) error

	List(ctx context.Context, f PostFilters, limit, offset int) ([]*models.Post, int64, error)
	ListPopular(ctx context.Context, limit, offset int) ([]*models.Post, int64, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, int64, error)
	ListReplies(ctx context.Context, parentID uint, limit, offset int) ([]*models.Post, int64, error)
}

// postRepository implements PostRepository.
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	err := r.db.WithContext(ctx).Create(post).Error
	if err == nil {
		cache.InvalidatePostLists(ctx)
	}
	return err
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).
			Preload("User").
			First(&post, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

// Update writes only the caller-mutable columns. Counters and the score are
// deliberately excluded: they move through the atomic increment statements,
// and a full-record save from a stale snapshot would roll them back.
func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", post.ID).
		Updates(map[string]interface{}{
			"content":   post.Content,
			"language":  post.Language,
			"is_pinned": post.IsPinned,
		})
	if res.Error != nil {
		return res.Error
	}
	cache.InvalidatePost(ctx, post.ID)
	cache.InvalidatePostLists(ctx)
	return nil
}

func (r *postRepository) SoftDelete(ctx context.Context, id uint) error {
	// The deleted_at IS NULL guard makes a second delete a no-op instead of
	// rewriting deleted_at.
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Updates(map[string]interface{}{
			"status":     models.PostStatusDeleted,
			"deleted_at": time.Now().UTC(),
		}).Error
	if err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	cache.InvalidatePostLists(ctx)
	return nil
}

// scoreExpr recomputes engagement_score from the post-increment counter
// values within the same UPDATE, keeping the whole mutation atomic.
const scoreExpr = "? * (likes_count + ?) + ? * (retweets_count + ?) + ? * (views_count + ?) + " +
	"? * (impressions_count + ?) + ? * (clicks_count + ?)"

func (r *postRepository) applyCounterDelta(ctx context.Context, id uint, d models.EngagementCounters, w models.EngagementWeights) error {
	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"likes_count":       gorm.Expr("likes_count + ?", d.Likes),
			"retweets_count":    gorm.Expr("retweets_count + ?", d.Retweets),
			"views_count":       gorm.Expr("views_count + ?", d.Views),
			"impressions_count": gorm.Expr("impressions_count + ?", d.Impressions),
			"clicks_count":      gorm.Expr("clicks_count + ?", d.Clicks),
			"engagement_score": gorm.Expr(scoreExpr,
				w.Likes, d.Likes,
				w.Retweets, d.Retweets,
				w.Views, d.Views,
				w.Impressions, d.Impressions,
				w.Clicks, d.Clicks,
			),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postRepository) IncrementViews(ctx context.Context, id uint, w models.EngagementWeights) error {
	// The cached copy is deliberately left in place: invalidating on every
	// read would defeat the cache, and PostTTL bounds the staleness.
	return r.applyCounterDelta(ctx, id, models.EngagementCounters{Views: 1}, w)
}

func (r *postRepository) AddEngagement(ctx context.Context, id uint, d models.EngagementCounters, w models.EngagementWeights) error {
	if err := r.applyCounterDelta(ctx, id, d, w); err != nil {
		return err
	}
	cache.InvalidatePost(ctx, id)
	return nil
}

// visible restricts a query to posts that are not soft-deleted. Every listing
// path goes through it; direct id lookup deliberately does not.
func visible(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}

func withFilters(f PostFilters) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.UserID != nil {
			db = db.Where("user_id = ?", *f.UserID)
		}
		if f.Type != "" {
			db = db.Where("type = ?", f.Type)
		}
		if f.Language != "" {
			db = db.Where("language = ?", f.Language)
		}
		if f.Search != "" {
			db = db.Where("LOWER(content) LIKE ?", "%"+strings.ToLower(f.Search)+"%")
		}
		return db
	}
}

// paginate runs the count + page fetch pair shared by every listing query.
// scope builds the candidate set; order fixes a deterministic total order.
func (r *postRepository) paginate(ctx context.Context, scope func(*gorm.DB) *gorm.DB, order string, limit, offset int) ([]*models.Post, int64, error) {
	var total int64
	if err := scope(visible(r.db.WithContext(ctx).Model(&models.Post{}))).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var posts []*models.Post
	err := scope(visible(r.db.WithContext(ctx))).
		Preload("User").
		Order(order).
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) List(ctx context.Context, f PostFilters, limit, offset int) ([]*models.Post, int64, error) {
	return r.paginate(ctx, withFilters(f), "created_at DESC, id DESC", limit, offset)
}

func (r *postRepository) ListPopular(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	noop := func(db *gorm.DB) *gorm.DB { return db }
	return r.paginate(ctx, noop, "engagement_score DESC, created_at DESC, id DESC", limit, offset)
}

func (r *postRepository) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, int64, error) {
	return r.paginate(ctx, withFilters(PostFilters{Search: query}), "created_at DESC, id DESC", limit, offset)
}

func (r *postRepository) ListReplies(ctx context.Context, parentID uint, limit, offset int) ([]*models.Post, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		return db.Where("parent_post_id = ?", parentID)
	}
	// Conversation order: oldest first, the inverse of the main listing.
	return r.paginate(ctx, scope, "created_at ASC, id ASC", limit, offset)
}
