// Package service contains the business logic for the post lifecycle,
// listing, search and ranking operations.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"plume/internal/cache"
	"plume/internal/config"
	"plume/internal/middleware"
	"plume/internal/models"
	"plume/internal/observability"
	"plume/internal/pagination"
	"plume/internal/repository"

	"gorm.io/gorm"
)

// MaxContentLength is the maximum post length in runes.
const MaxContentLength = 280

// EngagementKind names a counter that external interactions can advance.
// Views are excluded: they only move through GetPost.
type EngagementKind string

const (
	EngagementLike       EngagementKind = "like"
	EngagementRetweet    EngagementKind = "retweet"
	EngagementImpression EngagementKind = "impression"
	EngagementClick      EngagementKind = "click"
)

// PostService implements the post lifecycle operations.
type PostService struct {
	posts    repository.PostRepository
	users    repository.UserRepository
	weights  models.EngagementWeights
	language string
	logger   *slog.Logger
}

// NewPostService creates a post service wired to the given repositories.
func NewPostService(posts repository.PostRepository, users repository.UserRepository, cfg *config.Config) *PostService {
	return &PostService{
		posts:    posts,
		users:    users,
		weights:  cfg.EngagementWeights(),
		language: cfg.DefaultLanguage,
		logger:   middleware.Logger,
	}
}

// CreatePostInput carries the caller-supplied fields for post creation.
type CreatePostInput struct {
	AuthorID     uint
	Content      string
	Type         models.PostType
	Language     string
	ParentPostID *uint
}

// UpdatePostInput carries a partial update; nil pointers leave the field
// untouched.
type UpdatePostInput struct {
	RequesterID uint
	PostID      uint
	Content     *string
	Language    *string
	IsPinned    *bool
}

func validateContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", models.NewFieldValidationError(map[string]string{"content": "content cannot be empty"})
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", models.NewFieldValidationError(map[string]string{"content": "content exceeds 280 characters"})
	}
	return content, nil
}

// CreatePost validates input and persists a new active post. A reply whose
// parent no longer exists is created as a top-level orphan rather than
// rejected; the miss is logged.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "PostService.CreatePost", 0)
	defer span.End()

	if in.AuthorID == 0 {
		return nil, models.NewUnauthenticatedError("authentication required to create a post")
	}
	if _, err := s.users.GetByID(ctx, in.AuthorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", in.AuthorID)
		}
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}

	content, err := validateContent(in.Content)
	if err != nil {
		return nil, err
	}

	postType := in.Type
	if postType == "" {
		postType = models.PostTypePost
	}
	if !models.ValidPostType(postType) {
		return nil, models.NewFieldValidationError(map[string]string{"type": "type must be 'post' or 'reply'"})
	}

	language := in.Language
	if language == "" {
		language = s.language
	}

	post := &models.Post{
		UserID:   in.AuthorID,
		Content:  content,
		Type:     postType,
		Language: language,
		Status:   models.PostStatusActive,
	}

	if postType == models.PostTypeReply && in.ParentPostID != nil {
		parent, err := s.posts.GetByID(ctx, *in.ParentPostID)
		switch {
		case err == nil && !parent.Deleted():
			post.ParentPostID = &parent.ID
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			observability.RecordError(ctx, err)
			return nil, models.NewInternalError(err)
		default:
			s.logger.WarnContext(ctx, "reply parent unavailable, creating without parent",
				slog.Uint64("parent_post_id", uint64(*in.ParentPostID)),
				slog.Uint64("author_id", uint64(in.AuthorID)),
			)
		}
	}

	if err := s.posts.Create(ctx, post); err != nil {
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}

	observability.PostsCreatedTotal.WithLabelValues(string(postType)).Inc()
	return post, nil
}

// GetPost records a view and returns the post. The increment happens first so
// the returned snapshot already includes the caller's own view; soft-deleted
// posts remain readable here.
func (s *PostService) GetPost(ctx context.Context, id uint) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "PostService.GetPost", id)
	defer span.End()

	if err := s.posts.IncrementViews(ctx, id, s.weights); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}
	observability.PostViewsTotal.Inc()

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}
	return post, nil
}

func (s *PostService) authorizeOwner(requesterID uint, post *models.Post) error {
	if requesterID == 0 {
		return models.NewUnauthenticatedError("authentication required")
	}
	if post.UserID != requesterID {
		return models.NewUnauthorizedError("you can only modify your own posts")
	}
	return nil
}

// UpdatePost applies a partial update to an owned, active post. Deleted is a
// terminal state: updates against it are rejected.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	ctx, span := observability.StartSpan(ctx, "PostService.UpdatePost", in.PostID)
	defer span.End()

	post, err := s.posts.GetByID(ctx, in.PostID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", in.PostID)
		}
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}

	if err := s.authorizeOwner(in.RequesterID, post); err != nil {
		return nil, err
	}
	if post.Deleted() {
		return nil, models.NewValidationError("cannot update a deleted post")
	}

	if in.Content != nil {
		content, err := validateContent(*in.Content)
		if err != nil {
			return nil, err
		}
		post.Content = content
	}
	if in.Language != nil && *in.Language != "" {
		post.Language = *in.Language
	}
	if in.IsPinned != nil {
		post.IsPinned = *in.IsPinned
	}

	if err := s.posts.Update(ctx, post); err != nil {
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}
	return post, nil
}

// DeletePost soft-deletes an owned post. Deleting an already-deleted post is
// a no-op success.
func (s *PostService) DeletePost(ctx context.Context, requesterID, id uint) error {
	ctx, span := observability.StartSpan(ctx, "PostService.DeletePost", id)
	defer span.End()

	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", id)
		}
		observability.RecordError(ctx, err)
		return models.NewInternalError(err)
	}

	if err := s.authorizeOwner(requesterID, post); err != nil {
		return err
	}
	if post.Deleted() {
		return nil
	}

	if err := s.posts.SoftDelete(ctx, id); err != nil {
		observability.RecordError(ctx, err)
		return models.NewInternalError(err)
	}
	observability.PostsDeletedTotal.Inc()
	return nil
}

func (s *PostService) page(items []*models.Post, total int64, p pagination.Params) *pagination.Page[*models.Post] {
	page := pagination.New(items, total, p)
	return &page
}

// ListPosts returns a reverse-chronological page of active posts matching the
// filters. The unfiltered first page at the default size is served through
// the cache.
func (s *PostService) ListPosts(ctx context.Context, f repository.PostFilters, p pagination.Params) (*pagination.Page[*models.Post], error) {
	ctx, span := observability.StartSpan(ctx, "PostService.ListPosts", 0)
	defer span.End()

	unfiltered := f == (repository.PostFilters{})
	if unfiltered && p.Page == 1 && p.Limit == pagination.DefaultLimit {
		var page pagination.Page[*models.Post]
		err := cache.Aside(ctx, cache.PostsFirstPageKey(), &page, cache.ListTTL, func() error {
			items, total, err := s.posts.List(ctx, f, p.Limit, p.Offset())
			if err != nil {
				return err
			}
			page = pagination.New(items, total, p)
			return nil
		})
		if err != nil {
			observability.RecordError(ctx, err)
			return nil, models.NewInternalError(err)
		}
		return &page, nil
	}

	items, total, err := s.posts.List(ctx, f, p.Limit, p.Offset())
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}
	return s.page(items, total, p), nil
}

// PopularPosts returns posts ranked by engagement score.
func (s *PostService) PopularPosts(ctx context.Context, p pagination.Params) (*pagination.Page[*models.Post], error) {
	ctx, span := observability.StartSpan(ctx, "PostService.PopularPosts", 0)
	defer span.End()

	items, total, err := s.posts.ListPopular(ctx, p.Limit, p.Offset())
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}
	return s.page(items, total, p), nil
}

// SearchPosts returns active posts whose content contains the query,
// case-insensitively, newest first. A blank query is a validation error.
func (s *PostService) SearchPosts(ctx context.Context, query string, p pagination.Params) (*pagination.Page[*models.Post], error) {
	ctx, span := observability.StartSpan(ctx, "PostService.SearchPosts", 0)
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewFieldValidationError(map[string]string{"q": "search query cannot be empty"})
	}
	observability.SearchQueriesTotal.Inc()

	items, total, err := s.posts.Search(ctx, query, p.Limit, p.Offset())
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}
	return s.page(items, total, p), nil
}

// Replies returns the direct replies of a post in conversation order. The
// parent must exist, deleted or not.
func (s *PostService) Replies(ctx context.Context, parentID uint, p pagination.Params) (*pagination.Page[*models.Post], error) {
	ctx, span := observability.StartSpan(ctx, "PostService.Replies", parentID)
	defer span.End()

	if _, err := s.posts.GetByID(ctx, parentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", parentID)
		}
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}

	items, total, err := s.posts.ListReplies(ctx, parentID, p.Limit, p.Offset())
	if err != nil {
		observability.RecordError(ctx, err)
		return nil, models.NewInternalError(err)
	}
	return s.page(items, total, p), nil
}

// RecordEngagement advances a single interaction counter and recomputes the
// score atomically.
func (s *PostService) RecordEngagement(ctx context.Context, postID uint, kind EngagementKind) error {
	ctx, span := observability.StartSpan(ctx, "PostService.RecordEngagement", postID)
	defer span.End()

	var delta models.EngagementCounters
	switch kind {
	case EngagementLike:
		delta.Likes = 1
	case EngagementRetweet:
		delta.Retweets = 1
	case EngagementImpression:
		delta.Impressions = 1
	case EngagementClick:
		delta.Clicks = 1
	default:
		return models.NewValidationError("unknown engagement kind")
	}

	if err := s.posts.AddEngagement(ctx, postID, delta, s.weights); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Post", postID)
		}
		observability.RecordError(ctx, err)
		return models.NewInternalError(err)
	}
	return nil
}
