package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"plume/internal/models"
	"plume/internal/pagination"
	"plume/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubPostRepo lets each test wire just the calls it expects.
type stubPostRepo struct {
	createFn         func(ctx context.Context, post *models.Post) error
	getByIDFn        func(ctx context.Context, id uint) (*models.Post, error)
	updateFn         func(ctx context.Context, post *models.Post) error
	softDeleteFn     func(ctx context.Context, id uint) error
	incrementViewsFn func(ctx context.Context, id uint, w models.EngagementWeights) error
	addEngagementFn  func(ctx context.Context, id uint, d models.EngagementCounters, w models.EngagementWeights) error
	listFn           func(ctx context.Context, f repository.PostFilters, limit, offset int) ([]*models.Post, int64, error)
	listPopularFn    func(ctx context.Context, limit, offset int) ([]*models.Post, int64, error)
	searchFn         func(ctx context.Context, query string, limit, offset int) ([]*models.Post, int64, error)
	listRepliesFn    func(ctx context.Context, parentID uint, limit, offset int) ([]*models.Post, int64, error)
}

func (s *stubPostRepo) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}

func (s *stubPostRepo) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubPostRepo) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}

func (s *stubPostRepo) SoftDelete(ctx context.Context, id uint) error {
	return s.softDeleteFn(ctx, id)
}

func (s *stubPostRepo) IncrementViews(ctx context.Context, id uint, w models.EngagementWeights) error {
	return s.incrementViewsFn(ctx, id, w)
}

func (s *stubPostRepo) AddEngagement(ctx context.Context, id uint, d models.EngagementCounters, w models.EngagementWeights) error {
	return s.addEngagementFn(ctx, id, d, w)
}

func (s *stubPostRepo) List(ctx context.Context, f repository.PostFilters, limit, offset int) ([]*models.Post, int64, error) {
	return s.listFn(ctx, f, limit, offset)
}

func (s *stubPostRepo) ListPopular(ctx context.Context, limit, offset int) ([]*models.Post, int64, error) {
	return s.listPopularFn(ctx, limit, offset)
}

func (s *stubPostRepo) Search(ctx context.Context, query string, limit, offset int) ([]*models.Post, int64, error) {
	return s.searchFn(ctx, query, limit, offset)
}

func (s *stubPostRepo) ListReplies(ctx context.Context, parentID uint, limit, offset int) ([]*models.Post, int64, error) {
	return s.listRepliesFn(ctx, parentID, limit, offset)
}

type stubUserRepo struct {
	getByIDFn func(ctx context.Context, id uint) (*models.User, error)
}

func (s *stubUserRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}

func (s *stubUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	panic("not wired")
}

func (s *stubUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	panic("not wired")
}

func (s *stubUserRepo) Create(ctx context.Context, user *models.User) error { panic("not wired") }
func (s *stubUserRepo) Update(ctx context.Context, user *models.User) error { panic("not wired") }

func knownUser(id uint) *stubUserRepo {
	return &stubUserRepo{
		getByIDFn: func(_ context.Context, got uint) (*models.User, error) {
			if got == id {
				return &models.User{ID: id, Username: "colette", Status: models.UserStatusActive}, nil
			}
			return nil, gorm.ErrRecordNotFound
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(posts *stubPostRepo, users *stubUserRepo) *PostService {
	return &PostService{
		posts:    posts,
		users:    users,
		weights:  models.DefaultEngagementWeights(),
		language: "fr",
		logger:   testLogger(),
	}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestCreatePostDefaults(t *testing.T) {
	var created *models.Post
	posts := &stubPostRepo{
		createFn: func(_ context.Context, post *models.Post) error {
			post.ID = 1
			created = post
			return nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 5,
		Content:  "  Bonjour tout le monde  ",
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "Bonjour tout le monde", post.Content, "content must be trimmed")
	assert.Equal(t, models.PostTypePost, post.Type)
	assert.Equal(t, "fr", post.Language)
	assert.Equal(t, models.PostStatusActive, post.Status)
	assert.Nil(t, post.ParentPostID)
}

func TestCreatePostRejectsBlankContent(t *testing.T) {
	svc := newTestService(&stubPostRepo{}, knownUser(5))

	_, err := svc.CreatePost(context.Background(), CreatePostInput{AuthorID: 5, Content: "   "})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestCreatePostRejectsOversizedContent(t *testing.T) {
	svc := newTestService(&stubPostRepo{}, knownUser(5))

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 5,
		Content:  strings.Repeat("é", MaxContentLength+1),
	})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestCreatePostRejectsUnknownType(t *testing.T) {
	svc := newTestService(&stubPostRepo{}, knownUser(5))

	_, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID: 5,
		Content:  "salut",
		Type:     "retweet",
	})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestCreatePostRequiresIdentity(t *testing.T) {
	svc := newTestService(&stubPostRepo{}, knownUser(5))

	_, err := svc.CreatePost(context.Background(), CreatePostInput{Content: "salut"})
	assertAppErrorCode(t, err, models.CodeUnauthenticated)
}

func TestCreatePostUnknownAuthor(t *testing.T) {
	svc := newTestService(&stubPostRepo{}, knownUser(5))

	_, err := svc.CreatePost(context.Background(), CreatePostInput{AuthorID: 99, Content: "salut"})
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestCreateReplyResolvesParent(t *testing.T) {
	parentID := uint(3)
	posts := &stubPostRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, Status: models.PostStatusActive}, nil
		},
		createFn: func(_ context.Context, post *models.Post) error {
			post.ID = 10
			return nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID:     5,
		Content:      "une réponse",
		Type:         models.PostTypeReply,
		ParentPostID: &parentID,
	})
	require.NoError(t, err)
	require.NotNil(t, post.ParentPostID)
	assert.Equal(t, parentID, *post.ParentPostID)
}

func TestCreateReplyParentMissIsSilent(t *testing.T) {
	parentID := uint(404)
	posts := &stubPostRepo{
		getByIDFn: func(_ context.Context, _ uint) (*models.Post, error) {
			return nil, gorm.ErrRecordNotFound
		},
		createFn: func(_ context.Context, post *models.Post) error {
			post.ID = 10
			return nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	post, err := svc.CreatePost(context.Background(), CreatePostInput{
		AuthorID:     5,
		Content:      "une réponse orpheline",
		Type:         models.PostTypeReply,
		ParentPostID: &parentID,
	})
	require.NoError(t, err, "a missing parent must not fail creation")
	assert.Nil(t, post.ParentPostID)
}

func TestGetPostIncrementsBeforeFetch(t *testing.T) {
	calls := []string{}
	posts := &stubPostRepo{
		incrementViewsFn: func(_ context.Context, id uint, _ models.EngagementWeights) error {
			calls = append(calls, "increment")
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			calls = append(calls, "fetch")
			return &models.Post{ID: id, ViewsCount: 1}, nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	post, err := svc.GetPost(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"increment", "fetch"}, calls)
	assert.Equal(t, 1, post.ViewsCount)
}

func TestGetPostNotFound(t *testing.T) {
	posts := &stubPostRepo{
		incrementViewsFn: func(_ context.Context, _ uint, _ models.EngagementWeights) error {
			return gorm.ErrRecordNotFound
		},
	}

	svc := newTestService(posts, knownUser(5))
	_, err := svc.GetPost(context.Background(), 999)
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestConcurrentViewsAllCounted(t *testing.T) {
	var views int64
	posts := &stubPostRepo{
		incrementViewsFn: func(_ context.Context, _ uint, _ models.EngagementWeights) error {
			atomic.AddInt64(&views, 1)
			return nil
		},
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id}, nil
		},
	}

	svc := newTestService(posts, knownUser(5))

	const readers = 50
	var wg sync.WaitGroup
	wg.Add(readers)
	for i := 0; i < readers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.GetPost(context.Background(), 7)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(readers), atomic.LoadInt64(&views))
}

func TestUpdatePostByNonOwner(t *testing.T) {
	updated := false
	posts := &stubPostRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 5, Status: models.PostStatusActive}, nil
		},
		updateFn: func(_ context.Context, _ *models.Post) error {
			updated = true
			return nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	content := "pirate"
	_, err := svc.UpdatePost(context.Background(), UpdatePostInput{
		RequesterID: 6,
		PostID:      1,
		Content:     &content,
	})
	assertAppErrorCode(t, err, models.CodeUnauthorized)
	assert.False(t, updated, "non-owner update must not reach the store")
}

func TestUpdateDeletedPostRejected(t *testing.T) {
	deletedAt := time.Now()
	posts := &stubPostRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{
				ID:        id,
				UserID:    5,
				Status:    models.PostStatusDeleted,
				DeletedAt: &deletedAt,
			}, nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	content := "trop tard"
	_, err := svc.UpdatePost(context.Background(), UpdatePostInput{
		RequesterID: 5,
		PostID:      1,
		Content:     &content,
	})
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestUpdatePostPartialFields(t *testing.T) {
	var saved *models.Post
	posts := &stubPostRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{
				ID:       id,
				UserID:   5,
				Content:  "original",
				Language: "fr",
				Status:   models.PostStatusActive,
			}, nil
		},
		updateFn: func(_ context.Context, post *models.Post) error {
			saved = post
			return nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	pinned := true
	post, err := svc.UpdatePost(context.Background(), UpdatePostInput{
		RequesterID: 5,
		PostID:      1,
		IsPinned:    &pinned,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, "original", post.Content, "unset fields keep their value")
	assert.True(t, post.IsPinned)
}

func TestDeletePostIdempotent(t *testing.T) {
	deletedAt := time.Now()
	softDeletes := 0
	posts := &stubPostRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{
				ID:        id,
				UserID:    5,
				Status:    models.PostStatusDeleted,
				DeletedAt: &deletedAt,
			}, nil
		},
		softDeleteFn: func(_ context.Context, _ uint) error {
			softDeletes++
			return nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	require.NoError(t, svc.DeletePost(context.Background(), 5, 1))
	assert.Zero(t, softDeletes, "already-deleted post needs no store call")
}

func TestDeletePostByNonOwner(t *testing.T) {
	posts := &stubPostRepo{
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) {
			return &models.Post{ID: id, UserID: 5, Status: models.PostStatusActive}, nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	err := svc.DeletePost(context.Background(), 6, 1)
	assertAppErrorCode(t, err, models.CodeUnauthorized)
}

func TestSearchPostsRejectsBlankQuery(t *testing.T) {
	svc := newTestService(&stubPostRepo{}, knownUser(5))

	_, err := svc.SearchPosts(context.Background(), "   ", pagination.NewParams(1, 10))
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestSearchPostsTrimsQuery(t *testing.T) {
	var got string
	posts := &stubPostRepo{
		searchFn: func(_ context.Context, query string, _, _ int) ([]*models.Post, int64, error) {
			got = query
			return []*models.Post{}, 0, nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	page, err := svc.SearchPosts(context.Background(), "  bonjour  ", pagination.NewParams(1, 10))
	require.NoError(t, err)
	assert.Equal(t, "bonjour", got)
	assert.NotNil(t, page.Items)
}

func TestRepliesUnknownParent(t *testing.T) {
	posts := &stubPostRepo{
		getByIDFn: func(_ context.Context, _ uint) (*models.Post, error) {
			return nil, gorm.ErrRecordNotFound
		},
	}

	svc := newTestService(posts, knownUser(5))
	_, err := svc.Replies(context.Background(), 404, pagination.NewParams(1, 10))
	assertAppErrorCode(t, err, models.CodeNotFound)
}

func TestRecordEngagementKinds(t *testing.T) {
	var got models.EngagementCounters
	posts := &stubPostRepo{
		addEngagementFn: func(_ context.Context, _ uint, d models.EngagementCounters, _ models.EngagementWeights) error {
			got = d
			return nil
		},
	}
	svc := newTestService(posts, knownUser(5))

	require.NoError(t, svc.RecordEngagement(context.Background(), 1, EngagementLike))
	assert.Equal(t, models.EngagementCounters{Likes: 1}, got)

	require.NoError(t, svc.RecordEngagement(context.Background(), 1, EngagementRetweet))
	assert.Equal(t, models.EngagementCounters{Retweets: 1}, got)

	err := svc.RecordEngagement(context.Background(), 1, EngagementKind("view"))
	assertAppErrorCode(t, err, models.CodeValidation)
}

func TestListPostsPaginationMetadata(t *testing.T) {
	posts := &stubPostRepo{
		listFn: func(_ context.Context, _ repository.PostFilters, limit, offset int) ([]*models.Post, int64, error) {
			assert.Equal(t, 10, limit)
			assert.Equal(t, 10, offset)
			return []*models.Post{{ID: 11}}, 25, nil
		},
	}

	svc := newTestService(posts, knownUser(5))
	page, err := svc.ListPosts(context.Background(), repository.PostFilters{}, pagination.NewParams(2, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(25), page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.CurrentPage)
	assert.True(t, page.HasNextPage)
	assert.True(t, page.HasPreviousPage)
}
