package server

import (
	"plume/internal/models"
	"plume/internal/pagination"
	"plume/internal/repository"
	"plume/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createPostRequest struct {
	Content      string `json:"content"`
	Type         string `json:"type"`
	Language     string `json:"language"`
	ParentPostID *uint  `json:"parent_post_id"`
}

type updatePostRequest struct {
	Content  *string `json:"content"`
	Language *string `json:"language"`
	IsPinned *bool   `json:"is_pinned"`
}

// pageMeta is the pagination envelope shared by the listing endpoints.
type pageMeta struct {
	TotalItems      int64 `json:"totalItems"`
	TotalPages      int   `json:"totalPages"`
	CurrentPage     int   `json:"currentPage"`
	ItemsPerPage    int   `json:"itemsPerPage"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

func meta(p *pagination.Page[*models.Post]) pageMeta {
	return pageMeta{
		TotalItems:      p.TotalItems,
		TotalPages:      p.TotalPages,
		CurrentPage:     p.CurrentPage,
		ItemsPerPage:    p.ItemsPerPage,
		HasNextPage:     p.HasNextPage,
		HasPreviousPage: p.HasPreviousPage,
	}
}

// handleCreatePost creates a post or reply for the authenticated user.
//
//	@Summary	Create a post
//	@Tags		posts
//	@Accept		json
//	@Produce	json
//	@Param		post	body		createPostRequest	true	"Post payload"
//	@Success	201		{object}	models.Post
//	@Failure	400		{object}	models.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/posts [post]
func (s *Server) handleCreatePost(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return respondServiceError(c, err)
	}

	var req createPostRequest
	if err := c.BodyParser(&req); err != nil {
		return respondServiceError(c, models.NewValidationError("invalid request body"))
	}

	post, err := s.posts.CreatePost(c.UserContext(), service.CreatePostInput{
		AuthorID:     userID,
		Content:      req.Content,
		Type:         models.PostType(req.Type),
		Language:     req.Language,
		ParentPostID: req.ParentPostID,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Post created successfully",
		"post":    post,
	})
}

// handleGetPost returns a single post and records the view.
//
//	@Summary	Get a post by id
//	@Tags		posts
//	@Produce	json
//	@Param		id	path		int	true	"Post ID"
//	@Success	200	{object}	models.Post
//	@Failure	404	{object}	models.ErrorResponse
//	@Router		/api/posts/{id} [get]
func (s *Server) handleGetPost(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	post, err := s.posts.GetPost(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(post)
}

func (s *Server) handleUpdatePost(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	var req updatePostRequest
	if err := c.BodyParser(&req); err != nil {
		return respondServiceError(c, models.NewValidationError("invalid request body"))
	}

	post, err := s.posts.UpdatePost(c.UserContext(), service.UpdatePostInput{
		RequesterID: userID,
		PostID:      id,
		Content:     req.Content,
		Language:    req.Language,
		IsPinned:    req.IsPinned,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Post updated successfully",
		"post":    post,
	})
}

func (s *Server) handleDeletePost(c *fiber.Ctx) error {
	userID, err := requireUserID(c)
	if err != nil {
		return respondServiceError(c, err)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	if err := s.posts.DeletePost(c.UserContext(), userID, id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// handleListPosts returns a reverse-chronological page of posts.
//
//	@Summary	List posts
//	@Tags		posts
//	@Produce	json
//	@Param		page		query	int		false	"Page number"
//	@Param		limit		query	int		false	"Page size (max 50)"
//	@Param		user_id		query	int		false	"Filter by author"
//	@Param		type		query	string	false	"Filter by type (post|reply)"
//	@Param		language	query	string	false	"Filter by language"
//	@Param		search		query	string	false	"Substring match against content"
//	@Success	200
//	@Router		/api/posts [get]
func (s *Server) handleListPosts(c *fiber.Ctx) error {
	p := parsePageParams(c)

	var filters repository.PostFilters
	if uid := c.QueryInt("user_id", 0); uid > 0 {
		u := uint(uid)
		filters.UserID = &u
	}
	if t := c.Query("type"); t != "" {
		filters.Type = models.PostType(t)
	}
	filters.Language = c.Query("language")
	filters.Search = c.Query("search")

	page, err := s.posts.ListPosts(c.UserContext(), filters, p)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts":      page.Items,
		"pagination": meta(page),
	})
}

// handlePopularPosts returns posts ordered by engagement score.
//
//	@Summary	List popular posts
//	@Tags		posts
//	@Produce	json
//	@Param		page	query	int	false	"Page number"
//	@Param		limit	query	int	false	"Page size (max 50)"
//	@Success	200
//	@Router		/api/posts/popular [get]
func (s *Server) handlePopularPosts(c *fiber.Ctx) error {
	p := parsePageParams(c)

	page, err := s.posts.PopularPosts(c.UserContext(), p)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts":      page.Items,
		"pagination": meta(page),
	})
}

// handleSearchPosts returns posts whose content matches the q parameter.
//
//	@Summary	Search posts
//	@Tags		posts
//	@Produce	json
//	@Param		q		query	string	true	"Search query"
//	@Param		page	query	int		false	"Page number"
//	@Param		limit	query	int		false	"Page size (max 50)"
//	@Success	200
//	@Failure	400	{object}	models.ErrorResponse
//	@Router		/api/posts/search [get]
func (s *Server) handleSearchPosts(c *fiber.Ctx) error {
	p := parsePageParams(c)
	query := c.Query("q")

	page, err := s.posts.SearchPosts(c.UserContext(), query, p)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"posts":      page.Items,
		"search":     query,
		"pagination": meta(page),
	})
}

func (s *Server) handleListReplies(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}
	p := parsePageParams(c)

	page, err := s.posts.Replies(c.UserContext(), id, p)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"replies":    page.Items,
		"pagination": meta(page),
	})
}

func (s *Server) recordEngagement(c *fiber.Ctx, kind service.EngagementKind) error {
	id, err := parseID(c, "id")
	if err != nil {
		return respondServiceError(c, err)
	}

	if err := s.posts.RecordEngagement(c.UserContext(), id, kind); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "recorded"})
}

func (s *Server) handleLikePost(c *fiber.Ctx) error {
	return s.recordEngagement(c, service.EngagementLike)
}

func (s *Server) handleRetweetPost(c *fiber.Ctx) error {
	return s.recordEngagement(c, service.EngagementRetweet)
}

func (s *Server) handleImpression(c *fiber.Ctx) error {
	return s.recordEngagement(c, service.EngagementImpression)
}

func (s *Server) handleClick(c *fiber.Ctx) error {
	return s.recordEngagement(c, service.EngagementClick)
}
