package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realtime-blog/internal/domain"
	"realtime-blog/internal/repository"
	"realtime-blog/internal/service"
)

// PostHandler 封装了文章相关的 JSON API 处理逻辑
type PostHandler struct {
	postService *service.PostService
}

// NewPostHandler 创建 PostHandler 实例
func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{postService: postService}
}

// CreatePostRequest 定义创建文章请求的结构体
type CreatePostRequest struct {
	Title     string `json:"title" binding:"required"`
	Content   string `json:"content" binding:"required"`
	Published *bool  `json:"published"` // 省略时默认 false
}

// UpdatePostRequest 定义部分更新请求的结构体：只有出现的字段会被覆盖。
type UpdatePostRequest struct {
	Title     *string `json:"title"`
	Content   *string `json:"content"`
	Published *bool   `json:"published"`
}

// Create 处理 POST /posts/?user_id=<id>
// 作者 ID 只接受查询参数，不读请求体。
func (h *PostHandler) Create(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid or missing user_id query parameter")
		return
	}

	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreatePost: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: title and content are required")
		return
	}

	published := false
	if req.Published != nil {
		published = *req.Published
	}

	post, err := h.postService.Create(c.Request.Context(), uint(userID), service.CreatePostInput{
		Title:     req.Title,
		Content:   req.Content,
		Published: published,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, post)
}

// List 处理 GET /posts/?skip=&limit=&search=
func (h *PostHandler) List(c *gin.Context) {
	skip, limit := paginationParams(c)
	search := c.Query("search")

	posts, err := h.postService.List(c.Request.Context(), search, skip, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	SuccessResponse(c, http.StatusOK, posts)
}

// Get 处理 GET /posts/:id
func (h *PostHandler) Get(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}

	post, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, post)
}

// Update 处理 PUT /posts/:id — 部分更新 {title, content, published} 的任意子集。
func (h *PostHandler) Update(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}

	var req UpdatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.UpdatePost: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input")
		return
	}

	post, err := h.postService.Update(c.Request.Context(), id, repository.PostPatch{
		Title:     req.Title,
		Content:   req.Content,
		Published: req.Published,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, post)
}

// Delete 处理 DELETE /posts/:id
func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}

	if err := h.postService.Delete(c.Request.Context(), id); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// postIDParam 解析 URL 中的文章 ID，无效时写出 400 并返回 false。
func postIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid post id")
		return 0, false
	}
	return uint(id), true
}
