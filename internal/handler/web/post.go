package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realtime-blog/internal/domain"
	"realtime-blog/internal/hub"
	"realtime-blog/internal/repository"
	"realtime-blog/internal/service"
)

// PostHandler 封装文章相关的页面处理逻辑。
// 变更操作在数据库提交成功后调用通知中继广播事件 (尽力而为，无事务耦合)。
type PostHandler struct {
	postService *service.PostService
	userService *service.UserService
	hub         *hub.Hub
}

// NewPostHandler 创建 web.PostHandler 实例
func NewPostHandler(postService *service.PostService, userService *service.UserService, h *hub.Hub) *PostHandler {
	if h == nil {
		panic("Hub cannot be nil for web.PostHandler")
	}
	return &PostHandler{postService: postService, userService: userService, hub: h}
}

// List 处理 GET /web/posts — 文章列表页。
// ?format=json 时以 JSON 返回同一数据，供列表页脚本刷新使用。
func (h *PostHandler) List(c *gin.Context) {
	rows, err := h.postService.ListWithAuthors(c.Request.Context())
	if err != nil {
		c.HTML(http.StatusInternalServerError, "posts_list.html", gin.H{
			"title": "Posts List",
			"error": "Failed to load posts",
		})
		return
	}

	if c.Query("format") == "json" {
		posts := make([]gin.H, 0, len(rows))
		for _, row := range rows {
			posts = append(posts, gin.H{
				"id":         row.ID,
				"title":      row.Title,
				"author":     row.AuthorName,
				"published":  row.Published,
				"created_at": row.CreatedAt,
				"author_id":  row.AuthorID,
			})
		}
		c.JSON(http.StatusOK, gin.H{"posts": posts})
		return
	}

	c.HTML(http.StatusOK, "posts_list.html", gin.H{
		"title": "Posts List",
		"posts": rows,
	})
}

// CreateForm 处理 GET /web/posts/create — 文章创建表单 (含作者下拉框)
func (h *PostHandler) CreateForm(c *gin.Context) {
	users, _ := h.userService.List(c.Request.Context(), 0, webListLimit)
	c.HTML(http.StatusOK, "posts_create.html", gin.H{
		"title": "Create Post",
		"users": users,
	})
}

// Create 处理 POST /web/posts/create — 提交文章创建表单。
// 成功后广播 new_post 和 posts_list_update，303 到列表页。
func (h *PostHandler) Create(c *gin.Context) {
	title := c.PostForm("title")
	content := c.PostForm("content")
	published := formBool(c, "published", false)
	authorID, authorErr := strconv.ParseUint(c.PostForm("author_id"), 10, 32)

	renderError := func(status int, message string) {
		users, _ := h.userService.List(c.Request.Context(), 0, webListLimit)
		c.HTML(status, "posts_create.html", gin.H{
			"title":      "Create Post",
			"error":      message,
			"post_title": title,
			"content":    content,
			"published":  published,
			"users":      users,
		})
	}

	if title == "" || content == "" || authorErr != nil {
		renderError(http.StatusBadRequest, "Title, content and author are required")
		return
	}

	post, err := h.postService.Create(c.Request.Context(), uint(authorID), service.CreatePostInput{
		Title:     title,
		Content:   content,
		Published: published,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			renderError(http.StatusBadRequest, fmt.Sprintf("User with ID %d not found", authorID))
		} else {
			logrus.WithError(err).Error("Web.CreatePost: service failure")
			renderError(http.StatusInternalServerError, "Failed to create post")
		}
		return
	}

	// 提交成功后异步通知中继，无送达保证
	go func(p *domain.Post) {
		h.hub.BroadcastNewPost(p)
		h.hub.BroadcastPostsListUpdate()
	}(post)

	c.Redirect(http.StatusSeeOther, "/web/posts")
}

// Detail 处理 GET /web/posts/:id — 文章详情页
func (h *PostHandler) Detail(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}

	post, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	// 作者单独查询，不维护对象图；作者缺失时页面照常渲染
	author, err := h.postService.GetAuthor(c.Request.Context(), post.AuthorID)
	if err != nil {
		author = nil
	}

	c.HTML(http.StatusOK, "posts_detail.html", gin.H{
		"title":  post.Title,
		"post":   post,
		"author": author,
	})
}

// EditForm 处理 GET /web/posts/:id/edit — 文章编辑表单
func (h *PostHandler) EditForm(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}

	post, err := h.postService.Get(c.Request.Context(), id)
	if err != nil {
		h.renderServiceError(c, err)
		return
	}

	users, _ := h.userService.List(c.Request.Context(), 0, webListLimit)
	c.HTML(http.StatusOK, "posts_edit.html", gin.H{
		"title": fmt.Sprintf("Edit Post: %s", post.Title),
		"post":  post,
		"users": users,
	})
}

// Update 处理 POST /web/posts/:id/edit — 提交编辑表单。
// 编辑表单允许更换作者；成功后向 post_<id> 房间广播 update 事件，
// 303 到详情页。
func (h *PostHandler) Update(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}

	title := c.PostForm("title")
	content := c.PostForm("content")
	published := formBool(c, "published", false)
	authorID64, authorErr := strconv.ParseUint(c.PostForm("author_id"), 10, 32)

	if title == "" || content == "" || authorErr != nil {
		// 校验失败时带着已存储的文章内容重新渲染表单
		existing, getErr := h.postService.Get(c.Request.Context(), id)
		if getErr != nil {
			h.renderServiceError(c, getErr)
			return
		}
		users, _ := h.userService.List(c.Request.Context(), 0, webListLimit)
		c.HTML(http.StatusBadRequest, "posts_edit.html", gin.H{
			"title": fmt.Sprintf("Edit Post: %s", existing.Title),
			"error": "Title, content and author are required",
			"post":  existing,
			"users": users,
		})
		return
	}
	authorID := uint(authorID64)

	post, err := h.postService.Update(c.Request.Context(), id, repository.PostPatch{
		Title:     &title,
		Content:   &content,
		Published: &published,
		AuthorID:  &authorID,
	})
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			existing, getErr := h.postService.Get(c.Request.Context(), id)
			users, _ := h.userService.List(c.Request.Context(), 0, webListLimit)
			if getErr != nil {
				h.renderServiceError(c, getErr)
				return
			}
			c.HTML(http.StatusBadRequest, "posts_edit.html", gin.H{
				"title": fmt.Sprintf("Edit Post: %s", existing.Title),
				"error": fmt.Sprintf("User with ID %d not found", authorID),
				"post":  existing,
				"users": users,
			})
			return
		}
		h.renderServiceError(c, err)
		return
	}

	go h.hub.BroadcastPostUpdate(id, "update", post)

	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/web/posts/%d", id))
}

// Delete 处理 POST /web/posts/:id/delete。
// 成功后广播 delete 事件和列表变更事件，303 到列表页。
func (h *PostHandler) Delete(c *gin.Context) {
	id, ok := postIDParam(c)
	if !ok {
		return
	}

	if err := h.postService.Delete(c.Request.Context(), id); err != nil {
		h.renderServiceError(c, err)
		return
	}

	go func() {
		h.hub.BroadcastPostUpdate(id, "delete", gin.H{})
		h.hub.BroadcastPostsListUpdate()
	}()

	c.Redirect(http.StatusSeeOther, "/web/posts")
}

// renderServiceError 将 Service 错误映射为页面响应。
func (h *PostHandler) renderServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrPostNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return
	}
	logrus.WithError(err).Error("Web: unhandled service error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "An unexpected error occurred"})
}

// postIDParam 解析 URL 中的文章 ID，无效时写出 404 并返回 false。
func postIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Post not found"})
		return 0, false
	}
	return uint(id), true
}
