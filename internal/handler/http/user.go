package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realtime-blog/internal/domain"
	"realtime-blog/internal/service"
)

// UserHandler 封装了用户相关的 JSON API 处理逻辑
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 创建 UserHandler 实例
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// CreateUserRequest 定义创建用户请求的结构体
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	IsActive *bool  `json:"is_active"` // 省略时默认 true
}

// Create 处理 POST /users/
func (h *UserHandler) Create(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateUser: invalid input format")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: username, email and password are required")
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	user, err := h.userService.Create(c.Request.Context(), service.CreateUserInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		IsActive: isActive,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	SuccessResponse(c, http.StatusCreated, user)
}

// List 处理 GET /users/?skip=&limit=
func (h *UserHandler) List(c *gin.Context) {
	skip, limit := paginationParams(c)

	users, err := h.userService.List(c.Request.Context(), skip, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	if users == nil {
		users = []domain.User{} // 空结果序列化为 [] 而不是 null
	}
	SuccessResponse(c, http.StatusOK, users)
}

// paginationParams 解析 skip/limit 查询参数，默认窗口 0..100。
func paginationParams(c *gin.Context) (int, int) {
	skip, err := strconv.Atoi(c.DefaultQuery("skip", "0"))
	if err != nil || skip < 0 {
		skip = 0
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	return skip, limit
}
