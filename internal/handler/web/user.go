// Package web 实现服务端渲染层：表单输入、HTML 视图、写后重定向。
// 校验规则与 JSON API 相同，成功的变更以 303 重定向到规范视图 URL。
package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realtime-blog/internal/service"
)

// webListLimit 是 Web 页面一次取出的最大记录数。
const webListLimit = 1000

// UserHandler 封装用户相关的页面处理逻辑
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler 创建 web.UserHandler 实例
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Home 处理 GET / — 首页
func (h *UserHandler) Home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{"title": "Realtime Blog"})
}

// List 处理 GET /web/users — 用户列表页
func (h *UserHandler) List(c *gin.Context) {
	users, err := h.userService.List(c.Request.Context(), 0, webListLimit)
	if err != nil {
		c.HTML(http.StatusInternalServerError, "users_list.html", gin.H{
			"title": "Users List",
			"error": "Failed to load users",
		})
		return
	}
	c.HTML(http.StatusOK, "users_list.html", gin.H{
		"title": "Users List",
		"users": users,
	})
}

// CreateForm 处理 GET /web/users/create — 用户创建表单
func (h *UserHandler) CreateForm(c *gin.Context) {
	c.HTML(http.StatusOK, "users_create.html", gin.H{"title": "Create User"})
}

// Create 处理 POST /web/users/create — 提交用户创建表单。
// 冲突时带错误信息和已填写的值重新渲染表单 (400)，成功时 303 到列表页。
func (h *UserHandler) Create(c *gin.Context) {
	username := c.PostForm("username")
	email := c.PostForm("email")
	password := c.PostForm("password")
	isActive := formBool(c, "is_active", true)

	if username == "" || email == "" || password == "" {
		c.HTML(http.StatusBadRequest, "users_create.html", gin.H{
			"title":     "Create User",
			"error":     "Username, email and password are required",
			"username":  username,
			"email":     email,
			"is_active": isActive,
		})
		return
	}

	_, err := h.userService.Create(c.Request.Context(), service.CreateUserInput{
		Username: username,
		Email:    email,
		Password: password,
		IsActive: isActive,
	})
	if err != nil {
		status := http.StatusInternalServerError
		message := "Failed to create user"
		if errors.Is(err, service.ErrConflict) {
			status = http.StatusBadRequest
			message = "Username or email already registered"
		} else {
			logrus.WithError(err).Error("Web.CreateUser: service failure")
		}
		c.HTML(status, "users_create.html", gin.H{
			"title":     "Create User",
			"error":     message,
			"username":  username,
			"email":     email,
			"is_active": isActive,
		})
		return
	}

	c.Redirect(http.StatusSeeOther, "/web/users")
}

// formBool 解析复选框/布尔表单字段，字段缺失时返回默认值。
func formBool(c *gin.Context, name string, def bool) bool {
	v, ok := c.GetPostForm(name)
	if !ok || v == "" {
		return def
	}
	switch v {
	case "on", "true", "1", "yes":
		return true
	default:
		return false
	}
}
