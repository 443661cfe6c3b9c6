package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"realtime-blog/internal/infra/setup"
)

// HealthHandler 提供数据库连通性健康检查
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler 创建 HealthHandler 实例
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// CheckDB 处理 GET /check-db。
// 连接失败不作为故障传播，而是以结构化状态负载报告。
func (h *HealthHandler) CheckDB(c *gin.Context) {
	if err := setup.CheckDB(c.Request.Context(), h.db); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"status":  "error",
			"message": fmt.Sprintf("Database connection failed: %v", err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Connected to database successfully!",
	})
}
