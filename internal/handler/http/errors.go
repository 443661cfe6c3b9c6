package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"realtime-blog/internal/service"
)

// HandleServiceError 将 Service 层错误映射为结构化的 HTTP 错误响应。
func HandleServiceError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrConflict) {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	} else if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrPostNotFound) {
		ErrorResponse(c, http.StatusNotFound, err.Error())
	} else {
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
