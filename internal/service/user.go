// Package service 实现业务逻辑层，位于 HTTP 处理器和存储库之间。
package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"realtime-blog/internal/domain"
	"realtime-blog/internal/repository"
)

// CreateUserInput 是创建用户的输入参数。
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	IsActive bool
}

// UserService 负责用户相关的业务逻辑。
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService 创建 UserService 实例。
func NewUserService(userRepo repository.UserRepository) *UserService {
	if userRepo == nil {
		panic("UserRepository cannot be nil for UserService")
	}
	return &UserService{userRepo: userRepo}
}

// Create 创建一个新用户。
// 用户名或邮箱已被占用时返回 ErrConflict，唯一性由数据库唯一索引保证。
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	logCtx := logrus.WithFields(logrus.Fields{"username": input.Username, "email": input.Email})

	user := &domain.User{
		Username: input.Username,
		Email:    input.Email,
		Password: input.Password, // 按原样存储，不做哈希
		IsActive: input.IsActive,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Warn("User creation rejected: username or email already taken")
			return nil, ErrConflict
		}
		logCtx.WithError(err).Error("Failed to save new user to database")
		return nil, ErrInternalServer
	}

	logCtx.WithField("user_id", user.ID).Info("User created successfully")
	return user, nil
}

// List 按分页窗口返回用户列表。limit <= 0 时使用默认窗口 100。
func (s *UserService) List(ctx context.Context, skip, limit int) ([]domain.User, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	users, err := s.userRepo.List(ctx, skip, limit)
	if err != nil {
		logrus.WithError(err).Error("Failed to list users")
		return nil, ErrInternalServer
	}
	return users, nil
}
