package repository

import (
	"context"

	"realtime-blog/internal/domain"
)

// UserRepository 定义了用户数据的存储和检索操作。
type UserRepository interface {
	// Create 插入一个新用户。
	// 如果用户名或邮箱已存在，返回 ErrDuplicateEntry。
	Create(ctx context.Context, user *domain.User) error

	// List 按 offset/limit 分页返回用户列表，顺序与插入顺序无关。
	List(ctx context.Context, offset, limit int) ([]domain.User, error)

	// FindByID 根据用户 ID 查找用户。
	// 如果用户不存在，返回 ErrUserNotFound。
	FindByID(ctx context.Context, id uint) (*domain.User, error)
}
