package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"realtime-blog/internal/domain"
	"realtime-blog/internal/repository"
)

// GormPostRepository 是 PostRepository 接口的 GORM 实现
type GormPostRepository struct {
	db *gorm.DB
}

// NewGormPostRepository 创建 GormPostRepository 实例
func NewGormPostRepository(db *gorm.DB) *GormPostRepository {
	if db == nil {
		panic("database connection cannot be nil for GormPostRepository")
	}
	return &GormPostRepository{db: db}
}

// Create 实现插入新文章
func (r *GormPostRepository) Create(ctx context.Context, post *domain.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return fmt.Errorf("gorm: create post (title: %s): %w", post.Title, err)
	}
	return nil
}

// List 实现按筛选条件查询文章列表
func (r *GormPostRepository) List(ctx context.Context, filter repository.PostFilter) ([]domain.Post, error) {
	var posts []domain.Post
	query := r.db.WithContext(ctx).Model(&domain.Post{})
	if filter.Search != "" {
		// 标题子串匹配，大小写规则由数据库排序规则决定
		query = query.Where("title LIKE ?", "%"+filter.Search+"%")
	}
	err := query.Offset(filter.Offset).Limit(filter.Limit).Find(&posts).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list posts: %w", err)
	}
	return posts, nil
}

// ListWithAuthors 实现文章加作者用户名的 JOIN 查询
func (r *GormPostRepository) ListWithAuthors(ctx context.Context) ([]domain.PostWithAuthor, error) {
	var rows []domain.PostWithAuthor
	err := r.db.WithContext(ctx).Model(&domain.Post{}).
		Select("posts.*, users.username AS author_name").
		Joins("JOIN users ON users.id = posts.author_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list posts with authors: %w", err)
	}
	return rows, nil
}

// FindByID 实现根据文章 ID 查找文章
func (r *GormPostRepository) FindByID(ctx context.Context, id uint) (*domain.Post, error) {
	var post domain.Post
	err := r.db.WithContext(ctx).First(&post, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPostNotFound
		}
		return nil, fmt.Errorf("gorm: find post by id %d: %w", id, err)
	}
	return &post, nil
}

// Update 实现部分更新：只写入补丁中出现的字段，并刷新 updated_at。
// 单条 UPDATE 语句，更新后重新读取记录返回。
func (r *GormPostRepository) Update(ctx context.Context, id uint, patch repository.PostPatch) (*domain.Post, error) {
	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Content != nil {
		updates["content"] = *patch.Content
	}
	if patch.Published != nil {
		updates["published"] = *patch.Published
	}
	if patch.AuthorID != nil {
		updates["author_id"] = *patch.AuthorID
	}

	result := r.db.WithContext(ctx).Model(&domain.Post{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, fmt.Errorf("gorm: update post %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, repository.ErrPostNotFound
	}
	return r.FindByID(ctx, id)
}

// Delete 实现删除文章，通过受影响行数判断记录是否存在
func (r *GormPostRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&domain.Post{}, id)
	if result.Error != nil {
		return fmt.Errorf("gorm: delete post %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrPostNotFound
	}
	return nil
}
