package repository

import (
	"context"

	"realtime-blog/internal/domain"
)

// PostFilter 描述文章列表查询的筛选条件。
type PostFilter struct {
	Search string // 标题子串匹配，空串表示不过滤
	Offset int
	Limit  int
}

// PostPatch 是部分更新的显式补丁结构：只有非 nil 的字段会被写入，
// 补丁内容不依赖请求体里字段出现的顺序。
type PostPatch struct {
	Title     *string
	Content   *string
	Published *bool
	AuthorID  *uint
}

// Empty 报告补丁是否不包含任何字段。
func (p PostPatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.Published == nil && p.AuthorID == nil
}

// PostRepository 定义了文章数据的存储和检索操作。
// 所有操作都在单条语句/单个事务级别保持原子性。
type PostRepository interface {
	// Create 插入一篇新文章。作者存在性由调用方 (Service) 检查。
	Create(ctx context.Context, post *domain.Post) error

	// List 按筛选条件返回文章列表。
	List(ctx context.Context, filter PostFilter) ([]domain.Post, error)

	// ListWithAuthors 返回所有文章及其作者用户名 (查询时 JOIN)。
	ListWithAuthors(ctx context.Context) ([]domain.PostWithAuthor, error)

	// FindByID 根据文章 ID 查找文章。
	// 如果文章不存在，返回 ErrPostNotFound。
	FindByID(ctx context.Context, id uint) (*domain.Post, error)

	// Update 对指定文章应用补丁，只覆盖补丁中出现的字段，
	// 并刷新 updated_at。返回更新后的文章。
	// 如果文章不存在，返回 ErrPostNotFound。
	Update(ctx context.Context, id uint, patch PostPatch) (*domain.Post, error)

	// Delete 删除指定文章。如果文章不存在，返回 ErrPostNotFound。
	Delete(ctx context.Context, id uint) error
}
