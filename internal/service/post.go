package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"realtime-blog/internal/domain"
	"realtime-blog/internal/repository"
)

// CreatePostInput 是创建文章的输入参数。
type CreatePostInput struct {
	Title     string
	Content   string
	Published bool
}

// PostService 负责文章相关的业务逻辑。
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
}

// NewPostService 创建 PostService 实例。
func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository) *PostService {
	if postRepo == nil {
		panic("PostRepository cannot be nil for PostService")
	}
	if userRepo == nil {
		panic("UserRepository cannot be nil for PostService")
	}
	return &PostService{postRepo: postRepo, userRepo: userRepo}
}

// Create 以指定作者创建一篇文章。
// 写入前检查作者存在，不存在时返回 ErrUserNotFound，不会留下悬空引用。
func (s *PostService) Create(ctx context.Context, authorID uint, input CreatePostInput) (*domain.Post, error) {
	logCtx := logrus.WithFields(logrus.Fields{"author_id": authorID, "title": input.Title})

	if _, err := s.userRepo.FindByID(ctx, authorID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			logCtx.Warn("Post creation rejected: author not found")
			return nil, ErrUserNotFound
		}
		logCtx.WithError(err).Error("Failed to check author existence")
		return nil, ErrInternalServer
	}

	post := &domain.Post{
		Title:     input.Title,
		Content:   input.Content,
		Published: input.Published,
		AuthorID:  authorID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		logCtx.WithError(err).Error("Failed to save new post to database")
		return nil, ErrInternalServer
	}

	logCtx.WithField("post_id", post.ID).Info("Post created successfully")
	return post, nil
}

// List 按筛选条件返回文章列表。limit <= 0 时使用默认窗口 100。
func (s *PostService) List(ctx context.Context, search string, skip, limit int) ([]domain.Post, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = 100
	}
	posts, err := s.postRepo.List(ctx, repository.PostFilter{Search: search, Offset: skip, Limit: limit})
	if err != nil {
		logrus.WithError(err).Error("Failed to list posts")
		return nil, ErrInternalServer
	}
	return posts, nil
}

// ListWithAuthors 返回所有文章及作者用户名，供 Web 列表页使用。
func (s *PostService) ListWithAuthors(ctx context.Context) ([]domain.PostWithAuthor, error) {
	rows, err := s.postRepo.ListWithAuthors(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list posts with authors")
		return nil, ErrInternalServer
	}
	return rows, nil
}

// Get 根据 ID 返回一篇文章。
func (s *PostService) Get(ctx context.Context, id uint) (*domain.Post, error) {
	post, err := s.postRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			return nil, ErrPostNotFound
		}
		logrus.WithError(err).WithField("post_id", id).Error("Failed to find post")
		return nil, ErrInternalServer
	}
	return post, nil
}

// GetAuthor 返回指定用户，供文章详情页展示作者信息。
func (s *PostService) GetAuthor(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to find author")
		return nil, ErrInternalServer
	}
	return user, nil
}

// Update 对指定文章应用部分更新。
// 补丁包含 AuthorID 时先检查新作者存在 (Web 编辑表单允许改作者)。
func (s *PostService) Update(ctx context.Context, id uint, patch repository.PostPatch) (*domain.Post, error) {
	logCtx := logrus.WithField("post_id", id)

	if patch.AuthorID != nil {
		if _, err := s.userRepo.FindByID(ctx, *patch.AuthorID); err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				logCtx.Warn("Post update rejected: new author not found")
				return nil, ErrUserNotFound
			}
			logCtx.WithError(err).Error("Failed to check new author existence")
			return nil, ErrInternalServer
		}
	}

	post, err := s.postRepo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			logCtx.Warn("Post update rejected: post not found")
			return nil, ErrPostNotFound
		}
		logCtx.WithError(err).Error("Failed to update post")
		return nil, ErrInternalServer
	}

	logCtx.Info("Post updated successfully")
	return post, nil
}

// Delete 删除指定文章。
func (s *PostService) Delete(ctx context.Context, id uint) error {
	logCtx := logrus.WithField("post_id", id)

	if err := s.postRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrPostNotFound) {
			logCtx.Warn("Post deletion rejected: post not found")
			return ErrPostNotFound
		}
		logCtx.WithError(err).Error("Failed to delete post")
		return ErrInternalServer
	}

	logCtx.Info("Post deleted successfully")
	return nil
}
