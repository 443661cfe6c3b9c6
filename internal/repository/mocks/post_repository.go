package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"realtime-blog/internal/domain"
	"realtime-blog/internal/repository"
)

// PostRepository 是 repository.PostRepository 的 mock 实现
type PostRepository struct {
	mock.Mock
}

func (m *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	args := m.Called(ctx, post)
	return args.Error(0)
}

func (m *PostRepository) List(ctx context.Context, filter repository.PostFilter) ([]domain.Post, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Post), args.Error(1)
}

func (m *PostRepository) ListWithAuthors(ctx context.Context) ([]domain.PostWithAuthor, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.PostWithAuthor), args.Error(1)
}

func (m *PostRepository) FindByID(ctx context.Context, id uint) (*domain.Post, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *PostRepository) Update(ctx context.Context, id uint, patch repository.PostPatch) (*domain.Post, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Post), args.Error(1)
}

func (m *PostRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
