package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realtime-blog/internal/domain"
	"realtime-blog/internal/repository"
	"realtime-blog/internal/repository/mocks"
	"realtime-blog/internal/service"
)

func newPostService(t *testing.T) (*service.PostService, *mocks.PostRepository, *mocks.UserRepository) {
	t.Helper()
	mockPostRepo := new(mocks.PostRepository)
	mockUserRepo := new(mocks.UserRepository)
	return service.NewPostService(mockPostRepo, mockUserRepo), mockPostRepo, mockUserRepo
}

// --- 测试 Create 方法 ---

func TestPostService_Create_Success(t *testing.T) {
	// Arrange
	postService, mockPostRepo, mockUserRepo := newPostService(t)
	ctx := context.Background()
	author := &domain.User{ID: 7, Username: "alice"}

	mockUserRepo.On("FindByID", ctx, uint(7)).Return(author, nil).Once()
	mockPostRepo.On("Create", ctx, mock.MatchedBy(func(post *domain.Post) bool {
		assert.Equal(t, "Hello", post.Title)
		assert.Equal(t, "World", post.Content)
		assert.Equal(t, uint(7), post.AuthorID)
		assert.False(t, post.Published)
		return true
	})).
		Run(func(args mock.Arguments) {
			postArg := args.Get(1).(*domain.Post)
			postArg.ID = 3
			postArg.CreatedAt = time.Now()
		}).
		Return(nil).
		Once()

	// Act
	post, err := postService.Create(ctx, 7, service.CreatePostInput{Title: "Hello", Content: "World"})

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, uint(3), post.ID)
	assert.Equal(t, uint(7), post.AuthorID, "author_id 应与创建者一致")
	assert.Nil(t, post.UpdatedAt, "首次更新前 updated_at 应为 nil")

	mockPostRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
}

func TestPostService_Create_AuthorNotFound(t *testing.T) {
	// Arrange
	postService, mockPostRepo, mockUserRepo := newPostService(t)
	ctx := context.Background()

	mockUserRepo.On("FindByID", ctx, uint(999999)).Return(nil, repository.ErrUserNotFound).Once()

	// Act
	_, err := postService.Create(ctx, 999999, service.CreatePostInput{Title: "Hello", Content: "World"})

	// Assert
	require.Error(t, err, "作者不存在时应返回错误")
	assert.True(t, errors.Is(err, service.ErrUserNotFound))
	// 不应写入任何悬空引用
	mockPostRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)

	mockUserRepo.AssertExpectations(t)
}

// --- 测试 Update 方法 ---

func TestPostService_Update_PartialPatch(t *testing.T) {
	// Arrange
	postService, mockPostRepo, _ := newPostService(t)
	ctx := context.Background()
	published := true
	now := time.Now()
	updated := &domain.Post{
		ID:        3,
		Title:     "Hello",
		Content:   "World",
		Published: true,
		AuthorID:  7,
		UpdatedAt: &now,
	}

	// 只带 published 的补丁不应触碰 title/content
	mockPostRepo.On("Update", ctx, uint(3), mock.MatchedBy(func(patch repository.PostPatch) bool {
		assert.Nil(t, patch.Title, "未提供的字段不应出现在补丁中")
		assert.Nil(t, patch.Content)
		assert.Nil(t, patch.AuthorID)
		require.NotNil(t, patch.Published)
		assert.True(t, *patch.Published)
		return true
	})).Return(updated, nil).Once()

	// Act
	post, err := postService.Update(ctx, 3, repository.PostPatch{Published: &published})

	// Assert
	assert.NoError(t, err)
	require.NotNil(t, post)
	assert.Equal(t, "Hello", post.Title, "title 应保持不变")
	assert.True(t, post.Published)
	assert.NotNil(t, post.UpdatedAt, "updated_at 应被刷新")

	mockPostRepo.AssertExpectations(t)
}

func TestPostService_Update_NotFound(t *testing.T) {
	// Arrange
	postService, mockPostRepo, _ := newPostService(t)
	ctx := context.Background()
	title := "New Title"

	mockPostRepo.On("Update", ctx, uint(999999), mock.Anything).Return(nil, repository.ErrPostNotFound).Once()

	// Act
	_, err := postService.Update(ctx, 999999, repository.PostPatch{Title: &title})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrPostNotFound))

	mockPostRepo.AssertExpectations(t)
}

func TestPostService_Update_NewAuthorNotFound(t *testing.T) {
	// Arrange: Web 编辑表单允许改作者，新作者必须存在
	postService, mockPostRepo, mockUserRepo := newPostService(t)
	ctx := context.Background()
	authorID := uint(42)

	mockUserRepo.On("FindByID", ctx, uint(42)).Return(nil, repository.ErrUserNotFound).Once()

	// Act
	_, err := postService.Update(ctx, 3, repository.PostPatch{AuthorID: &authorID})

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrUserNotFound))
	mockPostRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)

	mockUserRepo.AssertExpectations(t)
}

// --- 测试 Get / Delete 方法 ---

func TestPostService_Get_NotFound(t *testing.T) {
	// Arrange
	postService, mockPostRepo, _ := newPostService(t)
	ctx := context.Background()

	mockPostRepo.On("FindByID", ctx, uint(999999)).Return(nil, repository.ErrPostNotFound).Once()

	// Act
	_, err := postService.Get(ctx, 999999)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrPostNotFound))

	mockPostRepo.AssertExpectations(t)
}

func TestPostService_Delete_NotFound(t *testing.T) {
	// Arrange
	postService, mockPostRepo, _ := newPostService(t)
	ctx := context.Background()

	mockPostRepo.On("Delete", ctx, uint(999999)).Return(repository.ErrPostNotFound).Once()

	// Act
	err := postService.Delete(ctx, 999999)

	// Assert
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrPostNotFound))

	mockPostRepo.AssertExpectations(t)
}

// --- 测试 List 方法 ---

func TestPostService_List_SearchFilter(t *testing.T) {
	// Arrange
	postService, mockPostRepo, _ := newPostService(t)
	ctx := context.Background()

	expected := []domain.Post{{ID: 1, Title: "Hello Go"}}
	mockPostRepo.On("List", ctx, repository.PostFilter{Search: "Go", Offset: 0, Limit: 100}).
		Return(expected, nil).
		Once()

	// Act
	posts, err := postService.List(ctx, "Go", 0, 0)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, expected, posts)

	mockPostRepo.AssertExpectations(t)
}
