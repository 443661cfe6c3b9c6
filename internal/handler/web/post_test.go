package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"realtime-blog/internal/domain"
	"realtime-blog/internal/handler/web"
	wshandler "realtime-blog/internal/handler/websocket"
	"realtime-blog/internal/hub"
	"realtime-blog/internal/repository"
	"realtime-blog/internal/repository/mocks"
	"realtime-blog/internal/service"
)

// setupWebRouter 装配页面路由和一个运行中的通知中继，广播路径走真实的 Hub。
func setupWebRouter(t *testing.T, mockPostRepo *mocks.PostRepository, mockUserRepo *mocks.UserRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	postService := service.NewPostService(mockPostRepo, mockUserRepo)
	userService := service.NewUserService(mockUserRepo)
	relay := hub.NewHub(nil, "blog:")
	go relay.Run()
	t.Cleanup(relay.Stop)

	h := web.NewPostHandler(postService, userService, relay)
	r := gin.New()
	r.LoadHTMLGlob("../../../web/templates/*.html")
	r.GET("/web/posts", h.List)
	r.POST("/web/posts/create", h.Create)
	r.GET("/web/posts/:id", h.Detail)
	r.POST("/web/posts/:id/edit", h.Update)
	r.POST("/web/posts/:id/delete", h.Delete)
	r.GET("/ws", wshandler.NewWebSocketHandler(relay).HandleConnection)
	return r
}

// dialRelay 建立到 /ws 的 WebSocket 连接。
func dialRelay(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// sendRelayEvent 向中继发送一条客户端事件。
func sendRelayEvent(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{"event": event, "data": data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, payload))
}

// readRelayEvent 在限定时间内读取并解析一条中继事件。
func readRelayEvent(t *testing.T, conn *websocket.Conn) (string, map[string]interface{}) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg struct {
		Event string                 `json:"event"`
		Data  map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg.Event, msg.Data
}

// noRedirectClient 不跟随重定向，便于断言 303 响应本身。
func noRedirectClient() *http.Client {
	return &http.Client{CheckRedirect: func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func TestWebUpdatePost_BroadcastsRoomUpdate(t *testing.T) {
	// Arrange
	mockPostRepo := new(mocks.PostRepository)
	mockUserRepo := new(mocks.UserRepository)
	now := time.Now()
	mockUserRepo.On("FindByID", mock.Anything, uint(7)).
		Return(&domain.User{ID: 7, Username: "alice"}, nil).
		Once()
	mockPostRepo.On("Update", mock.Anything, uint(3), mock.MatchedBy(func(patch repository.PostPatch) bool {
		return patch.Title != nil && *patch.Title == "New Title" &&
			patch.Content != nil && patch.Published != nil && patch.AuthorID != nil
	})).
		Return(&domain.Post{ID: 3, Title: "New Title", Content: "World", Published: true, AuthorID: 7, UpdatedAt: &now}, nil).
		Once()
	server := httptest.NewServer(setupWebRouter(t, mockPostRepo, mockUserRepo))
	defer server.Close()

	conn := dialRelay(t, server)
	sendRelayEvent(t, conn, "join_post_room", map[string]interface{}{"post_id": 3})
	event, data := readRelayEvent(t, conn)
	require.Equal(t, "room_joined", event)
	require.Equal(t, "post_3", data["room"])

	// Act
	form := url.Values{
		"title":     {"New Title"},
		"content":   {"World"},
		"published": {"on"},
		"author_id": {"7"},
	}
	resp, err := noRedirectClient().PostForm(server.URL+"/web/posts/3/edit", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Assert: 提交成功后 303 到详情页
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/web/posts/3", resp.Header.Get("Location"))

	// 房间成员恰好收到一条 update 事件
	event, data = readRelayEvent(t, conn)
	assert.Equal(t, "post_update", event)
	assert.Equal(t, "update", data["type"])
	assert.Equal(t, float64(3), data["post_id"])
	payload, ok := data["data"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "New Title", payload["title"])

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "编辑提交只应触发一条房间广播")

	mockPostRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
}

func TestWebDeletePost_BroadcastsDeleteAndListUpdate(t *testing.T) {
	// Arrange
	mockPostRepo := new(mocks.PostRepository)
	mockUserRepo := new(mocks.UserRepository)
	mockPostRepo.On("Delete", mock.Anything, uint(3)).Return(nil).Once()
	server := httptest.NewServer(setupWebRouter(t, mockPostRepo, mockUserRepo))
	defer server.Close()

	conn := dialRelay(t, server)
	sendRelayEvent(t, conn, "join_post_room", map[string]interface{}{"post_id": 3})
	event, _ := readRelayEvent(t, conn)
	require.Equal(t, "room_joined", event)

	// Act
	resp, err := noRedirectClient().PostForm(server.URL+"/web/posts/3/delete", url.Values{})
	require.NoError(t, err)
	defer resp.Body.Close()

	// Assert: 303 到列表页
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/web/posts", resp.Header.Get("Location"))

	// 先收到房间内的 delete 事件，再收到全局的列表变更事件
	event, data := readRelayEvent(t, conn)
	assert.Equal(t, "post_update", event)
	assert.Equal(t, "delete", data["type"])
	assert.Equal(t, float64(3), data["post_id"])

	event, _ = readRelayEvent(t, conn)
	assert.Equal(t, "posts_list_update", event)

	mockPostRepo.AssertExpectations(t)
}

func TestWebCreatePost_BroadcastsNewPost(t *testing.T) {
	// Arrange
	mockPostRepo := new(mocks.PostRepository)
	mockUserRepo := new(mocks.UserRepository)
	mockUserRepo.On("FindByID", mock.Anything, uint(7)).
		Return(&domain.User{ID: 7, Username: "alice"}, nil).
		Once()
	mockPostRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Post")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Post).ID = 3
		}).
		Return(nil).
		Once()
	server := httptest.NewServer(setupWebRouter(t, mockPostRepo, mockUserRepo))
	defer server.Close()

	// ping/pong 确认会话已注册完成
	conn := dialRelay(t, server)
	sendRelayEvent(t, conn, "ping", nil)
	event, _ := readRelayEvent(t, conn)
	require.Equal(t, "pong", event)

	// Act
	form := url.Values{
		"title":     {"Hello"},
		"content":   {"World"},
		"author_id": {"7"},
	}
	resp, err := noRedirectClient().PostForm(server.URL+"/web/posts/create", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	// Assert: 303 到列表页
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/web/posts", resp.Header.Get("Location"))

	// 所有会话先收到 new_post，再收到列表变更事件
	event, data := readRelayEvent(t, conn)
	assert.Equal(t, "new_post", event)
	post, ok := data["post"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Hello", post["title"])
	assert.Equal(t, float64(3), post["id"])

	event, _ = readRelayEvent(t, conn)
	assert.Equal(t, "posts_list_update", event)

	mockPostRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
}

func TestWebListPosts_JSONFormat(t *testing.T) {
	// Arrange
	mockPostRepo := new(mocks.PostRepository)
	mockUserRepo := new(mocks.UserRepository)
	mockPostRepo.On("ListWithAuthors", mock.Anything).
		Return([]domain.PostWithAuthor{
			{Post: domain.Post{ID: 1, Title: "Hello", Published: true, AuthorID: 7}, AuthorName: "alice"},
		}, nil).
		Once()
	r := setupWebRouter(t, mockPostRepo, mockUserRepo)

	req, _ := http.NewRequest("GET", "/web/posts?format=json", nil)
	w := httptest.NewRecorder()

	// Act
	r.ServeHTTP(w, req)

	// Assert
	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Posts []map[string]interface{} `json:"posts"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Posts, 1)
	assert.Equal(t, float64(1), resp.Posts[0]["id"])
	assert.Equal(t, "Hello", resp.Posts[0]["title"])
	assert.Equal(t, "alice", resp.Posts[0]["author"])
	assert.Equal(t, true, resp.Posts[0]["published"])
	assert.Equal(t, float64(7), resp.Posts[0]["author_id"])

	mockPostRepo.AssertExpectations(t)
}

func TestWebEditPost_ValidationErrorKeepsForm(t *testing.T) {
	// Arrange: 缺 title 的提交应带着已存储的文章内容重新渲染表单
	mockPostRepo := new(mocks.PostRepository)
	mockUserRepo := new(mocks.UserRepository)
	mockPostRepo.On("FindByID", mock.Anything, uint(3)).
		Return(&domain.Post{ID: 3, Title: "Hello", Content: "World", AuthorID: 7}, nil).
		Once()
	mockUserRepo.On("List", mock.Anything, 0, mock.AnythingOfType("int")).
		Return([]domain.User{{ID: 7, Username: "alice"}}, nil).
		Once()
	r := setupWebRouter(t, mockPostRepo, mockUserRepo)

	form := url.Values{
		"content":   {"World"},
		"author_id": {"7"},
	}
	req, _ := http.NewRequest("POST", "/web/posts/3/edit", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()

	// Act
	r.ServeHTTP(w, req)

	// Assert: 400 且表单仍然可见，带错误提示和原有字段值
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Title, content and author are required")
	assert.Contains(t, body, `name="title"`, "表单不应被隐藏")
	assert.Contains(t, body, `value="Hello"`)
	assert.Contains(t, body, "alice")

	mockPostRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	mockPostRepo.AssertExpectations(t)
	mockUserRepo.AssertExpectations(t)
}
