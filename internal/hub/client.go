package hub

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client 代表一个连接到 Hub 的实时会话。
// 会话由连接级的 sessionID 标识，与 User 账号无关；
// userID 在客户端发送 authenticate 事件后才被关联。
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	sessionID string
	userID    uint            // 0 表示未认证；仅由 Hub 事件循环写入
	roomSet   map[string]bool // 已加入的房间，由 Hub 在其锁内维护
	send      chan []byte     // 用于向此客户端发送消息的缓冲通道
}

// NewClient 创建一个新的 Client 实例
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		sessionID: newSessionID(),
		roomSet:   make(map[string]bool),
		send:      make(chan []byte, 256),
	}
}

// SessionID 返回会话标识符。
func (c *Client) SessionID() string { return c.sessionID }

// Run 启动客户端的读写 goroutine
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// CloseConn 关闭底层 WebSocket 连接。
func (c *Client) CloseConn() {
	_ = c.conn.Close()
}

// newSessionID 生成连接级的随机会话标识符。
func newSessionID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// 退回到时间戳，标识符只用于日志和 map 键
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}

// ReadPump 将消息从 WebSocket 连接泵送到 Hub 的处理队列。
// 它在自己的 goroutine 中运行。
func (c *Client) ReadPump() {
	defer func() {
		unregisterMsg := HubMessage{Type: "unregister", Client: c}
		select {
		case c.hub.messageChan <- unregisterMsg:
		case <-time.After(1 * time.Second):
			logrus.WithField("session_id", c.sessionID).Warn("Timeout sending unregister message to Hub channel")
		}
		c.conn.Close()
		logrus.WithField("session_id", c.sessionID).Info("readPump exited, unregistered client")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.WithError(err).WithField("session_id", c.sessionID).Warn("Unexpected WebSocket close")
			}
			break
		}
		c.hub.QueueMessage(HubMessage{Type: "inbound", Client: c, RawData: message})
	}
}

// WritePump 将 send 通道中的消息写到 WebSocket 连接，并周期性发送 ping。
// 它在自己的 goroutine 中运行。send 通道被 Hub 关闭时退出。
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 关闭了通道，通知对端后退出
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logrus.WithError(err).WithField("session_id", c.sessionID).Debug("Write to client failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
