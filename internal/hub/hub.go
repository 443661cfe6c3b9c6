// Package hub 实现通知中继：维护已连接会话与按文章分组的房间，
// 把数据库变更事件尽力而为地扇出给订阅的监听者。
// 无确认、无重试、无顺序保证；离线的监听者只是错过事件。
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// 包级别的 WebSocket 常量，供 hub 和 client 使用
const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 1024
)

// PostRoom 返回指定文章的房间名。
func PostRoom(postID uint) string {
	return fmt.Sprintf("post_%d", postID)
}

// HubMessage 定义了在 Hub 内部通道传递的消息类型
type HubMessage struct {
	Type    string  // "register", "unregister", "inbound"
	Client  *Client // 消息关联的客户端
	RawData []byte  // 仅用于 inbound (原始 WebSocket 消息)
}

// envelope 是客户端与服务端之间的统一消息格式。
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// busFrame 是经由 Redis 总线传输的广播帧。Room 为空表示发给所有会话。
type busFrame struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

// Hub 维护活跃会话集合和房间成员关系，并协调事件扇出。
// 配置了 Redis 时，所有广播先发布到共享频道、再由订阅回路
// 投递给本进程的客户端，这样多实例部署下每个进程都能看到全部事件；
// 未配置时退化为进程内直接投递 (单进程是受支持的最小配置)。
type Hub struct {
	// 内部通道，处理所有来自 Client 的事件
	messageChan chan HubMessage

	// 所有已连接的会话 (全局广播的目标)
	clients map[*Client]bool
	// 房间成员关系 map[roomName]map[*Client]bool
	rooms map[string]map[*Client]bool
	// 保护 clients 和 rooms 的读写锁
	mu sync.RWMutex

	// 可选的跨实例扇出总线，nil 表示单进程模式。
	// sub 在构造时建立，Run 和 Stop 读取它时无需加锁。
	redisClient *redis.Client
	channel     string
	sub         *redis.PubSub

	done chan struct{}
}

// NewHub 创建并返回一个新的 Hub 实例。
// redisClient 可以为 nil，此时广播只在本进程内投递。
func NewHub(redisClient *redis.Client, keyPrefix string) *Hub {
	h := &Hub{
		messageChan: make(chan HubMessage, 512),
		clients:     make(map[*Client]bool),
		rooms:       make(map[string]map[*Client]bool),
		redisClient: redisClient,
		channel:     keyPrefix + "events",
		done:        make(chan struct{}),
	}
	if redisClient != nil {
		h.sub = redisClient.Subscribe(context.Background(), h.channel)
	}
	return h
}

// Run 启动 Hub 的主事件处理循环。
// 它应该在一个单独的 goroutine 中运行。
func (h *Hub) Run() {
	log := logrus.WithField("component", "hub")
	log.Info("Hub is running...")

	if h.sub != nil {
		go h.consumeBus(log)
		log.WithField("channel", h.channel).Info("Hub subscribed to Redis fan-out bus")
	}

	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.registerClient(msg.Client)
			case "unregister":
				h.unregisterClient(msg.Client)
			case "inbound":
				h.handleInbound(msg.Client, msg.RawData)
			default:
				log.Warnf("Hub: received unknown message type: %s", msg.Type)
			}
		case <-h.done:
			log.Info("Hub is shutting down...")
			return
		}
	}
}

// Stop 停止 Hub 的事件循环和 Redis 订阅。
func (h *Hub) Stop() {
	close(h.done)
	if h.sub != nil {
		_ = h.sub.Close()
	}
}

// QueueMessage 将消息放入 Hub 的处理队列 (非阻塞)。
// 返回 true 如果消息成功入队，false 如果队列已满。
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		logrus.WithField("message_type", msg.Type).Warn("Hub message channel full, dropping message")
		return false
	}
}

// --- 广播 API (由 Web 层在提交成功后调用) ---

// BroadcastPostUpdate 向 post_<id> 房间广播一次文章变更事件。
// eventType 为 "create" / "update" / "delete"。
func (h *Hub) BroadcastPostUpdate(postID uint, eventType string, data interface{}) {
	payload := map[string]interface{}{
		"type":    eventType,
		"post_id": postID,
		"data":    data,
	}
	h.emit(PostRoom(postID), "post_update", payload)
}

// BroadcastPostsListUpdate 通知所有会话文章列表已变化。
func (h *Hub) BroadcastPostsListUpdate() {
	h.emit("", "posts_list_update", map[string]interface{}{})
}

// BroadcastNewPost 通知所有会话有新文章。
func (h *Hub) BroadcastNewPost(post interface{}) {
	h.emit("", "new_post", map[string]interface{}{"post": post})
}

// emit 序列化事件并发布。room 为空表示发给所有会话。
func (h *Hub) emit(room, event string, data interface{}) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Hub: failed to marshal event data")
		return
	}
	payload, err := json.Marshal(envelope{Event: event, Data: dataBytes})
	if err != nil {
		logrus.WithError(err).WithField("event", event).Error("Hub: failed to marshal event envelope")
		return
	}
	h.publish(room, payload)
}

// publish 把广播帧送上总线；单进程模式下直接本地投递。
// 配置了 Redis 时本地投递只发生在订阅回路里，保证两种模式下
// 每个本地客户端都恰好收到一次。
func (h *Hub) publish(room string, payload []byte) {
	if h.redisClient == nil {
		h.deliverLocal(room, payload)
		return
	}
	frame, err := json.Marshal(busFrame{Room: room, Payload: payload})
	if err != nil {
		logrus.WithError(err).Error("Hub: failed to marshal bus frame")
		return
	}
	if err := h.redisClient.Publish(context.Background(), h.channel, frame).Err(); err != nil {
		// 总线故障时退回本地投递，本进程的监听者仍能收到事件
		logrus.WithError(err).Warn("Hub: Redis publish failed, delivering locally only")
		h.deliverLocal(room, payload)
	}
}

// consumeBus 从 Redis 订阅读取广播帧并投递给本地客户端。
func (h *Hub) consumeBus(log *logrus.Entry) {
	for msg := range h.sub.Channel() {
		var frame busFrame
		if err := json.Unmarshal([]byte(msg.Payload), &frame); err != nil {
			log.WithError(err).Warn("Hub: dropping malformed bus frame")
			continue
		}
		h.deliverLocal(frame.Room, frame.Payload)
	}
}

// deliverLocal 将消息发送给本进程内的目标客户端。
// room 为空表示所有会话。慢客户端 (发送缓冲已满) 被直接跳过。
// 发送在读锁内进行：send 通道只会在写锁内被关闭，
// 持有读锁即可保证不会向已关闭的通道发送。
func (h *Hub) deliverLocal(room string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets map[*Client]bool
	if room == "" {
		targets = h.clients
	} else {
		targets = h.rooms[room]
	}
	for client := range targets {
		select {
		case client.send <- payload:
		default:
			logrus.WithField("session_id", client.sessionID).Warn("Client send channel full during broadcast, skipping this client")
		}
	}
}

// --- 会话生命周期 ---

// registerClient 处理客户端注册逻辑
func (h *Hub) registerClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to register a nil client")
		return
	}
	h.mu.Lock()
	h.clients[client] = true
	h.mu.Unlock()
	logrus.WithField("session_id", client.sessionID).Info("Client registered to Hub")
}

// unregisterClient 处理客户端注销逻辑：移除全局集合与所有房间成员关系。
func (h *Hub) unregisterClient(client *Client) {
	if client == nil {
		logrus.Error("Hub: attempted to unregister a nil client")
		return
	}
	logCtx := logrus.WithField("session_id", client.sessionID)

	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		logCtx.Warn("Client not found during unregister")
		return
	}
	delete(h.clients, client)
	for room := range client.roomSet {
		if members, ok := h.rooms[room]; ok {
			delete(members, client)
			if len(members) == 0 {
				delete(h.rooms, room)
				logCtx.WithField("room", room).Debug("Room empty, removed from Hub")
			}
		}
	}
	close(client.send)
	h.mu.Unlock()

	logCtx.Info("Client unregistered from Hub")
}

// joinRoom 将客户端加入指定房间，房间不存在时创建。
func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.Lock()
	if _, ok := h.rooms[room]; !ok {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.roomSet[room] = true
	h.mu.Unlock()
	logrus.WithFields(logrus.Fields{"session_id": client.sessionID, "room": room}).Info("Client joined room")
}

// --- 入站事件处理 ---

// handleInbound 解析并处理一条来自客户端的消息。
func (h *Hub) handleInbound(client *Client, raw []byte) {
	if client == nil {
		return
	}
	logCtx := logrus.WithField("session_id", client.sessionID)

	var msg envelope
	if err := json.Unmarshal(raw, &msg); err != nil {
		logCtx.WithError(err).Warn("Hub: dropping malformed client message")
		h.reply(client, "error", map[string]string{"message": "malformed message"})
		return
	}

	switch msg.Event {
	case "authenticate":
		// 把用户 ID 关联到会话；不做任何凭据校验
		var data struct {
			UserID uint `json:"user_id"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.UserID == 0 {
			h.reply(client, "error", map[string]string{"message": "missing user_id"})
			return
		}
		client.userID = data.UserID
		logCtx.WithField("user_id", data.UserID).Info("Session authenticated")
		h.reply(client, "authenticated", map[string]uint{"user_id": data.UserID})
	case "join_post_room":
		var data struct {
			PostID uint `json:"post_id"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.PostID == 0 {
			h.reply(client, "error", map[string]string{"message": "missing post_id"})
			return
		}
		room := PostRoom(data.PostID)
		h.joinRoom(client, room)
		h.reply(client, "room_joined", map[string]string{"room": room})
	case "ping":
		h.reply(client, "pong", nil)
	default:
		logCtx.Warnf("Hub: received unknown client event: %s", msg.Event)
		h.reply(client, "error", map[string]string{"message": "unknown event"})
	}
}

// reply 向单个客户端发送一条事件消息 (非阻塞)。
func (h *Hub) reply(client *Client, event string, data interface{}) {
	var dataBytes json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return
		}
		dataBytes = b
	}
	payload, err := json.Marshal(envelope{Event: event, Data: dataBytes})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}
