// internal/api/websocket.go
package api

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/Corphon/PaperCastMCP/internal/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 允许所有来源连接，生产环境应该限制
		return true
	},
}

// WebSocketClient WebSocket客户端连接
type WebSocketClient struct {
	Conn   *websocket.Conn
	TaskID string
	mutex  sync.Mutex
}

// WriteJSON 并发安全地向客户端写入JSON消息
func (c *WebSocketClient) WriteJSON(v interface{}) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.Conn.WriteJSON(v)
}

// WebSocketManager 管理按任务分组的WebSocket连接
type WebSocketManager struct {
	clients map[string]map[*WebSocketClient]bool // taskID -> 连接集合
	mutex   sync.RWMutex
	logger  *utils.Logger
}

// NewWebSocketManager 创建WebSocket管理器
func NewWebSocketManager() *WebSocketManager {
	return &WebSocketManager{
		clients: make(map[string]map[*WebSocketClient]bool),
		logger:  utils.GetLogger(),
	}
}

// register 注册客户端连接
func (m *WebSocketManager) register(client *WebSocketClient) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.clients[client.TaskID] == nil {
		m.clients[client.TaskID] = make(map[*WebSocketClient]bool)
	}
	m.clients[client.TaskID][client] = true
}

// unregister 注销客户端连接
func (m *WebSocketManager) unregister(client *WebSocketClient) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if conns, ok := m.clients[client.TaskID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(m.clients, client.TaskID)
		}
	}
	client.Conn.Close()
}

// ClientCount 返回指定任务的连接数
func (m *WebSocketManager) ClientCount(taskID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[taskID])
}

// ProgressWebSocketHandler 处理进度订阅的WebSocket连接
// GET /ws/progress/:taskID
func (h *Handler) ProgressWebSocketHandler(c *gin.Context) {
	taskID := c.Param("taskID")
	tracker, exists := h.ProgressService.GetTracker(taskID)
	if !exists {
		h.Response.Error(c, 404, ErrorTaskNotFound, "任务不存在: "+taskID)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	client := &WebSocketClient{
		Conn:   conn,
		TaskID: taskID,
	}
	h.WSManager.register(client)
	defer h.WSManager.unregister(client)

	// 丢弃入站消息，同时感知客户端断开
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates := tracker.Subscribe()
	defer tracker.Unsubscribe(updates)

	for {
		select {
		case update := <-updates:
			if err := client.WriteJSON(update); err != nil {
				return
			}
			if update.Status != "running" {
				// 任务结束，发完终态就收工
				return
			}
		case <-tracker.Done:
			// Done先于终态更新到达时，再排空一次通道
			select {
			case update := <-updates:
				_ = client.WriteJSON(update)
			default:
			}
			return
		case <-closed:
			return
		}
	}
}
