package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	commonlog "bragboard/server/common/log"
	"bragboard/server/common/middleware"
	"bragboard/server/common/transport/httpresp"
)

const (
	EventsChannel = "board:events"
	writeWait     = 5 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 50 * time.Second
)

type Client struct {
	UserID    int64
	SessionID string
	Conn      *websocket.Conn
	mu        sync.Mutex
}

func (c *Client) WriteJSON(payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.Conn.WriteJSON(payload)
}

func (c *Client) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub keeps the open notification sockets of this replica. With redis
// attached every delivery goes through pub/sub so sockets held by other
// replicas receive it too; without redis it delivers locally.
type Hub struct {
	mu        sync.RWMutex
	clients   map[int64]map[string]*Client
	redis     *redis.Client
	redisSub  *redis.PubSub
	subCancel context.CancelFunc
	upgrader  websocket.Upgrader
}

type hubEvent struct {
	Kind    string          `json:"kind"`
	UserID  int64           `json:"user_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{clients: map[int64]map[string]*Client{}}
	h.upgrader = websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := map[string]struct{}{}
	for _, origin := range allowed {
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Hub) UseRedis(client *redis.Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.redis = client
}

func (h *Hub) StartRedisSubscriber(ctx context.Context) error {
	h.mu.Lock()
	if h.redis == nil {
		h.mu.Unlock()
		return errors.New("redis client is nil")
	}
	if h.redisSub != nil {
		h.mu.Unlock()
		return nil
	}
	subCtx, cancel := context.WithCancel(ctx)
	sub := h.redis.Subscribe(subCtx, EventsChannel)
	h.redisSub = sub
	h.subCancel = cancel
	h.mu.Unlock()

	go h.consumeEvents(subCtx, sub)
	return nil
}

func (h *Hub) StopRedisSubscriber() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subCancel != nil {
		h.subCancel()
		h.subCancel = nil
	}
	if h.redisSub != nil {
		_ = h.redisSub.Close()
		h.redisSub = nil
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client.UserID]; !ok {
		h.clients[client.UserID] = map[string]*Client{}
	}
	h.clients[client.UserID][client.SessionID] = client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sessions, ok := h.clients[client.UserID]; ok {
		delete(sessions, client.SessionID)
		if len(sessions) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	_ = client.Conn.Close()
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	count := 0
	for _, sessions := range h.clients {
		count += len(sessions)
	}
	return count
}

func (h *Hub) NotifyUser(userID int64, payload any) {
	if h.publish("notify_user", userID, payload) {
		return
	}
	fanoutCount := h.notifyUserLocal(userID, payload)
	commonlog.Debugf("event=board_hub action=fallback_dispatch kind=notify_user user_id=%d fanout_count=%d", userID, fanoutCount)
}

func (h *Hub) Broadcast(payload any) {
	if h.publish("broadcast", 0, payload) {
		return
	}
	fanoutCount := h.broadcastLocal(payload)
	commonlog.Debugf("event=board_hub action=fallback_dispatch kind=broadcast fanout_count=%d", fanoutCount)
}

func (h *Hub) snapshot(userID int64) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients[userID]))
	for _, client := range h.clients[userID] {
		out = append(out, client)
	}
	return out
}

func (h *Hub) notifyUserLocal(userID int64, payload any) int {
	clients := h.snapshot(userID)
	for _, client := range clients {
		client.WriteJSON(payload)
	}
	return len(clients)
}

func (h *Hub) broadcastLocal(payload any) int {
	h.mu.RLock()
	clients := make([]*Client, 0)
	for _, sessions := range h.clients {
		for _, client := range sessions {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()
	for _, client := range clients {
		client.WriteJSON(payload)
	}
	return len(clients)
}

func (h *Hub) publish(kind string, userID int64, payload any) bool {
	h.mu.RLock()
	redisClient := h.redis
	h.mu.RUnlock()
	if redisClient == nil {
		return false
	}
	payloadRaw, err := json.Marshal(payload)
	if err != nil {
		return false
	}
	b, err := json.Marshal(hubEvent{Kind: kind, UserID: userID, Payload: payloadRaw})
	if err != nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	if err := redisClient.Publish(ctx, EventsChannel, b).Err(); err != nil {
		commonlog.Warnf("event=board_hub action=publish status=failed kind=%s user_id=%d error=%v", kind, userID, err)
		return false
	}
	return true
}

func (h *Hub) consumeEvents(ctx context.Context, sub *redis.PubSub) {
	for {
		msg, err := sub.ReceiveMessage(ctx)
		if err != nil {
			return
		}
		var event hubEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil || len(event.Payload) == 0 {
			continue
		}
		payload := event.Payload
		switch event.Kind {
		case "notify_user":
			fanoutCount := h.notifyUserLocal(event.UserID, payload)
			commonlog.Debugf("event=board_hub action=consume status=ok kind=%s user_id=%d fanout_count=%d", event.Kind, event.UserID, fanoutCount)
		case "broadcast":
			fanoutCount := h.broadcastLocal(payload)
			commonlog.Debugf("event=board_hub action=consume status=ok kind=%s fanout_count=%d", event.Kind, fanoutCount)
		}
	}
}

// ServeWS upgrades an authenticated request and keeps the socket registered
// until the peer goes away. Inbound frames are discarded.
func (h *Hub) ServeWS(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, httpresp.NewErrorResponse(httpresp.ErrUnauthorized))
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		commonlog.Warnf("event=board_hub action=upgrade status=failed user_id=%d error=%v", userID, err)
		return
	}
	client := &Client{UserID: userID, SessionID: uuid.NewString(), Conn: conn}
	h.Register(client)
	commonlog.Infof("event=board_hub action=connect status=ok user_id=%d session_id=%s", userID, client.SessionID)
	defer func() {
		h.Unregister(client)
		commonlog.Infof("event=board_hub action=disconnect status=ok user_id=%d session_id=%s", userID, client.SessionID)
	}()

	client.WriteJSON(gin.H{"type": "hello", "payload": gin.H{"session_id": client.SessionID}})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := client.ping(); err != nil {
					return
				}
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
