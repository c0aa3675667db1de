package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bragboard/server/common/auth"
	"bragboard/server/common/middleware"
)

func newHubServer(t *testing.T) (*Hub, *auth.Service, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil)
	tokens := auth.NewService("secret", 10)
	r := gin.New()
	r.GET("/ws/notifications", middleware.AuthRequired(tokens), hub.ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return hub, tokens, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })

	var hello map[string]any
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "hello", hello["type"])
	return conn
}

func waitForConnections(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ConnectionCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestNotifyUserReachesOnlyThatUser(t *testing.T) {
	hub, tokens, srv := newHubServer(t)
	tokenA, err := tokens.GenerateToken(1, "employee")
	require.NoError(t, err)
	tokenB, err := tokens.GenerateToken(2, "employee")
	require.NoError(t, err)
	connA := dial(t, srv, tokenA)
	connB := dial(t, srv, tokenB)
	waitForConnections(t, hub, 2)

	hub.NotifyUser(1, map[string]string{"type": "notification.created"})
	hub.Broadcast(map[string]string{"type": "shoutout.created"})

	var first map[string]string
	require.NoError(t, connA.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, connA.ReadJSON(&first))
	assert.Equal(t, "notification.created", first["type"])

	var onlyB map[string]string
	require.NoError(t, connB.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, connB.ReadJSON(&onlyB))
	assert.Equal(t, "shoutout.created", onlyB["type"])
}

func TestSocketUnregistersOnClose(t *testing.T) {
	hub, tokens, srv := newHubServer(t)
	token, err := tokens.GenerateToken(3, "employee")
	require.NoError(t, err)
	conn := dial(t, srv, token)
	waitForConnections(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForConnections(t, hub, 0)
}

func TestUpgradeRequiresToken(t *testing.T) {
	_, _, srv := newHubServer(t)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/notifications"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://board.example.com"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://board.example.com")
	assert.True(t, check(req))
	req.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(req))
	assert.True(t, originChecker([]string{"*"})(req))
}
