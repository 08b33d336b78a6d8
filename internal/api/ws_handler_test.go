package api

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"launchpadResume/internal/auth/authtest"
)

func dialWs(t *testing.T) *websocket.Conn {
	t.Helper()
	tokens := authtest.NewTokenService(t)
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0", MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	h := NewWsHandler(client, tokens, discardLogger(), nil)
	r := gin.New()
	r.GET("/ws", h.HandleConnection)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.True(t, errors.As(err, &closeErr), "expected close frame, got %v", err)
	assert.Equal(t, code, closeErr.Code)
}

func TestWsRejectsInvalidToken(t *testing.T) {
	conn := dialWs(t)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "auth", "token": "not-a-jwt"}))
	expectClose(t, conn, websocket.ClosePolicyViolation)
}

func TestWsRequiresAuthMessage(t *testing.T) {
	conn := dialWs(t)
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "hello"}))
	expectClose(t, conn, websocket.ClosePolicyViolation)
}
