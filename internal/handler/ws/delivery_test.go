package ws

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taskora/event-delivery-service/internal/auth"
	"github.com/taskora/event-delivery-service/internal/domain/event"
	"github.com/taskora/event-delivery-service/internal/domain/registry"
	httphandler "github.com/taskora/event-delivery-service/internal/handler/http"
	"github.com/taskora/event-delivery-service/internal/service"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) (*httptest.Server, *registry.Hub) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := registry.NewHub(registry.WithSendTimeout(50 * time.Millisecond))
	t.Cleanup(hub.Shutdown)

	handler := NewWSHandler(logger, service.NewDeliveryService(hub, 8))
	mux := http.NewServeMux()
	mux.Handle("/ws", httphandler.Authenticate(auth.NewJWTVerifier(testSecret))(handler))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, hub
}

func signToken(t *testing.T, sub string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": sub,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	raw, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func TestWS_HandshakeAndDelivery(t *testing.T) {
	srv, hub := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + signToken(t, "user-1")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	var handshake wsEvent
	require.NoError(t, conn.ReadJSON(&handshake))
	assert.Equal(t, "connected", handshake.Event)

	require.Eventually(t, func() bool {
		return hub.IsConnected("user-1")
	}, time.Second, 10*time.Millisecond)

	ev := event.NewUserLogin("user-1", map[string]any{"ip": "127.0.0.1"})
	assert.Equal(t, 1, hub.Broadcast(ev))

	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var got wsEvent
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "user.login", got.Event)

	payload, ok := got.Payload.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, ev.ID, payload["event_id"])
}

func TestWS_DisconnectUnregisters(t *testing.T) {
	srv, hub := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + signToken(t, "user-1")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.IsConnected("user-1")
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool {
		return !hub.IsConnected("user-1")
	}, time.Second, 10*time.Millisecond)
}

func TestWS_RequiresAuth(t *testing.T) {
	srv, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
