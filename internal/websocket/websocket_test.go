package websocket

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(logrus.New())
	go hub.Run()
	defer hub.Stop()

	r := gin.New()
	r.GET("/ws", hub.Handler())
	server := httptest.NewServer(r)
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	// Registration happens after the upgrade returns, so keep publishing until
	// the client has been added to the hub.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(20 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Publish("trade", map[string]string{"item_id": "42"})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, "trade", msg.Type)
	assert.Equal(t, map[string]interface{}{"item_id": "42"}, msg.Data)
}

func TestHub_PublishWithoutClientsDoesNotBlock(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	hub := NewHub(log)
	for i := 0; i < 1000; i++ {
		hub.Publish("prices", i)
	}
}
