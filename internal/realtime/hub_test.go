package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func TestPublishReachesConnectedUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub(nil, zap.NewNop())

	r := gin.New()
	r.GET("/ws", func(ctx *gin.Context) { hub.Serve(ctx, 7) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var welcome map[string]string
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	if welcome["type"] != "connected" {
		t.Fatalf("unexpected welcome %v", welcome)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connections(7) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(7, map[string]string{"type": "notification", "title": "Threshold reached"})
	hub.Publish(8, map[string]string{"type": "notification", "title": "someone else"})

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("deadline: %v", err)
	}
	var event map[string]string
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event["title"] != "Threshold reached" {
		t.Fatalf("unexpected event %v", event)
	}
}

func TestForeignOriginIsRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := NewHub([]string{"http://localhost:5173"}, zap.NewNop())

	r := gin.New()
	r.GET("/ws", func(ctx *gin.Context) { hub.Serve(ctx, 1) })
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	header := http.Header{"Origin": {"http://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Fatalf("expected foreign origin to be refused")
	}
}
