package push

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"dockwatch.cycleshare.org/internal/models"
)

func testDocks() []models.Dock {
	return []models.Dock{
		{ID: "1", Name: "Waterloo", Lat: 51.5031, Lon: -0.1132, Installed: true, NbStandardBikes: 4},
		{ID: "2", Name: "Bank", Lat: 51.5133, Lon: -0.0886, Installed: true, NbEBikes: 2},
	}
}

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, testDocks())
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServeWSSendsFullSyncOnConnect(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialTestHub(t, hub)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read full sync: %v", err)
	}

	var sync FullSync
	if err := json.Unmarshal(message, &sync); err != nil {
		t.Fatalf("failed to decode full sync: %v", err)
	}
	if sync.Type != "full_sync" {
		t.Errorf("expected full_sync, got %q", sync.Type)
	}
	if len(sync.Docks) != 2 {
		t.Errorf("expected 2 docks in sync, got %d", len(sync.Docks))
	}
}

func TestBroadcastDockUpdateReachesClients(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn := dialTestHub(t, hub)

	// Drain the connect-time full sync first.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("failed to read full sync: %v", err)
	}

	// The full sync is written before registration completes; wait until
	// the hub sees the client before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if hub.ClientCount() == 0 {
		t.Fatal("client never registered")
	}

	updated := testDocks()[0]
	updated.NbStandardBikes = 9
	hub.BroadcastDockUpdate(updated)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, message, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read update: %v", err)
	}

	var update DockUpdate
	if err := json.Unmarshal(message, &update); err != nil {
		t.Fatalf("failed to decode update: %v", err)
	}
	if update.Type != "dock_updated" {
		t.Errorf("expected dock_updated, got %q", update.Type)
	}
	if update.Data.NbStandardBikes != 9 {
		t.Errorf("expected updated count 9, got %d", update.Data.NbStandardBikes)
	}
}
