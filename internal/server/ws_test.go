package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"wizline/internal/domain"
	"wizline/internal/events"
)

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) EventResponse {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var evt EventResponse
	if err := json.Unmarshal(data, &evt); err != nil {
		t.Fatalf("decode %s: %v", string(data), err)
	}
	return evt
}

func TestWSHubFiltersByProject(t *testing.T) {
	bus := events.NewBus()
	hub := NewWSHub(bus, log.New(&bytes.Buffer{}, "", 0))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)
	<-hub.ready

	ts := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	one := dialWS(t, wsURL+"?project_id=proj-1")
	all := dialWS(t, wsURL)

	waitForClients(t, hub, 2)

	bus.Publish(domain.Event{ID: 1, Type: events.AnswerSubmitted, ProjectID: "proj-2", Payload: `{"values":{}}`})
	bus.Publish(domain.Event{ID: 2, Type: events.DecisionRecorded, ProjectID: "proj-1", Payload: `{"seq":1}`})

	got := readEvent(t, one)
	if got.ID != 2 || got.ProjectID != "proj-1" {
		t.Fatalf("filtered client got %+v", got)
	}
	if got.Payload["seq"] != float64(1) {
		t.Fatalf("expected decoded payload, got %v", got.Payload)
	}
	if first := readEvent(t, all); first.ID != 1 {
		t.Fatalf("unfiltered client first event %+v", first)
	}
	if second := readEvent(t, all); second.ID != 2 {
		t.Fatalf("unfiltered client second event %+v", second)
	}
}

func waitForClients(t *testing.T, hub *WSHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.clientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d websocket clients, have %d", n, hub.clientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServerStreamsCommittedEvents(t *testing.T) {
	srv, cleanup := newTestServer(t, LinkConfig{})
	defer cleanup()
	<-srv.Hub.ready
	conn := dialWS(t, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v0/ws?project_id=proj-1")
	waitForClients(t, srv.Hub, 1)

	res, body := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/projects/proj-1/wizard/answers", map[string]any{
		"config_item_id": "A",
		"answers":        map[string]any{"variant": "K4"},
	}, nil)
	expectStatus(t, res, body, http.StatusCreated)

	first := readEvent(t, conn)
	if first.ProjectID != "proj-1" || first.Type != events.AnswerSubmitted {
		t.Fatalf("unexpected event %+v", first)
	}
	if second := readEvent(t, conn); second.Type != events.DecisionRecorded {
		t.Fatalf("unexpected second event %+v", second)
	}
}
