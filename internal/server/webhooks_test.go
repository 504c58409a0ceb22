package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"wizline/internal/config"
	"wizline/internal/engine"
	"wizline/internal/events"
)

type capturedHook struct {
	headers http.Header
	raw     []byte
	body    webhookDelivery
}

type hookReceiver struct {
	mu     sync.Mutex
	status int
	got    []capturedHook
}

func (h *hookReceiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, _ := io.ReadAll(r.Body)
	var delivery webhookDelivery
	_ = json.Unmarshal(data, &delivery)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.got = append(h.got, capturedHook{headers: r.Header.Clone(), raw: data, body: delivery})
	if h.status != 0 {
		w.WriteHeader(h.status)
	}
}

func (h *hookReceiver) deliveries() []capturedHook {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]capturedHook(nil), h.got...)
}

func TestWebhookDeliversFilteredEvents(t *testing.T) {
	srv, cleanup := newTestServer(t, LinkConfig{})
	defer cleanup()
	ctx := context.Background()

	recv := &hookReceiver{}
	hookSrv := httptest.NewServer(recv)
	defer hookSrv.Close()
	other := &hookReceiver{}
	otherSrv := httptest.NewServer(other)
	defer otherSrv.Close()

	d := newWebhookDispatcher(srv.Engine, []config.WebhookConfig{
		{URL: hookSrv.URL, Project: "proj-1", Events: []string{"decision.*"}, Secret: "shh"},
		{URL: otherSrv.URL, Project: "proj-2"},
	}, log.New(&bytes.Buffer{}, "", 0))
	d.dispatchAll(ctx)
	if len(recv.deliveries()) != 0 {
		t.Fatalf("history must not be replayed")
	}

	if _, err := srv.Engine.SubmitAnswer(ctx, engine.SubmitOptions{ProjectID: "proj-1", ItemID: "A", Answers: map[string]any{"variant": "K4"}, ActorID: "tester"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	d.dispatchAll(ctx)

	got := recv.deliveries()
	if len(got) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(got))
	}
	if got[0].headers.Get("X-Wizline-Event") != events.DecisionRecorded {
		t.Fatalf("unexpected event header %q", got[0].headers.Get("X-Wizline-Event"))
	}
	if got[0].headers.Get("X-Wizline-Project") != "proj-1" || got[0].headers.Get("X-Wizline-Delivery") != got[0].body.DeliveryID {
		t.Fatalf("unexpected headers %v", got[0].headers)
	}
	if got[0].headers.Get(signatureHeader) != signPayload("shh", got[0].raw) {
		t.Fatalf("signature does not match body")
	}
	evt := got[0].body.Event
	if evt.EntityKind != "decision" || evt.EntityID == "" || evt.ActorID != "tester" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if p := got[0].body.Progress; p == nil || p.Done != 1 || p.Total != 2 {
		t.Fatalf("expected progress 1/2, got %+v", p)
	}
	if len(other.deliveries()) != 0 {
		t.Fatalf("other project hook received events")
	}

	d.dispatchAll(ctx)
	if len(recv.deliveries()) != 1 {
		t.Fatalf("event delivered twice")
	}
}

func TestWebhookRetriesFailedDelivery(t *testing.T) {
	srv, cleanup := newTestServer(t, LinkConfig{})
	defer cleanup()
	ctx := context.Background()

	recv := &hookReceiver{status: http.StatusInternalServerError}
	hookSrv := httptest.NewServer(recv)
	defer hookSrv.Close()

	d := newWebhookDispatcher(srv.Engine, []config.WebhookConfig{{URL: hookSrv.URL, Events: []string{events.AnswerSubmitted}}}, log.New(&bytes.Buffer{}, "", 0))
	d.dispatchAll(ctx)
	if _, err := srv.Engine.SubmitAnswer(ctx, engine.SubmitOptions{ProjectID: "proj-1", ItemID: "A", Answers: map[string]any{"variant": "V3"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	d.dispatchAll(ctx)
	recv.mu.Lock()
	recv.status = 0
	recv.mu.Unlock()
	d.dispatchAll(ctx)

	got := recv.deliveries()
	if len(got) != 2 {
		t.Fatalf("expected failed delivery to be retried once, got %d", len(got))
	}
	if got[0].body.Event.ID != got[1].body.Event.ID {
		t.Fatalf("retry delivered a different event")
	}
	if got[1].headers.Get(signatureHeader) != "" {
		t.Fatalf("unsigned hook sent a signature")
	}
}

func TestEventFilter(t *testing.T) {
	if !newEventFilter(nil).match("anything") {
		t.Fatalf("empty filter should match all")
	}
	if !newEventFilter([]string{" ", ""}).match("x") {
		t.Fatalf("blank filter should match all")
	}
	f := newEventFilter([]string{events.ArtifactGenerated, "decision.*"})
	for typ, want := range map[string]bool{
		events.ArtifactGenerated: true,
		events.DecisionRecorded:  true,
		events.DecisionUpdated:   true,
		events.AnswerSubmitted:   false,
		"decisions.pruned":       false,
	} {
		if got := f.match(typ); got != want {
			t.Fatalf("match(%q) = %v, want %v", typ, got, want)
		}
	}
}

func TestDisabledHooksAreSkipped(t *testing.T) {
	off := false
	d := newWebhookDispatcher(engine.Engine{}, []config.WebhookConfig{
		{URL: "http://127.0.0.1:1/hook", Enabled: &off},
		{URL: "  "},
		{URL: "http://127.0.0.1:1/ok", TimeoutSeconds: 9},
	}, nil)
	if len(d.targets) != 1 || d.targets[0].url != "http://127.0.0.1:1/ok" {
		t.Fatalf("unexpected targets %+v", d.targets)
	}
	if d.targets[0].client.Timeout != 9*time.Second {
		t.Fatalf("unexpected timeout %v", d.targets[0].client.Timeout)
	}
}
