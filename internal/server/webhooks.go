package server

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"wizline/internal/config"
	"wizline/internal/domain"
	"wizline/internal/engine"
	"wizline/internal/events"
)

const (
	defaultWebhookInterval = 2 * time.Second
	defaultWebhookTimeout  = 5 * time.Second
	defaultWebhookBatch    = 100

	signatureHeader = "X-Wizline-Signature"
)

// webhookTarget is one enabled hook with its delivery cursor.
type webhookTarget struct {
	url     string
	project string
	secret  string
	filter  eventFilter
	client  *http.Client

	primed bool
	cursor int64
}

type webhookDispatcher struct {
	engine   engine.Engine
	logger   *log.Logger
	interval time.Duration

	mu      sync.Mutex
	targets []*webhookTarget
}

func newWebhookDispatcher(e engine.Engine, hooks []config.WebhookConfig, logger *log.Logger) *webhookDispatcher {
	if logger == nil {
		logger = log.Default()
	}
	d := &webhookDispatcher{engine: e, logger: logger, interval: defaultWebhookInterval}
	for _, hook := range hooks {
		if hook.Enabled != nil && !*hook.Enabled {
			continue
		}
		if strings.TrimSpace(hook.URL) == "" {
			continue
		}
		timeout := defaultWebhookTimeout
		if hook.TimeoutSeconds > 0 {
			timeout = time.Duration(hook.TimeoutSeconds) * time.Second
		}
		d.targets = append(d.targets, &webhookTarget{
			url:     hook.URL,
			project: strings.TrimSpace(hook.Project),
			secret:  strings.TrimSpace(hook.Secret),
			filter:  newEventFilter(hook.Events),
			client:  &http.Client{Timeout: timeout},
		})
	}
	return d
}

func startWebhookDispatcher(ctx context.Context, e engine.Engine, hooks []config.WebhookConfig, logger *log.Logger) {
	d := newWebhookDispatcher(e, hooks, logger)
	if len(d.targets) == 0 {
		return
	}
	go d.run(ctx)
}

func (d *webhookDispatcher) run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		d.dispatchAll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d *webhookDispatcher) dispatchAll(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.targets {
		if ctx.Err() != nil {
			return
		}
		d.deliver(ctx, t)
	}
}

// deliver posts the target's pending events in order. The first hook run
// only records the newest event id, so history is never replayed. A failed
// post leaves the cursor on the previous event and the next tick retries it.
func (d *webhookDispatcher) deliver(ctx context.Context, t *webhookTarget) {
	if !t.primed {
		cur, err := d.engine.Repo.LatestEventID(ctx, t.project)
		if err != nil {
			d.logger.Printf("webhook: init cursor for %s failed: %v", t.url, err)
			return
		}
		t.cursor, t.primed = cur, true
		return
	}
	pending, err := d.engine.Repo.EventsAfter(ctx, defaultWebhookBatch, t.cursor, t.project)
	if err != nil {
		d.logger.Printf("webhook: fetch events failed: %v", err)
		return
	}
	for _, evt := range pending {
		if t.filter.match(evt.Type) {
			if err := d.post(ctx, t, d.envelope(ctx, evt)); err != nil {
				d.logger.Printf("webhook: deliver event %d to %s failed: %v", evt.ID, t.url, err)
				return
			}
		}
		t.cursor = evt.ID
	}
}

// webhookDelivery is the JSON body of one webhook call. Progress is the
// project's wizard progress at delivery time for answer and decision events.
type webhookDelivery struct {
	DeliveryID string                 `json:"delivery_id"`
	Event      EventResponse          `json:"event"`
	Progress   *engine.ProgressReport `json:"progress,omitempty"`
}

func (d *webhookDispatcher) envelope(ctx context.Context, evt domain.Event) webhookDelivery {
	out := webhookDelivery{DeliveryID: uuid.NewString(), Event: eventResponse(evt)}
	switch evt.Type {
	case events.AnswerSubmitted, events.DecisionRecorded, events.DecisionUpdated:
		if rep, err := d.engine.Progress(ctx, evt.ProjectID); err == nil {
			out.Progress = &rep
		}
	}
	return out
}

func (d *webhookDispatcher) post(ctx context.Context, t *webhookTarget, delivery webhookDelivery) error {
	data, err := json.Marshal(delivery)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Wizline-Event", delivery.Event.Type)
	req.Header.Set("X-Wizline-Delivery", delivery.DeliveryID)
	req.Header.Set("X-Wizline-Project", delivery.Event.ProjectID)
	if t.secret != "" {
		req.Header.Set(signatureHeader, signPayload(t.secret, data))
	}
	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// signPayload returns "sha256=" followed by the hex HMAC of body.
func signPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// eventFilter matches event types exactly or by family: "decision.*"
// matches decision.recorded and decision.updated.
type eventFilter struct {
	exact    map[string]bool
	families []string
}

func newEventFilter(types []string) eventFilter {
	f := eventFilter{exact: map[string]bool{}}
	for _, typ := range types {
		typ = strings.TrimSpace(typ)
		switch {
		case typ == "":
		case strings.HasSuffix(typ, ".*"):
			f.families = append(f.families, strings.TrimSuffix(typ, "*"))
		default:
			f.exact[typ] = true
		}
	}
	return f
}

func (f eventFilter) match(typ string) bool {
	if len(f.exact) == 0 && len(f.families) == 0 {
		return true
	}
	if f.exact[typ] {
		return true
	}
	for _, prefix := range f.families {
		if strings.HasPrefix(typ, prefix) {
			return true
		}
	}
	return false
}
