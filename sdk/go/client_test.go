package wizlinesdk

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"wizline/internal/catalog"
	"wizline/internal/db"
	"wizline/internal/engine"
	"wizline/internal/migrate"
	"wizline/internal/server"
)

func newLiveServer(t *testing.T) *httptest.Server {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn, db.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cat, err := catalog.New([]catalog.Item{
		{ID: "COA", Title: "Chart of accounts", Priority: "P0", Produces: []string{"DECISION_LOG", "CONFIG_WORKBOOK"},
			Inputs: []catalog.Input{{Name: "template", Type: catalog.InputSelect, Required: true, Options: []string{"IFRS", "LOCAL"}}}},
		{ID: "FY", Title: "Fiscal year", Priority: "P0", DependsOn: []string{"COA"}, Produces: []string{"DECISION_LOG", "CONFIG_WORKBOOK"},
			Inputs: []catalog.Input{{Name: "start_month", Type: catalog.InputNumber, Required: true}}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	handler, err := server.New(server.Config{Engine: engine.New(conn, db.SQLite, cat)})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientWalksWizard(t *testing.T) {
	srv := newLiveServer(t)
	ctx := context.Background()
	c := New(srv.URL, "")
	c.ActorID = "sdk"

	p, err := c.CreateProject(ctx, "acme", "Acme", "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	if p.Mode != "EXPERT" {
		t.Fatalf("expected default EXPERT mode, got %s", p.Mode)
	}
	c.ProjectID = p.ID

	next, err := c.Next(ctx)
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.Question == nil || next.Question.ConfigItemID != "COA" {
		t.Fatalf("expected COA, got %+v", next)
	}

	_, err = c.SubmitAnswer(ctx, "COA", map[string]any{})
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 422 || apiErr.Code != "validation_failed" {
		t.Fatalf("expected validation_failed, got %v", err)
	}

	if _, err := c.SubmitAnswer(ctx, "COA", map[string]any{"template": "IFRS"}); err != nil {
		t.Fatalf("submit COA: %v", err)
	}
	ready, err := c.Backlog(ctx, "READY")
	if err != nil {
		t.Fatalf("backlog: %v", err)
	}
	if len(ready) != 1 || ready[0].ConfigItemID != "FY" {
		t.Fatalf("expected FY ready, got %+v", ready)
	}

	arts, err := c.GenerateArtifacts(ctx, "CONFIG_WORKBOOK")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(arts) != 1 || arts[0].TBDCount != 1 {
		t.Fatalf("expected one workbook with one TBD, got %+v", arts)
	}
	data, filename, err := c.Download(ctx, "CONFIG_WORKBOOK")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if filename != "config_workbook.txt" || !strings.Contains(string(data), "template=IFRS") {
		t.Fatalf("unexpected download %s:\n%s", filename, string(data))
	}

	if _, err := c.SubmitAnswer(ctx, "FY", map[string]any{"start_month": 4}); err != nil {
		t.Fatalf("submit FY: %v", err)
	}
	progress, err := c.Progress(ctx)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if !progress.Complete || progress.Percentage != 100 {
		t.Fatalf("expected complete progress, got %+v", progress)
	}
	evts, err := c.Events(ctx, 1)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(evts) != 1 || evts[0].ActorID != "sdk" {
		t.Fatalf("unexpected events %+v", evts)
	}
}

func TestClientNotFound(t *testing.T) {
	srv := newLiveServer(t)
	c := New(srv.URL, "missing")
	_, err := c.Next(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != 404 || apiErr.Code != "not_found" {
		t.Fatalf("expected not_found, got %v", err)
	}
}
