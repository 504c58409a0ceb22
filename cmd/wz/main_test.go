package main

import (
	"bytes"
	"context"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/joho/godotenv"

	"wizline/internal/catalog"
	"wizline/internal/db"
	"wizline/internal/engine"
	"wizline/internal/migrate"
)

func testEngine(t *testing.T) engine.Engine {
	t.Helper()
	cat, err := catalog.New([]catalog.Item{
		{ID: "A", Title: "Alpha", Priority: "P0",
			Inputs: []catalog.Input{{Name: "variant", Type: catalog.InputSelect, Required: true, Options: []string{"K4", "V3"}}}},
		{ID: "B", Title: "Beta", Priority: "P1", DependsOn: []string{"A"},
			Inputs: []catalog.Input{
				{Name: "code", Required: true},
				{Name: "currency", Required: true},
			}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn, db.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, db.SQLite, cat)
	if _, err := e.CreateProject(context.Background(), engine.ProjectCreateOptions{ID: "p1", Name: "Demo", ActorID: "tester"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	return e
}

func TestParseFieldValue(t *testing.T) {
	num := catalog.Input{Name: "amount", Type: catalog.InputNumber}
	v, err := parseFieldValue(num, " 12.5 ")
	if err != nil || v != 12.5 {
		t.Fatalf("number: got %v, %v", v, err)
	}
	if v, err := parseFieldValue(num, ""); err != nil || v != nil {
		t.Fatalf("empty number: got %v, %v", v, err)
	}
	if _, err := parseFieldValue(num, "ten"); err == nil {
		t.Fatalf("expected error for non numeric input")
	}

	multi := catalog.Input{Name: "ledgers", Type: catalog.InputMultiSelect, Options: []string{"0L", "2L", "3L"}}
	v, err = parseFieldValue(multi, "0L, 2L,")
	if err != nil {
		t.Fatalf("multiselect: %v", err)
	}
	if !reflect.DeepEqual(v, []string{"0L", "2L"}) {
		t.Fatalf("multiselect: got %#v", v)
	}
	if _, err := parseFieldValue(multi, "0L,9L"); err == nil {
		t.Fatalf("expected error for unknown option")
	}

	sel := catalog.Input{Name: "variant", Type: catalog.InputSelect, Options: []string{"K4", "V3"}}
	if _, err := parseFieldValue(sel, "X1"); err == nil {
		t.Fatalf("expected error for unknown select option")
	}
	if v, err := parseFieldValue(catalog.Input{Name: "code"}, "  1000 "); err != nil || v != "1000" {
		t.Fatalf("string: got %v, %v", v, err)
	}
}

func TestParseAssignments(t *testing.T) {
	it := catalog.Item{ID: "X", Inputs: []catalog.Input{
		{Name: "code", Type: catalog.InputString},
		{Name: "rate", Type: catalog.InputNumber},
	}}
	got, err := parseAssignments(it, []string{"code=A=1", "rate=2"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]any{"code": "A=1", "rate": float64(2)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
	if _, err := parseAssignments(it, []string{"missing"}); err == nil {
		t.Fatalf("expected error without '='")
	}
	if _, err := parseAssignments(it, []string{"other=1"}); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestSetEnvValueKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), envFile)
	if err := setEnvValue(path, "WIZLINE_DEFAULT_PROJECT", "p1"); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := setEnvValue(path, "OTHER", "x"); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if err := setEnvValue(path, "WIZLINE_DEFAULT_PROJECT", "p2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	values, err := godotenv.Read(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if values["WIZLINE_DEFAULT_PROJECT"] != "p2" || values["OTHER"] != "x" {
		t.Fatalf("unexpected values: %#v", values)
	}
}

func TestRunnerWalksBackAndCompletes(t *testing.T) {
	e := testEngine(t)
	script := strings.Join([]string{
		"", "K4", // answer A
		"b",      // back from B to A
		"", "V3", // revise A
		"", "1000", "EUR", // answer B
	}, "\n") + "\n"
	var out bytes.Buffer
	r := &runner{engine: e, projectID: "p1", actorID: "tester", in: strings.NewReader(script), out: &out}
	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "Wizard complete") {
		t.Fatalf("expected completion message, got:\n%s", out.String())
	}
	a, err := e.GetAnswer(context.Background(), "p1", "A")
	if err != nil {
		t.Fatalf("get answer: %v", err)
	}
	if a.Values["variant"] != "V3" {
		t.Fatalf("expected revised variant V3, got %#v", a.Values)
	}
	decisions, err := e.ListDecisions(context.Background(), "p1")
	if err != nil {
		t.Fatalf("decisions: %v", err)
	}
	if len(decisions) != 2 || decisions[0].ConfigItemID != "A" {
		t.Fatalf("expected one decision per item in first-recorded order, got %#v", decisions)
	}
}

func TestRunnerEditEndsAtBacklog(t *testing.T) {
	e := testEngine(t)
	script := strings.Join([]string{
		"", "K4", // answer A
		"e A", // edit A while B is on screen
		"", "V3",
		"", "1000", "EUR", // must not be consumed
	}, "\n") + "\n"
	var out bytes.Buffer
	r := &runner{engine: e, projectID: "p1", actorID: "tester", in: strings.NewReader(script), out: &out}
	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}
	_, tail, ok := strings.Cut(out.String(), "Saved A: variant=V3")
	if !ok {
		t.Fatalf("expected edit to be saved, got:\n%s", out.String())
	}
	if !strings.Contains(tail, "Backlog:") {
		t.Fatalf("expected backlog after edit, got:\n%s", tail)
	}
	if strings.Contains(tail, "] B Beta") {
		t.Fatalf("edit session continued into the next question:\n%s", tail)
	}
	if _, err := e.GetAnswer(context.Background(), "p1", "B"); err == nil {
		t.Fatalf("B must stay unanswered after an edit session")
	}
}

func TestRunnerEditKeepsUnknownKeys(t *testing.T) {
	e := testEngine(t)
	ctx := context.Background()
	if _, err := e.SubmitAnswer(ctx, engine.SubmitOptions{ProjectID: "p1", ItemID: "A", Answers: map[string]any{"variant": "K4", "note": "legacy"}, ActorID: "tester"}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	script := "e A\n\nV3\n"
	var out bytes.Buffer
	r := &runner{engine: e, projectID: "p1", actorID: "tester", in: strings.NewReader(script), out: &out}
	if err := r.run(ctx); err != nil {
		t.Fatalf("run: %v\n%s", err, out.String())
	}
	a, err := e.GetAnswer(ctx, "p1", "A")
	if err != nil {
		t.Fatalf("get answer: %v", err)
	}
	if a.Values["variant"] != "V3" || a.Values["note"] != "legacy" {
		t.Fatalf("expected edited variant with note kept, got %#v", a.Values)
	}
}

func TestRunnerReportsMissingFields(t *testing.T) {
	e := testEngine(t)
	script := "\n\nq\n"
	var out bytes.Buffer
	r := &runner{engine: e, projectID: "p1", actorID: "tester", in: strings.NewReader(script), out: &out}
	if err := r.run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Missing required fields: variant") {
		t.Fatalf("expected missing field report, got:\n%s", out.String())
	}
}
