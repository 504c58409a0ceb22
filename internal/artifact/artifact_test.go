package artifact

import (
	"encoding/json"
	"strings"
	"testing"

	"wizline/internal/catalog"
	"wizline/internal/domain"
	"wizline/internal/status"
)

var allTags = []string{"DECISION_LOG", "CONFIG_WORKBOOK", "TEST_VIEW", "MIGRATION_VIEW"}

func abSnapshot(t *testing.T, answered ...string) Snapshot {
	t.Helper()
	cat, err := catalog.New([]catalog.Item{
		{ID: "A", Title: "Alpha", Priority: "P0", Produces: allTags,
			Inputs: []catalog.Input{{Name: "variant", Type: catalog.InputSelect, Required: true, Options: []string{"K4", "V3"}}}},
		{ID: "B", Title: "Beta", Priority: "P0", DependsOn: []string{"A"}, Produces: allTags,
			Inputs: []catalog.Input{{Name: "code", Required: true}}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	s := Snapshot{
		Project: domain.Project{ID: "demo", Name: "Demo"},
		Catalog: cat,
		Answers: map[string]domain.Answer{},
	}
	ids := status.Answered{}
	for i, id := range answered {
		values := map[string]any{"variant": "K4"}
		if id == "B" {
			values = map[string]any{"code": "1000"}
		}
		s.Answers[id] = domain.Answer{ProjectID: "demo", ConfigItemID: id, Values: values}
		s.Decisions = append(s.Decisions, domain.Decision{
			Seq: int64(i + 1), ConfigItemID: id, Title: id + " decided", Status: "DECIDED",
			Rationale: FormatValues(values), CreatedAt: "2024-01-01T00:00:00Z",
		})
		ids[id] = true
	}
	s.Statuses = status.Compute(cat, ids)
	return s
}

func TestPartialProjectMarksTBD(t *testing.T) {
	s := abSnapshot(t, "A")
	docs := CompileAll(s, nil)
	if len(docs) != 4 {
		t.Fatalf("expected 4 documents, got %d", len(docs))
	}
	for _, d := range docs {
		switch d.Type {
		case domain.ArtifactDecisionLog:
			if !strings.Contains(d.Content, "1. A decided") || strings.Contains(d.Content, "2. ") {
				t.Fatalf("decision log should hold exactly one entry:\n%s", d.Content)
			}
		default:
			if d.TBDCount < 1 {
				t.Fatalf("%s: expected tbd >= 1, got %d", d.Type, d.TBDCount)
			}
			if !strings.Contains(d.Content, "B Beta") && !strings.Contains(d.Content, "B | Beta") {
				t.Fatalf("%s: B section missing:\n%s", d.Type, d.Content)
			}
		}
		if got := strings.Count(d.Content, TBD); got != d.TBDCount {
			t.Fatalf("%s: counted %d markers, rendered %d", d.Type, d.TBDCount, got)
		}
	}
}

func TestBlockedItemsStillRender(t *testing.T) {
	s := abSnapshot(t)
	if s.Statuses["B"] != domain.StatusBlocked {
		t.Fatalf("expected B blocked")
	}
	content, tbd := Compile(s, domain.ArtifactConfigWorkbook)
	if tbd != 2 {
		t.Fatalf("expected 2 placeholders, got %d:\n%s", tbd, content)
	}
	if !strings.Contains(content, "B | Beta | BLOCKED | deps: A | TBD") {
		t.Fatalf("unexpected workbook:\n%s", content)
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	s := abSnapshot(t, "A", "B")
	first := CompileAll(s, nil)
	second := CompileAll(s, nil)
	for i := range first {
		if first[i].Content != second[i].Content {
			t.Fatalf("%s differs between runs", first[i].Type)
		}
		if first[i].TBDCount != 0 {
			t.Fatalf("%s: complete project has tbd %d", first[i].Type, first[i].TBDCount)
		}
	}
	a, _ := json.Marshal(Export(s))
	b, _ := json.Marshal(Export(s))
	if string(a) != string(b) {
		t.Fatalf("export differs between runs")
	}
}

func TestDecisionLogIsChronological(t *testing.T) {
	s := abSnapshot(t, "B", "A")
	content, _ := Compile(s, domain.ArtifactDecisionLog)
	if strings.Index(content, "1. B decided") > strings.Index(content, "2. A decided") {
		t.Fatalf("expected recorded order:\n%s", content)
	}
	wb, _ := Compile(s, domain.ArtifactConfigWorkbook)
	if strings.Index(wb, "A | Alpha") > strings.Index(wb, "B | Beta") {
		t.Fatalf("workbook must follow catalog order:\n%s", wb)
	}
}

func TestMigrationViewOnlyTaggedItems(t *testing.T) {
	cat, err := catalog.New([]catalog.Item{
		{ID: "M", Title: "Master", Produces: []string{"MIGRATION_VIEW"}, MigrationObject: "Company master"},
		{ID: "X", Title: "Other", Produces: []string{"CONFIG_WORKBOOK"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	s := Snapshot{Project: domain.Project{ID: "p", Name: "P"}, Catalog: cat, Answers: map[string]domain.Answer{}, Statuses: status.Compute(cat, status.Answered{})}
	content, tbd := Compile(s, domain.ArtifactMigrationView)
	if tbd != 1 || !strings.Contains(content, "Object: Company master") || strings.Contains(content, "X Other") {
		t.Fatalf("unexpected migration view (%d):\n%s", tbd, content)
	}
	if !strings.Contains(content, "5. Migrate production data") {
		t.Fatalf("missing migration steps:\n%s", content)
	}
}

func TestExportSummary(t *testing.T) {
	doc := Export(abSnapshot(t, "A"))
	if doc.Summary.TotalItems != 2 || doc.Summary.Answered != 1 || doc.Summary.TBD != 1 {
		t.Fatalf("summary %+v", doc.Summary)
	}
	if doc.Project.Mode != domain.ModeExpert || len(doc.Decisions) != 1 || doc.Decisions[0].Priority != "P0" {
		t.Fatalf("export %+v", doc)
	}
}

func TestFormatValues(t *testing.T) {
	got := FormatValues(map[string]any{"z": []any{"a", "b"}, "a": float64(4), "m": "x"})
	if got != "a=4; m=x; z=a, b" {
		t.Fatalf("got %q", got)
	}
}
