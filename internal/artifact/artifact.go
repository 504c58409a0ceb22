package artifact

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"wizline/internal/catalog"
	"wizline/internal/domain"
	"wizline/internal/sequencer"
)

// TBD marks data that has not been decided yet.
const TBD = "TBD"

// Snapshot is everything a compilation reads. It must come from one
// consistent read of the answer store.
type Snapshot struct {
	Project   domain.Project
	Catalog   *catalog.Catalog
	Answers   map[string]domain.Answer
	Decisions []domain.Decision
	Statuses  map[string]domain.Status
}

func (s Snapshot) answered(id string) bool {
	_, ok := s.Answers[id]
	return ok
}

type Document struct {
	Type     domain.ArtifactType
	Content  string
	TBDCount int
}

// Compile renders one artifact type. It never fails: missing data is rendered
// as TBD and counted.
func Compile(s Snapshot, t domain.ArtifactType) (string, int) {
	w := &writer{}
	switch t {
	case domain.ArtifactDecisionLog:
		decisionLog(w, s)
	case domain.ArtifactConfigWorkbook:
		configWorkbook(w, s)
	case domain.ArtifactTestView:
		testView(w, s)
	case domain.ArtifactMigrationView:
		migrationView(w, s)
	default:
		header(w, s, string(t))
		w.line("Unsupported artifact type.")
	}
	return w.String(), w.tbd
}

// CompileAll renders the requested types, or every type when none are given.
func CompileAll(s Snapshot, types []domain.ArtifactType) []Document {
	if len(types) == 0 {
		types = domain.ArtifactTypes
	}
	docs := make([]Document, 0, len(types))
	for _, t := range types {
		content, tbd := Compile(s, t)
		docs = append(docs, Document{Type: t, Content: content, TBDCount: tbd})
	}
	return docs
}

type writer struct {
	b   strings.Builder
	tbd int
}

func (w *writer) line(format string, args ...any) {
	if len(args) == 0 {
		w.b.WriteString(format)
	} else {
		fmt.Fprintf(&w.b, format, args...)
	}
	w.b.WriteByte('\n')
}

func (w *writer) blank() { w.b.WriteByte('\n') }

// marker returns the TBD placeholder and counts it.
func (w *writer) marker() string {
	w.tbd++
	return TBD
}

func (w *writer) String() string { return w.b.String() }

func header(w *writer, s Snapshot, title string) {
	w.line(title)
	w.line(strings.Repeat("=", len(title)))
	w.line("Project: %s (%s)", s.Project.Name, s.Project.ID)
	if s.Catalog != nil && s.Catalog.Version != "" {
		w.line("Catalog: %s", s.Catalog.Version)
	}
	w.blank()
}

func section(w *writer, title string) {
	w.line(title)
	w.line(strings.Repeat("-", len(title)))
}

// relevant returns catalog items producing the artifact type, in declaration order.
func relevant(s Snapshot, t domain.ArtifactType) []catalog.Item {
	var out []catalog.Item
	for _, it := range s.Catalog.Items() {
		if it.HasTag(string(t)) {
			out = append(out, it)
		}
	}
	return out
}

func decisionLog(w *writer, s Snapshot) {
	header(w, s, "DECISION LOG")
	section(w, "Decisions")
	n := 0
	for _, d := range s.Decisions {
		it, known := s.Catalog.Get(d.ConfigItemID)
		if known && !it.HasTag(string(domain.ArtifactDecisionLog)) {
			continue
		}
		n++
		priority := "-"
		if known {
			priority = it.Priority
		}
		w.line("%d. %s", n, d.Title)
		w.line("   Item: %s", d.ConfigItemID)
		w.line("   Priority: %s", priority)
		w.line("   Decided: %s", d.CreatedAt)
		w.line("   Status: %s", d.Status)
		if d.Rationale != "" {
			w.line("   Decision: %s", d.Rationale)
		}
		if d.Impact != "" {
			w.line("   Impact: %s", d.Impact)
		}
	}
	if n == 0 {
		w.line("No decisions recorded yet.")
	}
	w.blank()

	section(w, "Undecided")
	pending := 0
	for _, it := range relevant(s, domain.ArtifactDecisionLog) {
		if s.answered(it.ID) {
			continue
		}
		pending++
		w.line("- %s %s: %s", it.ID, it.Title, w.marker())
	}
	if pending == 0 {
		w.line("None.")
	}
}

func configWorkbook(w *writer, s Snapshot) {
	header(w, s, "CONFIG WORKBOOK")
	items := relevant(s, domain.ArtifactConfigWorkbook)

	p := sequencer.ComputeProgress(s.Catalog, s.Statuses, func(it catalog.Item) bool {
		return it.HasTag(string(domain.ArtifactConfigWorkbook))
	})
	section(w, "Summary")
	w.line("Total items: %d", p.Total)
	w.line("Done: %d (%.1f%%)", p.Done, p.Percentage)
	w.line("Ready: %d", p.Ready)
	w.line("Blocked: %d", p.Blocked)
	w.blank()

	byPriority := map[string][]catalog.Item{}
	for _, it := range items {
		byPriority[it.Priority] = append(byPriority[it.Priority], it)
	}
	for _, tier := range s.Catalog.Priorities() {
		group := byPriority[tier]
		if len(group) == 0 {
			continue
		}
		section(w, "Priority "+tier)
		for _, it := range group {
			deps := "-"
			if len(it.DependsOn) > 0 {
				deps = strings.Join(it.DependsOn, ", ")
			}
			value := ""
			if a, ok := s.Answers[it.ID]; ok {
				value = FormatValues(a.Values)
				if value == "" {
					value = "(set)"
				}
			} else {
				value = w.marker()
			}
			w.line("%s | %s | %s | deps: %s | %s", it.ID, it.Title, s.Statuses[it.ID], deps, value)
		}
		w.blank()
	}
}

func testView(w *writer, s Snapshot) {
	body := &writer{}
	tested, cases, total := 0, 0, 0
	for _, it := range relevant(s, domain.ArtifactTestView) {
		total++
		body.line("%s %s", it.ID, it.Title)
		a, ok := s.Answers[it.ID]
		if !ok {
			body.line("Status: %s", body.marker())
			body.line("  Test cases are generated once the item is decided.")
			body.blank()
			continue
		}
		tested++
		body.line("Status: %s", domain.StatusDone)
		n := 0
		add := func(format string, args ...any) {
			n++
			body.line("  %d. "+format, append([]any{n}, args...)...)
		}
		for _, k := range sortedKeys(a.Values) {
			add("Verify %s is applied as %s", k, FormatValue(a.Values[k]))
		}
		for _, tp := range it.TestPerspectives {
			add("%s", tp)
		}
		if len(it.TestPerspectives) == 0 {
			if it.Description != "" {
				add("Verify behaviour described by: %s", it.Description)
			}
			add("Verify related screens and functions")
		}
		cases += n
		body.blank()
	}

	header(w, s, "TEST VIEW")
	section(w, "Summary")
	w.line("Items with test cases: %d/%d", tested, total)
	w.line("Test cases: %d", cases)
	w.line("Undecided items: %d", total-tested)
	w.blank()
	section(w, "Test cases")
	w.b.WriteString(body.String())
	w.tbd += body.tbd
}

// migrationSteps is the fixed cutover plan appended to every migration view.
var migrationSteps = []string{
	"Extract master data from the legacy system",
	"Cleanse and transform data",
	"Load test data",
	"Reconcile and verify consistency",
	"Migrate production data",
}

func migrationView(w *writer, s Snapshot) {
	header(w, s, "MIGRATION VIEW")
	section(w, "Migration objects")
	items := relevant(s, domain.ArtifactMigrationView)
	if len(items) == 0 {
		w.line("No master data requires migration.")
	}
	for _, it := range items {
		object := it.MigrationObject
		if object == "" {
			object = it.Title
		}
		w.line("%s %s", it.ID, it.Title)
		w.line("  Object: %s", object)
		if a, ok := s.Answers[it.ID]; ok {
			notes := FormatValues(a.Values)
			if notes == "" {
				notes = "-"
			}
			w.line("  Status: %s", domain.StatusDone)
			w.line("  Notes: %s", notes)
		} else {
			w.line("  Status: %s", w.marker())
			w.line("  Notes: -")
		}
	}
	w.blank()
	section(w, "Migration steps")
	for i, step := range migrationSteps {
		w.line("%d. %s", i+1, step)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// FormatValues renders answer values as "name=value; ..." with keys sorted.
func FormatValues(values map[string]any) string {
	parts := make([]string, 0, len(values))
	for _, k := range sortedKeys(values) {
		parts = append(parts, k+"="+FormatValue(values[k]))
	}
	return strings.Join(parts, "; ")
}

// FormatValue renders a scalar, or a list joined with ", ".
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = FormatValue(e)
		}
		return strings.Join(parts, ", ")
	case []string:
		return strings.Join(x, ", ")
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
