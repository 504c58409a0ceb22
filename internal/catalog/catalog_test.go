package catalog_test

import (
	"errors"
	"strings"
	"testing"

	"wizline/internal/catalog"
)

func TestDefaultCatalogLoads(t *testing.T) {
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if c.Len() == 0 {
		t.Fatalf("expected items in default catalog")
	}
	first := c.Items()[0]
	if first.ID != "FI-CORE-001" || first.Priority != "P0" {
		t.Fatalf("unexpected first item %s %s", first.ID, first.Priority)
	}
	if len(first.DependsOn) != 0 {
		t.Fatalf("first item should have no dependencies")
	}
	if first.Inputs[0].Label != "Fiscal Year Variant" {
		t.Fatalf("default label not derived: %q", first.Inputs[0].Label)
	}
	stats := c.Stats()
	if stats.Total != c.Len() || len(stats.IDs) != c.Len() {
		t.Fatalf("stats mismatch: %+v", stats)
	}
	sum := 0
	for _, n := range stats.ByPriority {
		sum += n
	}
	if sum != stats.Total {
		t.Fatalf("by_priority does not add up: %+v", stats.ByPriority)
	}
}

func TestBareListAndDefaults(t *testing.T) {
	c, err := catalog.FromYAML([]byte(`
- id: A
  inputs:
    - name: value
- id: B
  depends_on: [A]
  beginner_mode: false
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	a, _ := c.Get("A")
	if a.Priority != "P1" {
		t.Fatalf("priority default: %s", a.Priority)
	}
	if a.Inputs[0].Type != catalog.InputString {
		t.Fatalf("input type default: %s", a.Inputs[0].Type)
	}
	if !a.ForBeginners() {
		t.Fatalf("beginner_mode should default to true")
	}
	b, _ := c.Get("B")
	if b.ForBeginners() {
		t.Fatalf("B opted out of beginner mode")
	}
	if c.Index("B") != 1 || c.Index("missing") != -1 {
		t.Fatalf("unexpected index")
	}
}

func TestUnknownDependencyIsCatalogError(t *testing.T) {
	_, err := catalog.FromYAML([]byte(`
- id: A
  depends_on: [GHOST]
`))
	var ce *catalog.CatalogError
	if !errors.As(err, &ce) {
		t.Fatalf("expected CatalogError, got %v", err)
	}
	if ce.Kind != catalog.KindUnknownDependency || ce.ItemID != "A" || ce.Ref != "GHOST" {
		t.Fatalf("unexpected error %+v", ce)
	}
}

func TestCycleIsCatalogError(t *testing.T) {
	_, err := catalog.FromYAML([]byte(`
- id: A
  depends_on: [C]
- id: B
  depends_on: [A]
- id: C
  depends_on: [B]
- id: D
`))
	var ce *catalog.CatalogError
	if !errors.As(err, &ce) || ce.Kind != catalog.KindCycle {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if got := strings.Join(ce.Cycle, ","); got != "A,C,B,A" {
		t.Fatalf("unexpected cycle path %s", got)
	}
}

func TestSelfDependencyIsCycle(t *testing.T) {
	_, err := catalog.New([]catalog.Item{{ID: "A", DependsOn: []string{"A"}}})
	var ce *catalog.CatalogError
	if !errors.As(err, &ce) || ce.Kind != catalog.KindCycle {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestStructuralErrors(t *testing.T) {
	cases := map[string]struct {
		items []catalog.Item
		kind  string
	}{
		"missing id": {
			items: []catalog.Item{{Title: "no id"}},
			kind:  catalog.KindMissingID,
		},
		"duplicate": {
			items: []catalog.Item{{ID: "A"}, {ID: "A"}},
			kind:  catalog.KindDuplicateID,
		},
		"bad input type": {
			items: []catalog.Item{{ID: "A", Inputs: []catalog.Input{{Name: "x", Type: "date"}}}},
			kind:  catalog.KindInvalidInput,
		},
		"duplicate input": {
			items: []catalog.Item{{ID: "A", Inputs: []catalog.Input{{Name: "x"}, {Name: "x"}}}},
			kind:  catalog.KindInvalidInput,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := catalog.New(tc.items)
			var ce *catalog.CatalogError
			if !errors.As(err, &ce) || ce.Kind != tc.kind {
				t.Fatalf("expected %s, got %v", tc.kind, err)
			}
		})
	}
}

func TestPriorityRank(t *testing.T) {
	if catalog.PriorityRank("P0") >= catalog.PriorityRank("P1") {
		t.Fatalf("P0 must rank before P1")
	}
	if catalog.PriorityRank("p3") != 3 {
		t.Fatalf("rank should be case-insensitive")
	}
	if catalog.PriorityRank("urgent") <= catalog.PriorityRank("P3") {
		t.Fatalf("unknown tiers sort last")
	}
	c, err := catalog.New([]catalog.Item{{ID: "A", Priority: "P2"}, {ID: "B", Priority: "P0"}, {ID: "C"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Join(c.Priorities(), ","); got != "P0,P1,P2" {
		t.Fatalf("priorities order %s", got)
	}
}
