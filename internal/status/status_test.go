package status_test

import (
	"testing"

	"wizline/internal/catalog"
	"wizline/internal/domain"
	"wizline/internal/status"
)

func twoItems(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Item{
		{ID: "A"},
		{ID: "B", DependsOn: []string{"A"}},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func diamond(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Item{
		{ID: "A"},
		{ID: "B", DependsOn: []string{"A"}},
		{ID: "C", DependsOn: []string{"A"}},
		{ID: "D", DependsOn: []string{"B", "C"}},
		{ID: "E"},
	})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func TestTwoItemScenario(t *testing.T) {
	c := twoItems(t)
	got := status.Compute(c, status.Answered{})
	if got["A"] != domain.StatusReady || got["B"] != domain.StatusBlocked {
		t.Fatalf("before answers: %v", got)
	}
	got = status.Compute(c, status.Answered{"A": true})
	if got["A"] != domain.StatusDone || got["B"] != domain.StatusReady {
		t.Fatalf("after A: %v", got)
	}
	got = status.Compute(c, status.Answered{"A": true, "B": true})
	if got["A"] != domain.StatusDone || got["B"] != domain.StatusDone {
		t.Fatalf("after B: %v", got)
	}
}

func subsets(ids []string) []status.Answered {
	var out []status.Answered
	for mask := 0; mask < 1<<len(ids); mask++ {
		a := status.Answered{}
		for i, id := range ids {
			if mask&(1<<i) != 0 {
				a[id] = true
			}
		}
		out = append(out, a)
	}
	return out
}

func TestExactlyOneStatusAndDoneMeansAnswered(t *testing.T) {
	c := diamond(t)
	for _, answered := range subsets(c.IDs()) {
		for _, beginner := range []bool{false, true} {
			got := status.ComputeWith(c, answered, status.Options{Beginner: beginner})
			if len(got) != c.Len() {
				t.Fatalf("expected %d statuses, got %d", c.Len(), len(got))
			}
			for id, s := range got {
				switch s {
				case domain.StatusReady, domain.StatusBlocked, domain.StatusDone:
				default:
					t.Fatalf("item %s has status %s", id, s)
				}
				if (s == domain.StatusDone) != answered[id] {
					t.Fatalf("item %s: status %s answered %v", id, s, answered[id])
				}
			}
		}
	}
}

func rank(s domain.Status) int {
	switch s {
	case domain.StatusBlocked:
		return 0
	case domain.StatusReady:
		return 1
	case domain.StatusDone:
		return 2
	}
	return -1
}

func TestAnsweringIsMonotonic(t *testing.T) {
	c := diamond(t)
	for _, answered := range subsets(c.IDs()) {
		before := status.Compute(c, answered)
		for _, id := range c.IDs() {
			if answered[id] {
				continue
			}
			next := status.Answered{id: true}
			for k := range answered {
				next[k] = true
			}
			after := status.Compute(c, next)
			for item, s := range before {
				if rank(after[item]) < rank(s) {
					t.Fatalf("answering %s moved %s from %s to %s", id, item, s, after[item])
				}
			}
		}
	}
}

func TestOrderIndependentOfDeclaration(t *testing.T) {
	a, err := catalog.New([]catalog.Item{{ID: "X", DependsOn: []string{"Y"}}, {ID: "Y"}})
	if err != nil {
		t.Fatal(err)
	}
	got := status.Compute(a, status.Answered{})
	if got["X"] != domain.StatusBlocked || got["Y"] != domain.StatusReady {
		t.Fatalf("unexpected statuses %v", got)
	}
}

func TestBeginnerSkipsHiddenDependencies(t *testing.T) {
	hidden := false
	c, err := catalog.New([]catalog.Item{
		{ID: "A"},
		{ID: "H", DependsOn: []string{"A"}, BeginnerMode: &hidden},
		{ID: "B", DependsOn: []string{"H"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	expert := status.Compute(c, status.Answered{"A": true})
	if expert["B"] != domain.StatusBlocked {
		t.Fatalf("expert mode should block B on H, got %s", expert["B"])
	}
	beginner := status.ComputeWith(c, status.Answered{"A": true}, status.Options{Beginner: true})
	if beginner["B"] != domain.StatusReady {
		t.Fatalf("beginner mode should skip through H, got %s", beginner["B"])
	}
	beginner = status.ComputeWith(c, status.Answered{}, status.Options{Beginner: true})
	if beginner["B"] != domain.StatusBlocked {
		t.Fatalf("skip-through still requires A, got %s", beginner["B"])
	}
}

func TestBacklogFilterAndGraph(t *testing.T) {
	c := twoItems(t)
	answered := status.Answered{"A": true}
	statuses := status.Compute(c, answered)
	entries := status.Backlog(c, statuses, answered)
	if len(entries) != 2 || entries[0].ConfigItemID != "A" || !entries[0].Answered {
		t.Fatalf("unexpected backlog %+v", entries)
	}
	if got := status.Filter(entries, domain.StatusReady); len(got) != 1 || got[0].ConfigItemID != "B" {
		t.Fatalf("ready filter %+v", got)
	}
	if got := status.Filter(entries, domain.StatusPending); len(got) != 0 {
		t.Fatalf("pending is never produced by an evaluation pass: %+v", got)
	}
	counts := status.Counts(statuses)
	if counts[domain.StatusDone] != 1 || counts[domain.StatusReady] != 1 || counts[domain.StatusBlocked] != 0 {
		t.Fatalf("counts %v", counts)
	}
	g := status.BuildGraph(c, statuses, answered)
	if len(g.Nodes) != 2 || len(g.Edges) != 1 || g.Edges[0].From != "A" || g.Edges[0].To != "B" {
		t.Fatalf("graph %+v", g)
	}
}
