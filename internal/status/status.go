package status

import (
	"wizline/internal/catalog"
	"wizline/internal/domain"
)

// Answered is the set of item ids with a recorded answer.
type Answered map[string]bool

// Options tunes an evaluation pass.
type Options struct {
	// Beginner skips through dependencies on items hidden from beginners: such a
	// dependency counts as satisfied when its own dependencies are.
	Beginner bool
}

// Compute classifies every catalog item as DONE, READY or BLOCKED. Dependency
// references are already resolved: catalog.New rejects unknown ids and cycles
// with a CatalogError, so a *catalog.Catalog is always evaluable.
func Compute(cat *catalog.Catalog, answered Answered) map[string]domain.Status {
	return ComputeWith(cat, answered, Options{})
}

// ComputeWith is Compute with evaluation options. It never returns PENDING.
func ComputeWith(cat *catalog.Catalog, answered Answered, opts Options) map[string]domain.Status {
	items := cat.Items()
	e := evaluator{cat: cat, answered: answered, opts: opts, memo: map[string]bool{}}
	out := make(map[string]domain.Status, len(items))
	for _, it := range items {
		switch {
		case answered[it.ID]:
			out[it.ID] = domain.StatusDone
		case e.depsSatisfied(it):
			out[it.ID] = domain.StatusReady
		default:
			out[it.ID] = domain.StatusBlocked
		}
	}
	return out
}

type evaluator struct {
	cat      *catalog.Catalog
	answered Answered
	opts     Options
	memo     map[string]bool
}

func (e evaluator) depsSatisfied(it catalog.Item) bool {
	for _, dep := range it.DependsOn {
		if !e.satisfied(dep) {
			return false
		}
	}
	return true
}

// satisfied reports whether dependency id no longer gates its dependents.
func (e evaluator) satisfied(id string) bool {
	if e.answered[id] {
		return true
	}
	if !e.opts.Beginner {
		return false
	}
	if v, ok := e.memo[id]; ok {
		return v
	}
	dep, _ := e.cat.Get(id)
	v := !dep.ForBeginners() && e.depsSatisfied(dep)
	e.memo[id] = v
	return v
}

// Backlog annotates every item with its status, in catalog order.
func Backlog(cat *catalog.Catalog, statuses map[string]domain.Status, answered Answered) []domain.BacklogEntry {
	items := cat.Items()
	out := make([]domain.BacklogEntry, 0, len(items))
	for _, it := range items {
		out = append(out, domain.BacklogEntry{
			ConfigItemID: it.ID,
			Title:        it.Title,
			Priority:     it.Priority,
			Status:       statuses[it.ID],
			Answered:     answered[it.ID],
			DependsOn:    append([]string{}, it.DependsOn...),
		})
	}
	return out
}

// Filter keeps entries with the given status. An empty status keeps all.
func Filter(entries []domain.BacklogEntry, s domain.Status) []domain.BacklogEntry {
	if s == "" {
		return entries
	}
	out := []domain.BacklogEntry{}
	for _, e := range entries {
		if e.Status == s {
			out = append(out, e)
		}
	}
	return out
}

// Counts tallies statuses; every lifecycle state is present in the result.
func Counts(statuses map[string]domain.Status) map[domain.Status]int {
	out := map[domain.Status]int{
		domain.StatusPending: 0,
		domain.StatusBlocked: 0,
		domain.StatusReady:   0,
		domain.StatusDone:    0,
	}
	for _, s := range statuses {
		out[s]++
	}
	return out
}

type GraphNode struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Priority string        `json:"priority"`
	Status   domain.Status `json:"status"`
	Answered bool          `json:"answered"`
}

type GraphEdge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// BuildGraph returns the dependency graph with edges pointing from prerequisite to dependent.
func BuildGraph(cat *catalog.Catalog, statuses map[string]domain.Status, answered Answered) Graph {
	g := Graph{Nodes: []GraphNode{}, Edges: []GraphEdge{}}
	for _, it := range cat.Items() {
		g.Nodes = append(g.Nodes, GraphNode{
			ID:       it.ID,
			Label:    it.Title,
			Priority: it.Priority,
			Status:   statuses[it.ID],
			Answered: answered[it.ID],
		})
		for _, dep := range it.DependsOn {
			g.Edges = append(g.Edges, GraphEdge{From: dep, To: it.ID})
		}
	}
	return g
}
