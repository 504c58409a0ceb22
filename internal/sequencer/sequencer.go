package sequencer

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"wizline/internal/catalog"
	"wizline/internal/domain"
)

// ErrComplete is the terminal signal: every candidate item is DONE.
var ErrComplete = errors.New("wizard complete")

// ConsistencyWarning reports unanswered items that can never become READY
// because nothing else is answerable. It points at a catalog authoring defect.
type ConsistencyWarning struct {
	Unreachable []string
}

func (w *ConsistencyWarning) Error() string {
	return fmt.Sprintf("no ready item while %d remain blocked: %s", len(w.Unreachable), strings.Join(w.Unreachable, ", "))
}

// Filter restricts the candidate items. A nil Filter admits every item.
type Filter func(catalog.Item) bool

// BeginnerOnly admits items shown in BEGINNER mode.
func BeginnerOnly(it catalog.Item) bool { return it.ForBeginners() }

func (f Filter) admits(it catalog.Item) bool {
	return f == nil || f(it)
}

// Next returns the READY candidate with the lowest priority tier, ties broken
// by catalog declaration order. With no READY candidate it returns ErrComplete
// when all candidates are DONE and a *ConsistencyWarning otherwise.
func Next(cat *catalog.Catalog, statuses map[string]domain.Status, filter Filter) (catalog.Item, error) {
	var (
		best     catalog.Item
		found    bool
		stranded []string
	)
	for _, it := range cat.Items() {
		if !filter.admits(it) {
			continue
		}
		switch statuses[it.ID] {
		case domain.StatusReady:
			// Items are walked in declaration order, so a strictly lower tier is
			// the only reason to replace the current best.
			if !found || catalog.PriorityRank(it.Priority) < catalog.PriorityRank(best.Priority) {
				best, found = it, true
			}
		case domain.StatusDone:
		default:
			stranded = append(stranded, it.ID)
		}
	}
	if found {
		return best, nil
	}
	if len(stranded) == 0 {
		return catalog.Item{}, ErrComplete
	}
	return catalog.Item{}, &ConsistencyWarning{Unreachable: stranded}
}

// ByID returns an item regardless of its status.
func ByID(cat *catalog.Catalog, id string) (catalog.Item, error) {
	it, ok := cat.Get(id)
	if !ok {
		return catalog.Item{}, domain.NotFoundError{Kind: "config item", ID: id}
	}
	return it, nil
}

type Progress struct {
	Total      int     `json:"total"`
	Done       int     `json:"done"`
	Ready      int     `json:"ready"`
	Blocked    int     `json:"blocked"`
	Percentage float64 `json:"progress_percentage"`
}

// Complete uses exact counts, never the rounded percentage.
func (p Progress) Complete() bool { return p.Done == p.Total }

// ComputeProgress counts candidate items by status. Percentage is rounded to
// one decimal for display.
func ComputeProgress(cat *catalog.Catalog, statuses map[string]domain.Status, filter Filter) Progress {
	var p Progress
	for _, it := range cat.Items() {
		if !filter.admits(it) {
			continue
		}
		p.Total++
		switch statuses[it.ID] {
		case domain.StatusDone:
			p.Done++
		case domain.StatusReady:
			p.Ready++
		case domain.StatusBlocked:
			p.Blocked++
		}
	}
	if p.Total > 0 {
		p.Percentage = math.Round(float64(p.Done)/float64(p.Total)*1000) / 10
	}
	return p
}
