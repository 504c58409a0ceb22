package catalog

import (
	"fmt"
	"strings"
)

const (
	KindParse             = "parse"
	KindMissingID         = "missing_id"
	KindDuplicateID       = "duplicate_id"
	KindInvalidInput      = "invalid_input"
	KindUnknownDependency = "unknown_dependency"
	KindCycle             = "cycle"
)

// CatalogError is a configuration-time defect in the catalog. It is fatal at load.
type CatalogError struct {
	Kind   string
	ItemID string
	Ref    string
	Cycle  []string
}

func (e *CatalogError) Error() string {
	switch e.Kind {
	case KindParse:
		return fmt.Sprintf("catalog: invalid yaml: %s", e.Ref)
	case KindMissingID:
		return fmt.Sprintf("catalog: item %s has no id", e.Ref)
	case KindDuplicateID:
		return fmt.Sprintf("catalog: duplicate item id %s", e.ItemID)
	case KindInvalidInput:
		return fmt.Sprintf("catalog: item %s has invalid input %s", e.ItemID, e.Ref)
	case KindUnknownDependency:
		return fmt.Sprintf("catalog: item %s depends on unknown item %s", e.ItemID, e.Ref)
	case KindCycle:
		return fmt.Sprintf("catalog: dependency cycle %s", strings.Join(e.Cycle, " -> "))
	}
	return fmt.Sprintf("catalog: %s %s", e.Kind, e.ItemID)
}
