package artifact

import (
	"wizline/internal/domain"
)

type ExportProject struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Mode         domain.Mode `json:"mode"`
	Country      string      `json:"country,omitempty"`
	Currency     string      `json:"currency,omitempty"`
	Industry     string      `json:"industry,omitempty"`
	CompanyCount *int        `json:"company_count,omitempty"`
	CreatedAt    string      `json:"created_at"`
}

type ExportDecision struct {
	ConfigItemID string `json:"config_item_id"`
	Title        string `json:"title"`
	Rationale    string `json:"rationale,omitempty"`
	Impact       string `json:"impact,omitempty"`
	Status       string `json:"status"`
	DecidedAt    string `json:"decided_at"`
	Priority     string `json:"priority,omitempty"`
}

type ExportItem struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Priority  string         `json:"priority"`
	Status    domain.Status  `json:"status"`
	Answered  bool           `json:"answered"`
	DependsOn []string       `json:"depends_on"`
	Produces  []string       `json:"produces"`
	Answers   map[string]any `json:"answers"`
}

type ExportSummary struct {
	TotalItems int `json:"total_items"`
	Answered   int `json:"answered"`
	TBD        int `json:"tbd"`
}

// ExportDocument is the structured export of a project for downstream tools.
type ExportDocument struct {
	Project        ExportProject    `json:"project"`
	CatalogVersion string           `json:"catalog_version,omitempty"`
	Decisions      []ExportDecision `json:"decisions"`
	ConfigItems    []ExportItem     `json:"config_items"`
	Summary        ExportSummary    `json:"summary"`
}

// Export builds the structured document. Decisions keep recorded order and
// items keep catalog order.
func Export(s Snapshot) ExportDocument {
	mode := s.Project.Mode
	if mode == "" {
		mode = domain.ModeExpert
	}
	doc := ExportDocument{
		Project: ExportProject{
			ID:           s.Project.ID,
			Name:         s.Project.Name,
			Mode:         mode,
			Country:      s.Project.Country,
			Currency:     s.Project.Currency,
			Industry:     s.Project.Industry,
			CompanyCount: s.Project.CompanyCount,
			CreatedAt:    s.Project.CreatedAt,
		},
		CatalogVersion: s.Catalog.Version,
		Decisions:      []ExportDecision{},
		ConfigItems:    []ExportItem{},
	}
	for _, d := range s.Decisions {
		ed := ExportDecision{
			ConfigItemID: d.ConfigItemID,
			Title:        d.Title,
			Rationale:    d.Rationale,
			Impact:       d.Impact,
			Status:       d.Status,
			DecidedAt:    d.CreatedAt,
		}
		if it, ok := s.Catalog.Get(d.ConfigItemID); ok {
			ed.Priority = it.Priority
		}
		doc.Decisions = append(doc.Decisions, ed)
	}
	for _, it := range s.Catalog.Items() {
		item := ExportItem{
			ID:        it.ID,
			Title:     it.Title,
			Priority:  it.Priority,
			Status:    s.Statuses[it.ID],
			DependsOn: it.DependsOn,
			Produces:  it.Produces,
			Answers:   map[string]any{},
		}
		if a, ok := s.Answers[it.ID]; ok {
			item.Answered = true
			for k, v := range a.Values {
				item.Answers[k] = v
			}
			doc.Summary.Answered++
		}
		doc.ConfigItems = append(doc.ConfigItems, item)
	}
	doc.Summary.TotalItems = len(doc.ConfigItems)
	doc.Summary.TBD = doc.Summary.TotalItems - doc.Summary.Answered
	return doc
}
