package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fi_core.yml
var defaultCatalog []byte

type InputType string

const (
	InputSelect      InputType = "select"
	InputMultiSelect InputType = "multiselect"
	InputString      InputType = "string"
	InputNumber      InputType = "number"
)

// Input is one field of a configuration item form.
type Input struct {
	Name         string            `yaml:"name" json:"name"`
	Type         InputType         `yaml:"type" json:"type"`
	Label        string            `yaml:"label" json:"label,omitempty"`
	Required     bool              `yaml:"required" json:"required"`
	Options      []string          `yaml:"options" json:"options,omitempty"`
	OptionLabels map[string]string `yaml:"option_labels" json:"option_labels,omitempty"`
	Recommended  any               `yaml:"recommended" json:"recommended,omitempty"`
}

// Item is an immutable catalog entry. Edges are held as ids.
type Item struct {
	ID                  string   `yaml:"id" json:"id"`
	Title               string   `yaml:"title" json:"title"`
	Description         string   `yaml:"description" json:"description,omitempty"`
	Priority            string   `yaml:"priority" json:"priority"`
	Inputs              []Input  `yaml:"inputs" json:"inputs"`
	DependsOn           []string `yaml:"depends_on" json:"depends_on"`
	Produces            []string `yaml:"produces" json:"produces"`
	Notes               []string `yaml:"notes" json:"notes,omitempty"`
	BeginnerMode        *bool    `yaml:"beginner_mode" json:"beginner_mode,omitempty"`
	BeginnerTitle       string   `yaml:"beginner_title" json:"beginner_title,omitempty"`
	BeginnerDescription string   `yaml:"beginner_description" json:"beginner_description,omitempty"`
	BeginnerWhy         string   `yaml:"beginner_why" json:"beginner_why,omitempty"`
	TestPerspectives    []string `yaml:"test_perspectives" json:"test_perspectives,omitempty"`
	MigrationObject     string   `yaml:"migration_object" json:"migration_object,omitempty"`
}

// ForBeginners reports whether the item is shown in BEGINNER mode.
func (it Item) ForBeginners() bool {
	return it.BeginnerMode == nil || *it.BeginnerMode
}

// HasTag reports whether the item feeds the given artifact tag.
func (it Item) HasTag(tag string) bool {
	for _, p := range it.Produces {
		if strings.EqualFold(p, tag) {
			return true
		}
	}
	return false
}

// Catalog is the read-only arena of configuration items in declaration order.
type Catalog struct {
	Version string
	items   []Item
	index   map[string]int
}

type catalogFile struct {
	Version string `yaml:"version"`
	Items   []Item `yaml:"items"`
}

// New normalizes and validates items. The returned catalog is immutable.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for i, it := range items {
		it = normalize(it)
		if it.ID == "" {
			return nil, &CatalogError{Kind: KindMissingID, Ref: fmt.Sprintf("#%d", i+1)}
		}
		if _, dup := c.index[it.ID]; dup {
			return nil, &CatalogError{Kind: KindDuplicateID, ItemID: it.ID}
		}
		c.index[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks inputs, dependency references and acyclicity.
func (c *Catalog) Validate() error {
	for _, it := range c.items {
		seen := map[string]bool{}
		for _, in := range it.Inputs {
			if in.Name == "" {
				return &CatalogError{Kind: KindInvalidInput, ItemID: it.ID, Ref: "(empty name)"}
			}
			if seen[in.Name] {
				return &CatalogError{Kind: KindInvalidInput, ItemID: it.ID, Ref: in.Name}
			}
			seen[in.Name] = true
			switch in.Type {
			case InputSelect, InputMultiSelect, InputString, InputNumber:
			default:
				return &CatalogError{Kind: KindInvalidInput, ItemID: it.ID, Ref: in.Name + ":" + string(in.Type)}
			}
		}
		for _, dep := range it.DependsOn {
			if _, ok := c.index[dep]; !ok {
				return &CatalogError{Kind: KindUnknownDependency, ItemID: it.ID, Ref: dep}
			}
		}
	}
	if cycle := c.findCycle(); len(cycle) > 0 {
		return &CatalogError{Kind: KindCycle, ItemID: cycle[0], Cycle: cycle}
	}
	return nil
}

// findCycle walks items in declaration order and returns the first cycle found,
// closed with its starting id.
func (c *Catalog) findCycle() []string {
	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(c.items))
	var stack []string
	var cycle []string
	var visit func(i int) bool
	visit = func(i int) bool {
		color[i] = grey
		stack = append(stack, c.items[i].ID)
		for _, dep := range c.items[i].DependsOn {
			j := c.index[dep]
			switch color[j] {
			case grey:
				for k, id := range stack {
					if id == dep {
						cycle = append(append([]string{}, stack[k:]...), dep)
						return true
					}
				}
			case white:
				if visit(j) {
					return true
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		return false
	}
	for i := range c.items {
		if color[i] == white && visit(i) {
			return cycle
		}
	}
	return nil
}

func normalize(it Item) Item {
	it.ID = strings.TrimSpace(it.ID)
	if it.Priority == "" {
		it.Priority = "P1"
	}
	if it.Inputs == nil {
		it.Inputs = []Input{}
	}
	if it.DependsOn == nil {
		it.DependsOn = []string{}
	}
	if it.Produces == nil {
		it.Produces = []string{}
	}
	for i := range it.Inputs {
		in := &it.Inputs[i]
		in.Name = strings.TrimSpace(in.Name)
		in.Type = InputType(strings.ToLower(strings.TrimSpace(string(in.Type))))
		if in.Type == "" {
			in.Type = InputString
		}
		if in.Label == "" {
			in.Label = DefaultLabel(in.Name)
		}
	}
	return it
}

// DefaultLabel turns an input name like fiscal_year_variant into "Fiscal Year Variant".
func DefaultLabel(name string) string {
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// FromYAML accepts either a bare list of items or a {version, items} document.
func FromYAML(data []byte) (*Catalog, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, &CatalogError{Kind: KindParse, Ref: err.Error()}
	}
	var doc catalogFile
	if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
		if err := node.Content[0].Decode(&doc.Items); err != nil {
			return nil, &CatalogError{Kind: KindParse, Ref: err.Error()}
		}
	} else if err := node.Decode(&doc); err != nil {
		return nil, &CatalogError{Kind: KindParse, Ref: err.Error()}
	}
	c, err := New(doc.Items)
	if err != nil {
		return nil, err
	}
	c.Version = doc.Version
	return c, nil
}

// FromFile reads a YAML catalog from disk.
func FromFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return FromYAML(data)
}

// Load returns the catalog at path, or the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	return FromFile(path)
}

// Default returns the embedded financial accounting catalog.
func Default() (*Catalog, error) {
	return FromYAML(bytes.Clone(defaultCatalog))
}

// Items returns a copy of the items in declaration order.
func (c *Catalog) Items() []Item {
	return append([]Item(nil), c.items...)
}

func (c *Catalog) Len() int { return len(c.items) }

func (c *Catalog) Get(id string) (Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// Index returns the declaration position of id, or -1.
func (c *Catalog) Index(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.items))
	for i, it := range c.items {
		ids[i] = it.ID
	}
	return ids
}

// PriorityRank orders tiers P0 < P1 < P2 < P3; anything else sorts last.
func PriorityRank(p string) int {
	switch strings.ToUpper(strings.TrimSpace(p)) {
	case "P0":
		return 0
	case "P1":
		return 1
	case "P2":
		return 2
	case "P3":
		return 3
	}
	return 99
}

// Priorities returns the distinct tiers present, in rank order.
func (c *Catalog) Priorities() []string {
	seen := map[string]bool{}
	var out []string
	for _, it := range c.items {
		if !seen[it.Priority] {
			seen[it.Priority] = true
			out = append(out, it.Priority)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := PriorityRank(out[i]), PriorityRank(out[j])
		if ri != rj {
			return ri < rj
		}
		return out[i] < out[j]
	})
	return out
}

type Stats struct {
	Version    string         `json:"version,omitempty"`
	Total      int            `json:"total"`
	ByPriority map[string]int `json:"by_priority"`
	IDs        []string       `json:"ids"`
}

func (c *Catalog) Stats() Stats {
	s := Stats{Version: c.Version, Total: len(c.items), ByPriority: map[string]int{}, IDs: c.IDs()}
	for _, it := range c.items {
		s.ByPriority[it.Priority]++
	}
	return s
}
