package domain

import "strings"

// Status is the derived lifecycle state of a configuration item.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusBlocked Status = "BLOCKED"
	StatusReady   Status = "READY"
	StatusDone    Status = "DONE"
)

// ParseStatus accepts the four lifecycle names case-insensitively.
func ParseStatus(s string) (Status, bool) {
	switch Status(upper(s)) {
	case StatusPending:
		return StatusPending, true
	case StatusBlocked:
		return StatusBlocked, true
	case StatusReady:
		return StatusReady, true
	case StatusDone:
		return StatusDone, true
	}
	return "", false
}

type Mode string

const (
	ModeBeginner Mode = "BEGINNER"
	ModeExpert   Mode = "EXPERT"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(upper(s)) {
	case ModeBeginner:
		return ModeBeginner, true
	case ModeExpert, "":
		return ModeExpert, true
	}
	return "", false
}

type ArtifactType string

const (
	ArtifactDecisionLog    ArtifactType = "DECISION_LOG"
	ArtifactConfigWorkbook ArtifactType = "CONFIG_WORKBOOK"
	ArtifactTestView       ArtifactType = "TEST_VIEW"
	ArtifactMigrationView  ArtifactType = "MIGRATION_VIEW"
)

// ArtifactTypes lists every artifact type in generation order.
var ArtifactTypes = []ArtifactType{
	ArtifactDecisionLog,
	ArtifactConfigWorkbook,
	ArtifactTestView,
	ArtifactMigrationView,
}

func ParseArtifactType(s string) (ArtifactType, bool) {
	for _, t := range ArtifactTypes {
		if string(t) == upper(s) {
			return t, true
		}
	}
	return "", false
}

// Filename is the download name for an artifact type.
func (t ArtifactType) Filename() string {
	switch t {
	case ArtifactDecisionLog:
		return "decision_log.txt"
	case ArtifactConfigWorkbook:
		return "config_workbook.txt"
	case ArtifactTestView:
		return "test_view.txt"
	case ArtifactMigrationView:
		return "migration_view.txt"
	}
	return "artifact.txt"
}

type Project struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Mode         Mode   `json:"mode" enum:"BEGINNER,EXPERT"`
	Country      string `json:"country,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Industry     string `json:"industry,omitempty"`
	CompanyCount *int   `json:"company_count,omitempty"`
	Description  string `json:"description,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

// Answer is the recorded payload for one configuration item.
type Answer struct {
	ProjectID    string         `json:"project_id"`
	ConfigItemID string         `json:"config_item_id"`
	Values       map[string]any `json:"values"`
	CreatedAt    string         `json:"created_at" format:"date-time"`
	UpdatedAt    string         `json:"updated_at" format:"date-time"`
}

type Decision struct {
	ID           string `json:"id"`
	Seq          int64  `json:"seq"`
	ProjectID    string `json:"project_id"`
	ConfigItemID string `json:"config_item_id"`
	Title        string `json:"title"`
	Rationale    string `json:"rationale,omitempty"`
	Impact       string `json:"impact,omitempty"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at" format:"date-time"`
	UpdatedAt    string `json:"updated_at" format:"date-time"`
}

type Artifact struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"project_id"`
	Type      ArtifactType `json:"artifact_type"`
	Content   string       `json:"content"`
	TBDCount  int          `json:"tbd_count"`
	CreatedAt string       `json:"created_at" format:"date-time"`
}

// BacklogEntry is derived from the catalog and answer presence; it is never stored.
type BacklogEntry struct {
	ConfigItemID string   `json:"config_item_id"`
	Title        string   `json:"title"`
	Priority     string   `json:"priority"`
	Status       Status   `json:"status"`
	Answered     bool     `json:"answered"`
	DependsOn    []string `json:"depends_on"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ProjectID  string `json:"project_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload"`
}

func upper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
