package server

import (
	"encoding/json"

	"wizline/internal/artifact"
	"wizline/internal/catalog"
	"wizline/internal/domain"
)

// Request payloads

type CreateProjectRequest struct {
	ID           string `json:"id,omitempty" doc:"Generated when empty"`
	Name         string `json:"name"`
	Mode         string `json:"mode,omitempty" enum:"BEGINNER,EXPERT"`
	Country      string `json:"country,omitempty"`
	Currency     string `json:"currency,omitempty"`
	Industry     string `json:"industry,omitempty"`
	CompanyCount *int   `json:"company_count,omitempty"`
	Description  string `json:"description,omitempty"`
}

type UpdateProjectRequest struct {
	Name         *string `json:"name,omitempty"`
	Mode         *string `json:"mode,omitempty" enum:"BEGINNER,EXPERT"`
	Country      *string `json:"country,omitempty"`
	Currency     *string `json:"currency,omitempty"`
	Industry     *string `json:"industry,omitempty"`
	CompanyCount *int    `json:"company_count,omitempty"`
	Description  *string `json:"description,omitempty"`
}

type SubmitAnswerRequest struct {
	ConfigItemID string         `json:"config_item_id"`
	Answers      map[string]any `json:"answers,omitempty"`
}

type GenerateArtifactsRequest struct {
	Types []string `json:"types,omitempty" doc:"Subset of DECISION_LOG, CONFIG_WORKBOOK, TEST_VIEW, MIGRATION_VIEW"`
}

// Response payloads

type CatalogResponse struct {
	Version string         `json:"version,omitempty"`
	Items   []catalog.Item `json:"items"`
}

// ArtifactSummary is an artifact listing entry without content.
type ArtifactSummary struct {
	ID        string              `json:"id"`
	ProjectID string              `json:"project_id"`
	Type      domain.ArtifactType `json:"artifact_type"`
	TBDCount  int                 `json:"tbd_count"`
	CreatedAt string              `json:"created_at" format:"date-time"`
}

type LinkResponse struct {
	URL       string `json:"url"`
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at" format:"date-time"`
}

type ExportResponse = artifact.ExportDocument

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	ProjectID  string         `json:"project_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func eventResponse(evt domain.Event) EventResponse {
	payload := map[string]any{}
	if evt.Payload != "" {
		_ = json.Unmarshal([]byte(evt.Payload), &payload)
	}
	return EventResponse{
		ID:         evt.ID,
		TS:         evt.TS,
		Type:       evt.Type,
		ProjectID:  evt.ProjectID,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		Payload:    payload,
	}
}

func mapArtifacts(items []domain.Artifact) []ArtifactSummary {
	out := make([]ArtifactSummary, 0, len(items))
	for _, a := range items {
		out = append(out, ArtifactSummary{
			ID:        a.ID,
			ProjectID: a.ProjectID,
			Type:      a.Type,
			TBDCount:  a.TBDCount,
			CreatedAt: a.CreatedAt,
		})
	}
	return out
}
