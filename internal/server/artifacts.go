package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"wizline/internal/domain"
	"wizline/internal/engine"
)

type artifactPath struct {
	ProjectID string `path:"project_id"`
	Type      string `path:"type" doc:"DECISION_LOG, CONFIG_WORKBOOK, TEST_VIEW or MIGRATION_VIEW"`
}

func (p artifactPath) artifactType() (domain.ArtifactType, huma.StatusError) {
	t, ok := domain.ParseArtifactType(p.Type)
	if !ok {
		return "", newAPIError(http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid artifact type %q", p.Type), map[string]any{"artifact_type": p.Type})
	}
	return t, nil
}

type downloadOutput struct {
	ContentType        string `header:"Content-Type"`
	ContentDisposition string `header:"Content-Disposition"`
	Body               []byte
}

func registerArtifacts(api huma.API, e engine.Engine, links linkSigner) {
	huma.Register(api, huma.Operation{
		OperationID:   "generate-artifacts",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/artifacts",
		Summary:       "Generate artifacts from the current answers",
		Description:   "Generates every type when types is empty. Unanswered values render as TBD.",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string                    `path:"project_id"`
		Body      *GenerateArtifactsRequest `json:"body" required:"false"`
	}) (*struct {
		Body []domain.Artifact `json:"body"`
	}, error) {
		var types []domain.ArtifactType
		if input.Body != nil {
			for _, t := range input.Body.Types {
				types = append(types, domain.ArtifactType(t))
			}
		}
		items, err := e.GenerateArtifacts(ctx, input.ProjectID, types, actorID(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []domain.Artifact `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-artifacts",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/artifacts",
		Summary:     "List generated artifacts, newest first",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Type      string `query:"type"`
		Limit     int    `query:"limit" default:"50"`
	}) (*struct {
		Body []ArtifactSummary `json:"body"`
	}, error) {
		var t domain.ArtifactType
		if input.Type != "" {
			parsed, serr := artifactPath{Type: input.Type}.artifactType()
			if serr != nil {
				return nil, serr
			}
			t = parsed
		}
		items, err := e.ListArtifacts(ctx, input.ProjectID, t, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body []ArtifactSummary `json:"body"`
		}{Body: mapArtifacts(items)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-artifact",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/artifacts/{type}",
		Summary:     "Latest generation of an artifact type",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *artifactPath) (*struct {
		Body domain.Artifact `json:"body"`
	}, error) {
		t, serr := input.artifactType()
		if serr != nil {
			return nil, serr
		}
		a, err := e.LatestArtifact(ctx, input.ProjectID, t)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Artifact `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "download-artifact",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/artifacts/{type}/download",
		Summary:     "Download the latest generation as a text file",
		Description: "A token from the link endpoint is checked when present.",
		Errors:      []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Type      string `path:"type"`
		Token     string `query:"token"`
	}) (*downloadOutput, error) {
		t, serr := artifactPath{ProjectID: input.ProjectID, Type: input.Type}.artifactType()
		if serr != nil {
			return nil, serr
		}
		if input.Token != "" {
			if err := links.verify(input.Token, input.ProjectID, t); err != nil {
				return nil, newAPIError(http.StatusUnauthorized, "invalid_token", err.Error(), nil)
			}
		}
		a, err := e.LatestArtifact(ctx, input.ProjectID, t)
		if err != nil {
			return nil, handleError(err)
		}
		return &downloadOutput{
			ContentType:        "text/plain; charset=utf-8",
			ContentDisposition: fmt.Sprintf(`attachment; filename="%s"`, t.Filename()),
			Body:               []byte(a.Content),
		}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "link-artifact",
		Method:      http.MethodPost,
		Path:        "/projects/{project_id}/artifacts/{type}/link",
		Summary:     "Signed, expiring download link",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *artifactPath) (*struct {
		Body LinkResponse `json:"body"`
	}, error) {
		t, serr := input.artifactType()
		if serr != nil {
			return nil, serr
		}
		if !links.enabled() {
			return nil, newAPIError(http.StatusBadRequest, "links_disabled", "download signing secret not configured", nil)
		}
		if _, err := e.LatestArtifact(ctx, input.ProjectID, t); err != nil {
			return nil, handleError(err)
		}
		link, err := links.sign(input.ProjectID, t)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body LinkResponse `json:"body"`
		}{Body: link}, nil
	})
}
