package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"wizline/internal/domain"
	"wizline/internal/engine"
	"wizline/internal/status"
)

func registerWizard(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "wizard-next",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/wizard/next",
		Summary:     "Next question in dependency order",
		Description: "Returns complete=true once every item is DONE. stuck=true means unanswered items remain but none can become READY.",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body engine.NextResult `json:"body"`
	}, error) {
		res, err := e.NextQuestion(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.NextResult `json:"body"`
		}{Body: res}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "wizard-question",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/wizard/questions/{item_id}",
		Summary:     "Question for a specific item, with its recorded answer",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *itemPath) (*struct {
		Body engine.Question `json:"body"`
	}, error) {
		q, err := e.QuestionByID(ctx, input.ProjectID, input.ItemID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.Question `json:"body"`
		}{Body: q}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "wizard-submit-answer",
		Method:        http.MethodPost,
		Path:          "/projects/{project_id}/wizard/answers",
		Summary:       "Record an answer and its decision",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity},
	}, func(ctx context.Context, input *struct {
		ProjectID string              `path:"project_id"`
		Body      SubmitAnswerRequest `json:"body"`
	}) (*struct {
		Body domain.Decision `json:"body"`
	}, error) {
		if input.Body.ConfigItemID == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "config_item_id is required", nil)
		}
		d, err := e.SubmitAnswer(ctx, engine.SubmitOptions{
			ProjectID: input.ProjectID,
			ItemID:    input.Body.ConfigItemID,
			Answers:   input.Body.Answers,
			ActorID:   actorID(ctx),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Decision `json:"body"`
		}{Body: d}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "wizard-get-answer",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/wizard/answers/{item_id}",
		Summary:     "Recorded answer for an item",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *itemPath) (*struct {
		Body domain.Answer `json:"body"`
	}, error) {
		a, err := e.GetAnswer(ctx, input.ProjectID, input.ItemID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Answer `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "wizard-decisions",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/wizard/decisions",
		Summary:     "Decisions in the order they were first recorded",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body []domain.Decision `json:"body"`
	}, error) {
		items, err := e.ListDecisions(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.Decision{}
		}
		return &struct {
			Body []domain.Decision `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "wizard-progress",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/wizard/progress",
		Summary:     "Wizard progress",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body engine.ProgressReport `json:"body"`
	}, error) {
		p, err := e.Progress(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.ProgressReport `json:"body"`
		}{Body: p}, nil
	})
}

func registerBacklog(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "backlog",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/backlog",
		Summary:     "Catalog items with derived status",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ProjectID string `path:"project_id"`
		Status    string `query:"status" doc:"PENDING, BLOCKED, READY or DONE"`
	}) (*struct {
		Body []domain.BacklogEntry `json:"body"`
	}, error) {
		items, err := e.Backlog(ctx, input.ProjectID, input.Status)
		if err != nil {
			return nil, handleError(err)
		}
		if items == nil {
			items = []domain.BacklogEntry{}
		}
		return &struct {
			Body []domain.BacklogEntry `json:"body"`
		}{Body: items}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "backlog-graph",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/backlog/graph",
		Summary:     "Dependency graph with statuses",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body status.Graph `json:"body"`
	}, error) {
		g, err := e.BacklogGraph(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body status.Graph `json:"body"`
		}{Body: g}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "backlog-summary",
		Method:      http.MethodGet,
		Path:        "/projects/{project_id}/backlog/summary",
		Summary:     "Counts by status and priority",
		Errors:      []int{http.StatusNotFound},
	}, func(ctx context.Context, input *projectPath) (*struct {
		Body engine.BacklogSummary `json:"body"`
	}, error) {
		s, err := e.BacklogSummary(ctx, input.ProjectID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body engine.BacklogSummary `json:"body"`
		}{Body: s}, nil
	})
}

type itemPath struct {
	ProjectID string `path:"project_id"`
	ItemID    string `path:"item_id"`
}
