package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"wizline/internal/artifact"
	"wizline/internal/catalog"
	"wizline/internal/domain"
	"wizline/internal/events"
	"wizline/internal/repo"
	"wizline/internal/sequencer"
	"wizline/internal/status"
)

// DecisionStatus is the status stamped on every recorded decision.
const DecisionStatus = "DECIDED"

// Field is one input of a question as presented to the user.
type Field struct {
	Name         string            `json:"name"`
	Label        string            `json:"label"`
	Type         string            `json:"type" enum:"select,multiselect,string,number"`
	Required     bool              `json:"required"`
	Options      []string          `json:"options,omitempty"`
	OptionLabels map[string]string `json:"option_labels,omitempty"`
	Recommended  any               `json:"recommended,omitempty"`
}

// Question is a configuration item rendered for the project's mode.
type Question struct {
	ConfigItemID string         `json:"config_item_id"`
	Title        string         `json:"title"`
	Description  string         `json:"description,omitempty"`
	Why          string         `json:"why,omitempty"`
	Priority     string         `json:"priority"`
	Status       domain.Status  `json:"status"`
	DependsOn    []string       `json:"depends_on"`
	Notes        []string       `json:"notes,omitempty"`
	Fields       []Field        `json:"fields"`
	Progress     int            `json:"progress"`
	Total        int            `json:"total"`
	Answers      map[string]any `json:"answers,omitempty"`
}

// NextResult is the outcome of asking for the next question. Exactly one of
// Complete, Stuck or Question is set.
type NextResult struct {
	Complete    bool      `json:"complete"`
	Stuck       bool      `json:"stuck"`
	Unreachable []string  `json:"unreachable,omitempty"`
	Question    *Question `json:"question,omitempty"`
}

// view is the derived state of one project at one point in time.
type view struct {
	project  domain.Project
	answers  map[string]domain.Answer
	answered status.Answered
	statuses map[string]domain.Status
	filter   sequencer.Filter
}

func (v view) beginner() bool { return v.project.Mode == domain.ModeBeginner }

// answeredCount counts answered items the mode presents.
func (v view) answeredCount(cat *catalog.Catalog) int {
	n := 0
	for _, it := range cat.Items() {
		if (v.filter == nil || v.filter(it)) && v.answered[it.ID] {
			n++
		}
	}
	return n
}

func (e Engine) loadView(ctx context.Context, projectID string) (view, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return view{}, err
	}
	defer tx.Rollback()
	return e.loadViewTx(ctx, tx, projectID)
}

func (e Engine) loadViewTx(ctx context.Context, tx *sql.Tx, projectID string) (view, error) {
	p, err := e.Repo.GetProjectTx(ctx, tx, projectID)
	if err != nil {
		return view{}, notFound(err, "project", projectID)
	}
	answers, err := e.Repo.ListAnswersTx(ctx, tx, projectID)
	if err != nil {
		return view{}, err
	}
	v := view{project: p, answers: answers, answered: status.Answered{}}
	for id := range answers {
		v.answered[id] = true
	}
	v.statuses = status.ComputeWith(e.Catalog, v.answered, status.Options{Beginner: v.beginner()})
	if v.beginner() {
		v.filter = sequencer.BeginnerOnly
	}
	return v, nil
}

func (e Engine) question(v view, it catalog.Item) Question {
	q := Question{
		ConfigItemID: it.ID,
		Title:        it.Title,
		Description:  it.Description,
		Priority:     it.Priority,
		Status:       v.statuses[it.ID],
		DependsOn:    it.DependsOn,
		Notes:        it.Notes,
		Fields:       make([]Field, 0, len(it.Inputs)),
	}
	if v.beginner() {
		if it.BeginnerTitle != "" {
			q.Title = it.BeginnerTitle
		}
		if it.BeginnerDescription != "" {
			q.Description = it.BeginnerDescription
		}
		q.Why = it.BeginnerWhy
	}
	for _, in := range it.Inputs {
		q.Fields = append(q.Fields, Field{
			Name:         in.Name,
			Label:        in.Label,
			Type:         string(in.Type),
			Required:     in.Required,
			Options:      in.Options,
			OptionLabels: in.OptionLabels,
			Recommended:  in.Recommended,
		})
	}
	for _, c := range e.Catalog.Items() {
		if v.filter == nil || v.filter(c) {
			q.Total++
		}
	}
	return q
}

// NextQuestion selects the next READY item for the project. A stuck graph is
// logged and reported, never treated as completion.
func (e Engine) NextQuestion(ctx context.Context, projectID string) (NextResult, error) {
	v, err := e.loadView(ctx, projectID)
	if err != nil {
		return NextResult{}, err
	}
	it, err := sequencer.Next(e.Catalog, v.statuses, v.filter)
	var warn *sequencer.ConsistencyWarning
	switch {
	case errors.Is(err, sequencer.ErrComplete):
		return NextResult{Complete: true}, nil
	case errors.As(err, &warn):
		e.logger().Printf("WARNING: wizard: project %s: %v", projectID, warn)
		return NextResult{Stuck: true, Unreachable: warn.Unreachable}, nil
	case err != nil:
		return NextResult{}, err
	}
	q := e.question(v, it)
	q.Progress = v.answeredCount(e.Catalog) + 1
	return NextResult{Question: &q}, nil
}

// QuestionByID returns any item regardless of status, with its recorded answer.
func (e Engine) QuestionByID(ctx context.Context, projectID, itemID string) (Question, error) {
	it, err := sequencer.ByID(e.Catalog, itemID)
	if err != nil {
		return Question{}, err
	}
	v, err := e.loadView(ctx, projectID)
	if err != nil {
		return Question{}, err
	}
	q := e.question(v, it)
	q.Progress = v.answeredCount(e.Catalog)
	if a, ok := v.answers[itemID]; ok {
		q.Answers = a.Values
	}
	return q, nil
}

// SubmitOptions are parameters for recording an answer.
type SubmitOptions struct {
	ProjectID string
	ItemID    string
	Answers   map[string]any
	ActorID   string
}

// SubmitAnswer validates the answer and records it together with its decision
// in one transaction. Resubmission updates both in place.
func (e Engine) SubmitAnswer(ctx context.Context, opts SubmitOptions) (domain.Decision, error) {
	it, err := sequencer.ByID(e.Catalog, opts.ItemID)
	if err != nil {
		return domain.Decision{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Decision{}, err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetProjectTx(ctx, tx, opts.ProjectID); err != nil {
		return domain.Decision{}, notFound(err, "project", opts.ProjectID)
	}
	if missing := MissingRequired(it, opts.Answers); len(missing) > 0 {
		return domain.Decision{}, &ValidationError{ItemID: it.ID, Missing: missing}
	}
	values := opts.Answers
	if values == nil {
		values = map[string]any{}
	}
	now := e.timestamp()
	if err := e.Repo.UpsertAnswerTx(ctx, tx, domain.Answer{
		ProjectID:    opts.ProjectID,
		ConfigItemID: it.ID,
		Values:       values,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return domain.Decision{}, fmt.Errorf("upsert answer: %w", err)
	}

	decisionEvent := events.DecisionUpdated
	if _, err := e.Repo.GetDecisionTx(ctx, tx, opts.ProjectID, it.ID); errors.Is(err, repo.ErrNotFound) {
		decisionEvent = events.DecisionRecorded
	} else if err != nil {
		return domain.Decision{}, err
	}
	if err := e.Repo.UpsertDecisionTx(ctx, tx, domain.Decision{
		ID:           uuid.NewString(),
		ProjectID:    opts.ProjectID,
		ConfigItemID: it.ID,
		Title:        DecisionTitle(it),
		Rationale:    artifact.FormatValues(values),
		Impact:       it.Description,
		Status:       DecisionStatus,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return domain.Decision{}, fmt.Errorf("upsert decision: %w", err)
	}
	d, err := e.Repo.GetDecisionTx(ctx, tx, opts.ProjectID, it.ID)
	if err != nil {
		return domain.Decision{}, err
	}

	answerEvt, err := e.writer().Append(ctx, tx, events.AnswerSubmitted, opts.ProjectID, "config_item", it.ID, opts.ActorID, events.EventPayload{"values": values})
	if err != nil {
		return domain.Decision{}, err
	}
	decisionEvt, err := e.writer().Append(ctx, tx, decisionEvent, opts.ProjectID, "decision", d.ID, opts.ActorID, events.EventPayload{"config_item_id": it.ID, "seq": d.Seq})
	if err != nil {
		return domain.Decision{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Decision{}, err
	}
	e.publish(answerEvt, decisionEvt)
	return d, nil
}

// DecisionTitle names the decision recorded for an item.
func DecisionTitle(it catalog.Item) string {
	title := it.Title
	if title == "" {
		title = it.ID
	}
	return title + " decided"
}

// MissingRequired returns required inputs that are absent or empty, in input
// order. Unknown keys are ignored.
func MissingRequired(it catalog.Item, values map[string]any) []string {
	var missing []string
	for _, in := range it.Inputs {
		if !in.Required {
			continue
		}
		if isEmpty(values[in.Name]) {
			missing = append(missing, in.Name)
		}
	}
	return missing
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case []string:
		return len(x) == 0
	}
	return false
}

// GetAnswer returns the recorded answer for one item.
func (e Engine) GetAnswer(ctx context.Context, projectID, itemID string) (domain.Answer, error) {
	if _, err := sequencer.ByID(e.Catalog, itemID); err != nil {
		return domain.Answer{}, err
	}
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return domain.Answer{}, err
	}
	a, err := e.Repo.GetAnswer(ctx, projectID, itemID)
	if err != nil {
		return domain.Answer{}, notFound(err, "answer", itemID)
	}
	return a, nil
}

// ListDecisions returns decisions in the order they were first recorded.
func (e Engine) ListDecisions(ctx context.Context, projectID string) ([]domain.Decision, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListDecisions(ctx, projectID)
}

// ProgressReport summarizes how far the project's wizard has come.
type ProgressReport struct {
	Mode       domain.Mode `json:"mode"`
	Total      int         `json:"total"`
	Done       int         `json:"done"`
	Answered   int         `json:"answered"`
	Ready      int         `json:"ready"`
	Blocked    int         `json:"blocked"`
	Percentage float64     `json:"progress_percentage"`
	Complete   bool        `json:"complete"`
}

func (e Engine) Progress(ctx context.Context, projectID string) (ProgressReport, error) {
	v, err := e.loadView(ctx, projectID)
	if err != nil {
		return ProgressReport{}, err
	}
	p := sequencer.ComputeProgress(e.Catalog, v.statuses, v.filter)
	return ProgressReport{
		Mode:       v.project.Mode,
		Total:      p.Total,
		Done:       p.Done,
		Answered:   p.Done,
		Ready:      p.Ready,
		Blocked:    p.Blocked,
		Percentage: p.Percentage,
		Complete:   p.Complete(),
	}, nil
}

// Backlog lists every catalog item with its derived status. An empty filter
// keeps all entries.
func (e Engine) Backlog(ctx context.Context, projectID, statusFilter string) ([]domain.BacklogEntry, error) {
	var want domain.Status
	if strings.TrimSpace(statusFilter) != "" {
		s, ok := domain.ParseStatus(statusFilter)
		if !ok {
			return nil, &InvalidArgumentError{Field: "status", Value: statusFilter, Msg: "expected PENDING, BLOCKED, READY or DONE"}
		}
		want = s
	}
	v, err := e.loadView(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return status.Filter(status.Backlog(e.Catalog, v.statuses, v.answered), want), nil
}

func (e Engine) BacklogGraph(ctx context.Context, projectID string) (status.Graph, error) {
	v, err := e.loadView(ctx, projectID)
	if err != nil {
		return status.Graph{}, err
	}
	return status.BuildGraph(e.Catalog, v.statuses, v.answered), nil
}

type BacklogSummary struct {
	Total                int                   `json:"total"`
	ByStatus             map[domain.Status]int `json:"by_status"`
	ByPriority           map[string]int        `json:"by_priority"`
	CompletionPercentage float64               `json:"completion_percentage"`
}

func (e Engine) BacklogSummary(ctx context.Context, projectID string) (BacklogSummary, error) {
	v, err := e.loadView(ctx, projectID)
	if err != nil {
		return BacklogSummary{}, err
	}
	p := sequencer.ComputeProgress(e.Catalog, v.statuses, nil)
	s := BacklogSummary{
		Total:                p.Total,
		ByStatus:             status.Counts(v.statuses),
		ByPriority:           map[string]int{},
		CompletionPercentage: p.Percentage,
	}
	for _, it := range e.Catalog.Items() {
		s.ByPriority[it.Priority]++
	}
	return s, nil
}
