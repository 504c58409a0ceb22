package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"wizline/internal/catalog"
	"wizline/internal/db"
	"wizline/internal/domain"
	"wizline/internal/events"
	"wizline/internal/repo"
)

type Engine struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Bus     *events.Bus
	Catalog *catalog.Catalog
	Logger  *log.Logger
	Now     func() time.Time
}

func New(conn *sql.DB, dialect db.Dialect, cat *catalog.Catalog) Engine {
	return Engine{
		DB:      conn,
		Repo:    repo.Repo{DB: conn, Dialect: dialect},
		Events:  events.Writer{DB: conn, Dialect: dialect},
		Catalog: cat,
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func (e Engine) writer() events.Writer {
	w := e.Events
	w.Now = e.now
	return w
}

// publish fans committed events out to live subscribers.
func (e Engine) publish(evts ...domain.Event) {
	for _, evt := range evts {
		e.Bus.Publish(evt)
	}
}

// ValidationError lists required inputs that were absent or empty.
type ValidationError struct {
	ItemID  string
	Missing []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config item %s: missing required fields: %s", e.ItemID, strings.Join(e.Missing, ", "))
}

// InvalidArgumentError rejects a malformed request parameter.
type InvalidArgumentError struct {
	Field string
	Value string
	Msg   string
}

func (e *InvalidArgumentError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Msg)
	}
	return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
}

// ConflictError reports an id that is already taken.
type ConflictError struct {
	Kind string
	ID   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Kind, e.ID)
}

func notFound(err error, kind, id string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return domain.NotFoundError{Kind: kind, ID: id}
	}
	return err
}

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	ID           string
	Name         string
	Mode         string
	Country      string
	Currency     string
	Industry     string
	CompanyCount *int
	Description  string
	ActorID      string
}

func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	name := strings.TrimSpace(opts.Name)
	if name == "" {
		return domain.Project{}, &InvalidArgumentError{Field: "name", Msg: "name is required"}
	}
	mode, ok := domain.ParseMode(opts.Mode)
	if !ok {
		return domain.Project{}, &InvalidArgumentError{Field: "mode", Value: opts.Mode, Msg: "expected BEGINNER or EXPERT"}
	}
	if opts.CompanyCount != nil && *opts.CompanyCount < 0 {
		return domain.Project{}, &InvalidArgumentError{Field: "company_count", Value: fmt.Sprint(*opts.CompanyCount), Msg: "must not be negative"}
	}
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = uuid.NewString()
	}
	now := e.timestamp()
	p := domain.Project{
		ID:           id,
		Name:         name,
		Mode:         mode,
		Country:      opts.Country,
		Currency:     opts.Currency,
		Industry:     opts.Industry,
		CompanyCount: opts.CompanyCount,
		Description:  opts.Description,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetProjectTx(ctx, tx, id); err == nil {
		return domain.Project{}, &ConflictError{Kind: "project", ID: id}
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.Project{}, err
	}
	if err := e.Repo.InsertProjectTx(ctx, tx, p); err != nil {
		return domain.Project{}, fmt.Errorf("insert project: %w", err)
	}
	evt, err := e.writer().Append(ctx, tx, events.ProjectCreated, p.ID, "project", p.ID, opts.ActorID, events.EventPayload{"name": p.Name, "mode": p.Mode})
	if err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	e.publish(evt)
	return p, nil
}

func (e Engine) GetProject(ctx context.Context, id string) (domain.Project, error) {
	p, err := e.Repo.GetProject(ctx, id)
	if err != nil {
		return domain.Project{}, notFound(err, "project", id)
	}
	return p, nil
}

func (e Engine) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return e.Repo.ListProjects(ctx)
}

// ProjectUpdateOptions carries optional changes; nil fields are left alone.
type ProjectUpdateOptions struct {
	ID           string
	Name         *string
	Mode         *string
	Country      *string
	Currency     *string
	Industry     *string
	CompanyCount *int
	Description  *string
	ActorID      string
}

func (e Engine) UpdateProject(ctx context.Context, opts ProjectUpdateOptions) (domain.Project, error) {
	u := repo.ProjectUpdate{
		Country:      opts.Country,
		Currency:     opts.Currency,
		Industry:     opts.Industry,
		CompanyCount: opts.CompanyCount,
		Description:  opts.Description,
	}
	if opts.Name != nil {
		name := strings.TrimSpace(*opts.Name)
		if name == "" {
			return domain.Project{}, &InvalidArgumentError{Field: "name", Msg: "name must not be empty"}
		}
		u.Name = &name
	}
	if opts.Mode != nil {
		mode, ok := domain.ParseMode(*opts.Mode)
		if !ok {
			return domain.Project{}, &InvalidArgumentError{Field: "mode", Value: *opts.Mode, Msg: "expected BEGINNER or EXPERT"}
		}
		u.Mode = &mode
	}
	if opts.CompanyCount != nil && *opts.CompanyCount < 0 {
		return domain.Project{}, &InvalidArgumentError{Field: "company_count", Value: fmt.Sprint(*opts.CompanyCount), Msg: "must not be negative"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()
	if _, err := e.Repo.GetProjectTx(ctx, tx, opts.ID); err != nil {
		return domain.Project{}, notFound(err, "project", opts.ID)
	}
	var evt domain.Event
	if !u.Empty() {
		if err := e.Repo.UpdateProjectTx(ctx, tx, opts.ID, u, e.timestamp()); err != nil {
			return domain.Project{}, notFound(err, "project", opts.ID)
		}
		payload := events.EventPayload{}
		if u.Mode != nil {
			payload["mode"] = *u.Mode
		}
		if u.Name != nil {
			payload["name"] = *u.Name
		}
		evt, err = e.writer().Append(ctx, tx, events.ProjectUpdated, opts.ID, "project", opts.ID, opts.ActorID, payload)
		if err != nil {
			return domain.Project{}, err
		}
	}
	p, err := e.Repo.GetProjectTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	if evt.ID != 0 {
		e.publish(evt)
	}
	return p, nil
}

// DeleteProject removes the project with its answers, decisions and artifacts.
// Its events are kept as the audit trail.
func (e Engine) DeleteProject(ctx context.Context, id, actorID string) error {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteProjectTx(ctx, tx, id); err != nil {
		return notFound(err, "project", id)
	}
	evt, err := e.writer().Append(ctx, tx, events.ProjectDeleted, id, "project", id, actorID, nil)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	e.publish(evt)
	return nil
}

// ListEvents returns the project's event log newest first.
func (e Engine) ListEvents(ctx context.Context, projectID string, limit int, cursor int64, evtType string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.LatestEvents(ctx, limit, cursor, projectID, evtType, "", "")
}
