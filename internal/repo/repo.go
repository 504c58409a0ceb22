package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"wizline/internal/db"
	"wizline/internal/domain"
)

type Repo struct {
	DB      *sql.DB
	Dialect db.Dialect
}

// ErrNotFound is returned when a row lookup misses.
var ErrNotFound = domain.ErrNotFound

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) q(query string) string {
	return r.Dialect.Rebind(query)
}

const projectColumns = `id,name,mode,COALESCE(country,''),COALESCE(currency,''),COALESCE(industry,''),company_count,COALESCE(description,''),created_at,updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (domain.Project, error) {
	var p domain.Project
	var count sql.NullInt64
	err := row.Scan(&p.ID, &p.Name, &p.Mode, &p.Country, &p.Currency, &p.Industry, &count, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if count.Valid {
		n := int(count.Int64)
		p.CompanyCount = &n
	}
	return p, err
}

func (r Repo) InsertProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, r.q(`INSERT INTO projects(id,name,mode,country,currency,industry,company_count,description,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?,?)`),
		p.ID, p.Name, string(p.Mode), nullable(p.Country), nullable(p.Currency), nullable(p.Industry), nullableIntPtr(p.CompanyCount), nullable(p.Description), p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	return r.getProject(ctx, r.DB, id)
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	return r.getProject(ctx, tx, id)
}

func (r Repo) getProject(ctx context.Context, qr queryer, id string) (domain.Project, error) {
	return scanProject(qr.QueryRowContext(ctx, r.q(`SELECT `+projectColumns+` FROM projects WHERE id=?`), id))
}

// SingleProject returns the only project in the workspace.
func (r Repo) SingleProject(ctx context.Context) (domain.Project, error) {
	projects, err := r.ListProjects(ctx)
	if err != nil {
		return domain.Project{}, err
	}
	if len(projects) == 0 {
		return domain.Project{}, ErrNotFound
	}
	if len(projects) > 1 {
		return domain.Project{}, fmt.Errorf("multiple projects exist; specify --project")
	}
	return projects[0], nil
}

func (r Repo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ProjectUpdate carries optional profile changes; nil fields are left alone.
type ProjectUpdate struct {
	Name         *string
	Mode         *domain.Mode
	Country      *string
	Currency     *string
	Industry     *string
	CompanyCount *int
	Description  *string
}

func (u ProjectUpdate) Empty() bool {
	return u.Name == nil && u.Mode == nil && u.Country == nil && u.Currency == nil &&
		u.Industry == nil && u.CompanyCount == nil && u.Description == nil
}

func (r Repo) UpdateProjectTx(ctx context.Context, tx *sql.Tx, id string, u ProjectUpdate, updatedAt string) error {
	var (
		fields []string
		args   []any
	)
	set := func(col string, v any) {
		fields = append(fields, col+"=?")
		args = append(args, v)
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Mode != nil {
		set("mode", string(*u.Mode))
	}
	if u.Country != nil {
		set("country", nullable(*u.Country))
	}
	if u.Currency != nil {
		set("currency", nullable(*u.Currency))
	}
	if u.Industry != nil {
		set("industry", nullable(*u.Industry))
	}
	if u.CompanyCount != nil {
		set("company_count", *u.CompanyCount)
	}
	if u.Description != nil {
		set("description", nullable(*u.Description))
	}
	if len(fields) == 0 {
		return nil
	}
	set("updated_at", updatedAt)
	args = append(args, id)
	res, err := tx.ExecContext(ctx, r.q(fmt.Sprintf(`UPDATE projects SET %s WHERE id=?`, strings.Join(fields, ","))), args...)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProjectTx removes the project and everything recorded for it.
func (r Repo) DeleteProjectTx(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range []string{"answers", "decisions", "artifacts"} {
		if _, err := tx.ExecContext(ctx, r.q(`DELETE FROM `+table+` WHERE project_id=?`), id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, r.q(`DELETE FROM projects WHERE id=?`), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
