package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"wizline/internal/db"
	"wizline/internal/domain"
	"wizline/internal/migrate"
	"wizline/internal/repo"
)

func newRepo(t *testing.T) (repo.Repo, context.Context) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn, db.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	r := repo.Repo{DB: conn, Dialect: db.SQLite}
	ctx := context.Background()
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	p := domain.Project{ID: "p1", Name: "Demo", Mode: domain.ModeExpert, CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"}
	if err := r.InsertProjectTx(ctx, tx, p); err != nil {
		t.Fatalf("insert project: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
	return r, ctx
}

func inTx(t *testing.T, r repo.Repo, ctx context.Context, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		t.Fatalf("tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}
}

func TestAnswerUpsertKeepsCreatedAt(t *testing.T) {
	r, ctx := newRepo(t)
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		return r.UpsertAnswerTx(ctx, tx, domain.Answer{ProjectID: "p1", ConfigItemID: "A", Values: map[string]any{"v": "K4"}, CreatedAt: "t1", UpdatedAt: "t1"})
	})
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		return r.UpsertAnswerTx(ctx, tx, domain.Answer{ProjectID: "p1", ConfigItemID: "A", Values: map[string]any{"v": "V3", "n": 4}, CreatedAt: "t2", UpdatedAt: "t2"})
	})
	a, err := r.GetAnswer(ctx, "p1", "A")
	if err != nil {
		t.Fatalf("get answer: %v", err)
	}
	if a.CreatedAt != "t1" || a.UpdatedAt != "t2" || a.Values["v"] != "V3" || a.Values["n"] != float64(4) {
		t.Fatalf("unexpected answer %+v", a)
	}
	all, err := r.ListAnswers(ctx, "p1")
	if err != nil || len(all) != 1 || all["A"].Values["v"] != "V3" {
		t.Fatalf("list answers %v %v", all, err)
	}
	if _, err := r.GetAnswer(ctx, "p1", "B"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDecisionUpsertKeepsSequence(t *testing.T) {
	r, ctx := newRepo(t)
	for i, id := range []string{"A", "B", "A"} {
		d := domain.Decision{ID: "d" + string(rune('0'+i)), ProjectID: "p1", ConfigItemID: id, Title: id, Status: "DECIDED", CreatedAt: "t", UpdatedAt: "t"}
		inTx(t, r, ctx, func(tx *sql.Tx) error { return r.UpsertDecisionTx(ctx, tx, d) })
	}
	ds, err := r.ListDecisions(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 2 || ds[0].ConfigItemID != "A" || ds[0].ID != "d0" || ds[1].ConfigItemID != "B" {
		t.Fatalf("unexpected decisions %+v", ds)
	}
}

func TestLatestArtifactWins(t *testing.T) {
	r, ctx := newRepo(t)
	for _, id := range []string{"a1", "a2"} {
		a := domain.Artifact{ID: id, ProjectID: "p1", Type: domain.ArtifactTestView, Content: id, CreatedAt: "t"}
		inTx(t, r, ctx, func(tx *sql.Tx) error { return r.InsertArtifactTx(ctx, tx, a) })
	}
	latest, err := r.LatestArtifact(ctx, "p1", domain.ArtifactTestView)
	if err != nil || latest.ID != "a2" || latest.Content != "a2" {
		t.Fatalf("latest %+v %v", latest, err)
	}
	list, err := r.ListArtifacts(ctx, "p1", "", 0, false)
	if err != nil || len(list) != 2 || list[0].Content != "" {
		t.Fatalf("list %+v %v", list, err)
	}
	if _, err := r.LatestArtifact(ctx, "p1", domain.ArtifactDecisionLog); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProjectUpdateAndDelete(t *testing.T) {
	r, ctx := newRepo(t)
	mode := domain.ModeBeginner
	count := 3
	inTx(t, r, ctx, func(tx *sql.Tx) error {
		return r.UpdateProjectTx(ctx, tx, "p1", repo.ProjectUpdate{Mode: &mode, CompanyCount: &count}, "t2")
	})
	p, err := r.GetProject(ctx, "p1")
	if err != nil || p.Mode != domain.ModeBeginner || p.CompanyCount == nil || *p.CompanyCount != 3 || p.UpdatedAt != "t2" {
		t.Fatalf("project %+v %v", p, err)
	}
	inTx(t, r, ctx, func(tx *sql.Tx) error { return r.DeleteProjectTx(ctx, tx, "p1") })
	if _, err := r.GetProject(ctx, "p1"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
