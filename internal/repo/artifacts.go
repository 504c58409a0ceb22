package repo

import (
	"context"
	"database/sql"

	"wizline/internal/domain"
)

const artifactColumns = `id,project_id,artifact_type,content,tbd_count,created_at`

func scanArtifact(row scanner) (domain.Artifact, error) {
	var a domain.Artifact
	err := row.Scan(&a.ID, &a.ProjectID, &a.Type, &a.Content, &a.TBDCount, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	return a, err
}

func (r Repo) InsertArtifactTx(ctx context.Context, tx *sql.Tx, a domain.Artifact) error {
	_, err := tx.ExecContext(ctx, r.q(`INSERT INTO artifacts(id,project_id,artifact_type,content,tbd_count,created_at) VALUES (?,?,?,?,?,?)`),
		a.ID, a.ProjectID, string(a.Type), a.Content, a.TBDCount, a.CreatedAt)
	return err
}

// LatestArtifact returns the most recently generated artifact of a type.
func (r Repo) LatestArtifact(ctx context.Context, projectID string, t domain.ArtifactType) (domain.Artifact, error) {
	return scanArtifact(r.DB.QueryRowContext(ctx, r.q(`SELECT `+artifactColumns+` FROM artifacts WHERE project_id=? AND artifact_type=? ORDER BY seq DESC LIMIT 1`), projectID, string(t)))
}

func (r Repo) GetArtifact(ctx context.Context, id string) (domain.Artifact, error) {
	return scanArtifact(r.DB.QueryRowContext(ctx, r.q(`SELECT `+artifactColumns+` FROM artifacts WHERE id=?`), id))
}

// ListArtifacts returns generated artifacts newest first. Content is omitted
// unless withContent is set.
func (r Repo) ListArtifacts(ctx context.Context, projectID string, t domain.ArtifactType, limit int, withContent bool) ([]domain.Artifact, error) {
	content := `''`
	if withContent {
		content = `content`
	}
	query := `SELECT id,project_id,artifact_type,` + content + `,tbd_count,created_at FROM artifacts WHERE project_id=?`
	args := []any{projectID}
	if t != "" {
		query += ` AND artifact_type=?`
		args = append(args, string(t))
	}
	query += ` ORDER BY seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
