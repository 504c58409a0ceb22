package repo

import (
	"context"
	"database/sql"

	"wizline/internal/domain"
)

const decisionColumns = `seq,id,project_id,config_item_id,title,COALESCE(rationale,''),COALESCE(impact,''),status,created_at,updated_at`

func scanDecision(row scanner) (domain.Decision, error) {
	var d domain.Decision
	err := row.Scan(&d.Seq, &d.ID, &d.ProjectID, &d.ConfigItemID, &d.Title, &d.Rationale, &d.Impact, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

// UpsertDecisionTx keeps one decision per (project, item). On conflict the
// id, seq and created_at of the first decision survive, so the log stays in
// first-decided order.
func (r Repo) UpsertDecisionTx(ctx context.Context, tx *sql.Tx, d domain.Decision) error {
	_, err := tx.ExecContext(ctx, r.q(`INSERT INTO decisions(id,project_id,config_item_id,title,rationale,impact,status,created_at,updated_at) VALUES (?,?,?,?,?,?,?,?,?)
ON CONFLICT(project_id,config_item_id) DO UPDATE SET title=excluded.title, rationale=excluded.rationale, impact=excluded.impact, status=excluded.status, updated_at=excluded.updated_at`),
		d.ID, d.ProjectID, d.ConfigItemID, d.Title, nullable(d.Rationale), nullable(d.Impact), d.Status, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) GetDecisionTx(ctx context.Context, tx *sql.Tx, projectID, itemID string) (domain.Decision, error) {
	return scanDecision(tx.QueryRowContext(ctx, r.q(`SELECT `+decisionColumns+` FROM decisions WHERE project_id=? AND config_item_id=?`), projectID, itemID))
}

// ListDecisions returns decisions in the order they were first recorded.
func (r Repo) ListDecisions(ctx context.Context, projectID string) ([]domain.Decision, error) {
	return r.listDecisions(ctx, r.DB, projectID)
}

func (r Repo) ListDecisionsTx(ctx context.Context, tx *sql.Tx, projectID string) ([]domain.Decision, error) {
	return r.listDecisions(ctx, tx, projectID)
}

func (r Repo) listDecisions(ctx context.Context, qr queryer, projectID string) ([]domain.Decision, error) {
	rows, err := qr.QueryContext(ctx, r.q(`SELECT `+decisionColumns+` FROM decisions WHERE project_id=? ORDER BY seq ASC`), projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Decision
	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}
