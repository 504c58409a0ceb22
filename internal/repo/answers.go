package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"wizline/internal/domain"
)

func scanAnswer(row scanner) (domain.Answer, error) {
	var a domain.Answer
	var raw string
	err := row.Scan(&a.ProjectID, &a.ConfigItemID, &raw, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	if err != nil {
		return a, err
	}
	if err := json.Unmarshal([]byte(raw), &a.Values); err != nil {
		return a, fmt.Errorf("decode answer %s: %w", a.ConfigItemID, err)
	}
	if a.Values == nil {
		a.Values = map[string]any{}
	}
	return a, nil
}

// UpsertAnswerTx writes the answer for (project, item). A resubmission
// replaces the values and keeps the original created_at.
func (r Repo) UpsertAnswerTx(ctx context.Context, tx *sql.Tx, a domain.Answer) error {
	values := a.Values
	if values == nil {
		values = map[string]any{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode answer values: %w", err)
	}
	_, err = tx.ExecContext(ctx, r.q(`INSERT INTO answers(project_id,config_item_id,values_json,created_at,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(project_id,config_item_id) DO UPDATE SET values_json=excluded.values_json, updated_at=excluded.updated_at`),
		a.ProjectID, a.ConfigItemID, string(data), a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetAnswer(ctx context.Context, projectID, itemID string) (domain.Answer, error) {
	return scanAnswer(r.DB.QueryRowContext(ctx, r.q(`SELECT project_id,config_item_id,values_json,created_at,updated_at FROM answers WHERE project_id=? AND config_item_id=?`), projectID, itemID))
}

// ListAnswers returns the project's answers keyed by config item id.
func (r Repo) ListAnswers(ctx context.Context, projectID string) (map[string]domain.Answer, error) {
	return r.listAnswers(ctx, r.DB, projectID)
}

func (r Repo) ListAnswersTx(ctx context.Context, tx *sql.Tx, projectID string) (map[string]domain.Answer, error) {
	return r.listAnswers(ctx, tx, projectID)
}

func (r Repo) listAnswers(ctx context.Context, qr queryer, projectID string) (map[string]domain.Answer, error) {
	rows, err := qr.QueryContext(ctx, r.q(`SELECT project_id,config_item_id,values_json,created_at,updated_at FROM answers WHERE project_id=?`), projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := map[string]domain.Answer{}
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		res[a.ConfigItemID] = a
	}
	return res, rows.Err()
}
