package engine

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"wizline/internal/artifact"
	"wizline/internal/domain"
	"wizline/internal/events"
)

func (e Engine) snapshotTx(ctx context.Context, tx *sql.Tx, projectID string) (artifact.Snapshot, error) {
	v, err := e.loadViewTx(ctx, tx, projectID)
	if err != nil {
		return artifact.Snapshot{}, err
	}
	decisions, err := e.Repo.ListDecisionsTx(ctx, tx, projectID)
	if err != nil {
		return artifact.Snapshot{}, err
	}
	return artifact.Snapshot{
		Project:   v.project,
		Catalog:   e.Catalog,
		Answers:   v.answers,
		Decisions: decisions,
		Statuses:  v.statuses,
	}, nil
}

// GenerateArtifacts compiles the requested types, or all four when none are
// given, from one snapshot and stores a new generation of each.
func (e Engine) GenerateArtifacts(ctx context.Context, projectID string, types []domain.ArtifactType, actorID string) ([]domain.Artifact, error) {
	seen := map[domain.ArtifactType]bool{}
	var unique []domain.ArtifactType
	for _, raw := range types {
		t, ok := domain.ParseArtifactType(string(raw))
		if !ok {
			return nil, &InvalidArgumentError{Field: "artifact_type", Value: string(raw)}
		}
		if !seen[t] {
			seen[t] = true
			unique = append(unique, t)
		}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	snap, err := e.snapshotTx(ctx, tx, projectID)
	if err != nil {
		return nil, err
	}
	now := e.timestamp()
	var (
		out  []domain.Artifact
		evts []domain.Event
	)
	for _, doc := range artifact.CompileAll(snap, unique) {
		a := domain.Artifact{
			ID:        uuid.NewString(),
			ProjectID: projectID,
			Type:      doc.Type,
			Content:   doc.Content,
			TBDCount:  doc.TBDCount,
			CreatedAt: now,
		}
		if err := e.Repo.InsertArtifactTx(ctx, tx, a); err != nil {
			return nil, fmt.Errorf("insert artifact %s: %w", a.Type, err)
		}
		evt, err := e.writer().Append(ctx, tx, events.ArtifactGenerated, projectID, "artifact", a.ID, actorID, events.EventPayload{"artifact_type": a.Type, "tbd_count": a.TBDCount})
		if err != nil {
			return nil, err
		}
		out = append(out, a)
		evts = append(evts, evt)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	e.publish(evts...)
	return out, nil
}

// LatestArtifact returns the newest generation of a type.
func (e Engine) LatestArtifact(ctx context.Context, projectID string, t domain.ArtifactType) (domain.Artifact, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return domain.Artifact{}, err
	}
	a, err := e.Repo.LatestArtifact(ctx, projectID, t)
	if err != nil {
		return domain.Artifact{}, notFound(err, "artifact", string(t))
	}
	return a, nil
}

// ListArtifacts returns generations newest first, without content.
func (e Engine) ListArtifacts(ctx context.Context, projectID string, t domain.ArtifactType, limit int) ([]domain.Artifact, error) {
	if _, err := e.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return e.Repo.ListArtifacts(ctx, projectID, t, limit, false)
}

// Export builds the structured JSON export from one snapshot.
func (e Engine) Export(ctx context.Context, projectID string) (artifact.ExportDocument, error) {
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return artifact.ExportDocument{}, err
	}
	defer tx.Rollback()
	snap, err := e.snapshotTx(ctx, tx, projectID)
	if err != nil {
		return artifact.ExportDocument{}, err
	}
	return artifact.Export(snap), nil
}
