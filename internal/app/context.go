package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"wizline/internal/catalog"
	"wizline/internal/config"
	"wizline/internal/db"
	"wizline/internal/domain"
	"wizline/internal/engine"
	"wizline/internal/migrate"
)

// Options select the workspace and optional overrides of wizline.yml.
type Options struct {
	Workspace   string
	DatabaseURL string
	CatalogPath string
}

// Env is an opened workspace: config, catalog, migrated database and engine.
type Env struct {
	Config  *config.Config
	Catalog *catalog.Catalog
	DB      *sql.DB
	Dialect db.Dialect
	Engine  engine.Engine
}

func (e *Env) Close() error {
	if e == nil || e.DB == nil {
		return nil
	}
	return e.DB.Close()
}

// Open loads config and catalog, opens and migrates the database and builds
// the engine. A CatalogError is returned unwrapped so callers can report it.
func Open(ctx context.Context, opts Options) (*Env, error) {
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	if opts.DatabaseURL != "" {
		cfg.Database.URL = opts.DatabaseURL
	}
	if opts.CatalogPath != "" {
		cfg.Catalog.Path = opts.CatalogPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}
	dbCfg := db.Config{Workspace: opts.Workspace, URL: cfg.Database.URL}
	conn, err := db.Open(dbCfg)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migrate.Migrate(conn, dbCfg.Dialect()); err != nil {
		conn.Close()
		return nil, err
	}
	return &Env{
		Config:  cfg,
		Catalog: cat,
		DB:      conn,
		Dialect: dbCfg.Dialect(),
		Engine:  engine.New(conn, dbCfg.Dialect(), cat),
	}, nil
}

// ResolveProject picks the active project. It prefers the override and falls
// back to the only project in the database. An override naming a missing
// project creates it on the fly.
func ResolveProject(ctx context.Context, e engine.Engine, projectOverride, actorID string) (domain.Project, error) {
	projectID := strings.TrimSpace(projectOverride)
	if projectID == "" {
		p, err := e.Repo.SingleProject(ctx)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Project{}, fmt.Errorf("no project yet; create one with wz project create or pass --project")
		}
		if err != nil {
			return domain.Project{}, err
		}
		return p, nil
	}
	p, err := e.GetProject(ctx, projectID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Project{}, err
	}
	return e.CreateProject(ctx, engine.ProjectCreateOptions{ID: projectID, Name: projectID, ActorID: actorID})
}
