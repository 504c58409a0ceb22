package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wizline/internal/app"
	"wizline/internal/config"
	"wizline/internal/db"
	"wizline/internal/domain"
	"wizline/internal/engine"
	"wizline/internal/migrate"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create wizline.yml and the workspace database",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil && !force {
				fmt.Printf("%s already exists (use --force to overwrite)\n", path)
			} else {
				if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", path)
			}
			return withEnv(cmd.Context(), func(ctx context.Context, env *app.Env) error {
				version, err := migrate.Version(env.DB)
				if err != nil {
					return err
				}
				fmt.Printf("Database ready (%s, schema v%d), catalog %s with %d items\n", env.Dialect, version, env.Catalog.Version, env.Catalog.Len())
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing wizline.yml")
	return cmd
}

func projectCmd() *cobra.Command {
	prj := &cobra.Command{Use: "project", Short: "Manage projects"}
	prj.AddCommand(projectListCmd())
	prj.AddCommand(projectCreateCmd())
	prj.AddCommand(projectShowCmd())
	prj.AddCommand(projectUpdateCmd())
	prj.AddCommand(projectDeleteCmd())
	prj.AddCommand(projectUseCmd())
	return prj
}

func renderProjects(items []domain.Project) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Name", "Mode", "Country", "Currency", "Updated"})
	for _, p := range items {
		tw.AppendRow(table.Row{p.ID, p.Name, p.Mode, p.Country, p.Currency, p.UpdatedAt})
	}
	tw.Render()
}

func projectListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.ListProjects(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(items, func() { renderProjects(items) })
			})
		},
	}
}

type projectFlags struct {
	name, mode, country, currency, industry, description string
	companyCount                                         int
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "project name")
	cmd.Flags().StringVar(&f.mode, "mode", "", "BEGINNER or EXPERT")
	cmd.Flags().StringVar(&f.country, "country", "", "country code")
	cmd.Flags().StringVar(&f.currency, "currency", "", "functional currency")
	cmd.Flags().StringVar(&f.industry, "industry", "", "industry")
	cmd.Flags().IntVar(&f.companyCount, "company-count", 0, "number of company codes")
	cmd.Flags().StringVar(&f.description, "description", "", "description")
}

func changed(cmd *cobra.Command, name string, v *string) *string {
	if cmd.Flags().Changed(name) {
		return v
	}
	return nil
}

func projectCreateCmd() *cobra.Command {
	var id string
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.ProjectCreateOptions{
					ID:          id,
					Name:        f.name,
					Mode:        f.mode,
					Country:     f.country,
					Currency:    f.currency,
					Industry:    f.industry,
					Description: f.description,
					ActorID:     viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("company-count") {
					opts.CompanyCount = &f.companyCount
				}
				p, err := e.CreateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(p, func() { renderProjects([]domain.Project{p}) })
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "project id (generated when empty)")
	f.register(cmd)
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func projectShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				return printJSON(p)
			})
		},
	}
}

func projectUpdateCmd() *cobra.Command {
	var f projectFlags
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the active project",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				opts := engine.ProjectUpdateOptions{
					ID:          p.ID,
					Name:        changed(cmd, "name", &f.name),
					Mode:        changed(cmd, "mode", &f.mode),
					Country:     changed(cmd, "country", &f.country),
					Currency:    changed(cmd, "currency", &f.currency),
					Industry:    changed(cmd, "industry", &f.industry),
					Description: changed(cmd, "description", &f.description),
					ActorID:     viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("company-count") {
					opts.CompanyCount = &f.companyCount
				}
				updated, err := e.UpdateProject(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(updated, func() { renderProjects([]domain.Project{updated}) })
			})
		},
	}
	f.register(cmd)
	return cmd
}

func projectDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a project with its answers, decisions and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteProject(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Printf("Deleted project %s\n", args[0])
				return nil
			})
		},
	}
}

func projectUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use <id>",
		Short: "Set the default project for this workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			projectID := strings.TrimSpace(args[0])
			if projectID == "" {
				return fmt.Errorf("project id is required")
			}
			if err := withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				_, err := e.GetProject(ctx, projectID)
				return err
			}); err != nil {
				return err
			}
			workspace := viper.GetString("workspace")
			if err := setEnvValue(filepath.Join(workspace, envFile), "WIZLINE_DEFAULT_PROJECT", projectID); err != nil {
				return err
			}
			fmt.Printf("Set WIZLINE_DEFAULT_PROJECT=%s in %s\n", projectID, filepath.Join(workspace, envFile))
			return nil
		},
	}
}
