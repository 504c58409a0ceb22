package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wizline/internal/app"
	"wizline/internal/domain"
	"wizline/internal/engine"
)

const envFile = ".env"

var rootCmd = &cobra.Command{
	Use:   "wz",
	Short: "Wizline configuration wizard",
	Long: `Wizline walks a team through a catalog of configuration decisions.
Core concepts:
- Catalog: configuration items with dependencies; an item is asked only once its prerequisites are answered.
- Project: one implementation, with its own answers and decisions. BEGINNER mode asks only the essential items.
- Status: BLOCKED until dependencies are DONE, then READY; DONE once answered.
- Decisions: every answer records a decision; answering again updates it in place.
- Artifacts: decision log, config workbook, test view and migration view; undecided data shows as TBD.
- Event log: diary of changes, view with 'wz log tail'.`,
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

// initConfig loads the workspace .env without overriding the real environment,
// then lets WIZLINE_* variables back every flag.
func initConfig() {
	workspace := viper.GetString("workspace")
	if workspace == "" {
		workspace = "."
	}
	_ = godotenv.Load(filepath.Join(workspace, envFile))
	viper.SetEnvPrefix("WIZLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	rootCmd.PersistentFlags().String("project", "", "project id (overrides the workspace default)")
	rootCmd.PersistentFlags().String("db-url", "", "postgres:// url (overrides wizline.yml)")
	rootCmd.PersistentFlags().String("catalog", "", "catalog yaml path (overrides wizline.yml)")
	for _, name := range []string{"workspace", "json", "actor-id", "project", "db-url", "catalog"} {
		_ = viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(projectCmd())
	rootCmd.AddCommand(catalogCmd())
	rootCmd.AddCommand(wizardCmd())
	rootCmd.AddCommand(backlogCmd())
	rootCmd.AddCommand(progressCmd())
	rootCmd.AddCommand(decisionsCmd())
	rootCmd.AddCommand(artifactsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- helpers ---

func openOptions() app.Options {
	return app.Options{
		Workspace:   viper.GetString("workspace"),
		DatabaseURL: viper.GetString("db-url"),
		CatalogPath: viper.GetString("catalog"),
	}
}

func withEnv(ctx context.Context, fn func(context.Context, *app.Env) error) error {
	env, err := app.Open(ctx, openOptions())
	if err != nil {
		return err
	}
	defer env.Close()
	return fn(ctx, env)
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withEnv(ctx, func(ctx context.Context, env *app.Env) error {
		return fn(ctx, env.Engine)
	})
}

// withProject resolves the active project: --project, then
// WIZLINE_DEFAULT_PROJECT, then the only project in the database.
func withProject(ctx context.Context, fn func(context.Context, engine.Engine, domain.Project) error) error {
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		override := viper.GetString("project")
		if override == "" {
			override = viper.GetString("default-project")
		}
		p, err := app.ResolveProject(ctx, e, override, viper.GetString("actor-id"))
		if err != nil {
			return err
		}
		return fn(ctx, e, p)
	})
}

func printJSONOrTable(v any, render func()) error {
	if viper.GetBool("json") || render == nil {
		return printJSON(v)
	}
	render()
	return nil
}

func printJSON(v any) error {
	return writeJSON(os.Stdout, v)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleLight)
	return tw
}

// setEnvValue upserts key in a dotenv file, keeping other entries.
func setEnvValue(path, key, value string) error {
	values, err := godotenv.Read(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		values = map[string]string{}
	}
	values[key] = value
	return godotenv.Write(values, path)
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
