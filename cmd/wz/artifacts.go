package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wizline/internal/domain"
	"wizline/internal/engine"
)

func artifactsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "artifacts", Short: "Generate and read artifacts"}
	cmd.AddCommand(artifactsGenerateCmd())
	cmd.AddCommand(artifactsListCmd())
	cmd.AddCommand(artifactsShowCmd())
	cmd.AddCommand(artifactsDownloadCmd())
	return cmd
}

func parseArtifactArg(s string) (domain.ArtifactType, error) {
	t, ok := domain.ParseArtifactType(s)
	if !ok {
		return "", &engine.InvalidArgumentError{Field: "artifact_type", Value: s}
	}
	return t, nil
}

func renderArtifacts(items []domain.Artifact) {
	tw := newTable()
	tw.AppendHeader(table.Row{"Type", "TBD", "Created", "ID"})
	for _, a := range items {
		tw.AppendRow(table.Row{a.Type, a.TBDCount, a.CreatedAt, a.ID})
	}
	tw.Render()
}

func artifactsGenerateCmd() *cobra.Command {
	var types []string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate artifacts from the current answers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				var selected []domain.ArtifactType
				for _, t := range types {
					selected = append(selected, domain.ArtifactType(t))
				}
				items, err := e.GenerateArtifacts(ctx, p.ID, selected, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(items, func() { renderArtifacts(items) })
			})
		},
	}
	cmd.Flags().StringSliceVar(&types, "type", nil, "artifact types to generate (default all)")
	return cmd
}

func artifactsListCmd() *cobra.Command {
	var typ string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List generated artifacts, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var t domain.ArtifactType
			if typ != "" {
				parsed, err := parseArtifactArg(typ)
				if err != nil {
					return err
				}
				t = parsed
			}
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				items, err := e.ListArtifacts(ctx, p.ID, t, limit)
				if err != nil {
					return err
				}
				return printJSONOrTable(items, func() { renderArtifacts(items) })
			})
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "artifact type filter")
	cmd.Flags().IntVar(&limit, "limit", 20, "number of artifacts")
	return cmd
}

func artifactsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <type>",
		Short: "Print the latest generation of an artifact type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseArtifactArg(args[0])
			if err != nil {
				return err
			}
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				a, err := e.LatestArtifact(ctx, p.ID, t)
				if err != nil {
					return err
				}
				return printJSONOrTable(a, func() { fmt.Print(a.Content) })
			})
		},
	}
}

func artifactsDownloadCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download <type>",
		Short: "Write the latest generation of an artifact type to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := parseArtifactArg(args[0])
			if err != nil {
				return err
			}
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				a, err := e.LatestArtifact(ctx, p.ID, t)
				if err != nil {
					return err
				}
				path := filepath.Join(dir, t.Filename())
				if err := os.WriteFile(path, []byte(a.Content), 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote %s (%d TBD)\n", path, a.TBDCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "output directory")
	return cmd
}

func exportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export decisions and configuration values as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				doc, err := e.Export(ctx, p.ID)
				if err != nil {
					return err
				}
				if out == "" {
					return printJSON(doc)
				}
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				if err := writeJSON(f, doc); err != nil {
					return err
				}
				fmt.Printf("Wrote %s\n", out)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func logCmd() *cobra.Command {
	logc := &cobra.Command{Use: "log", Short: "Event log"}
	var n int
	var evtType string
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Show recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				items, err := e.ListEvents(ctx, p.ID, n, 0, evtType)
				if err != nil {
					return err
				}
				return printJSONOrTable(items, func() {
					tw := newTable()
					tw.AppendHeader(table.Row{"ID", "Time", "Type", "Entity", "Actor"})
					for _, evt := range items {
						tw.AppendRow(table.Row{evt.ID, evt.TS, evt.Type, evt.EntityKind + " " + evt.EntityID, evt.ActorID})
					}
					tw.Render()
				})
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	tail.Flags().StringVar(&evtType, "type", "", "event type filter")
	logc.AddCommand(tail)
	return logc
}
