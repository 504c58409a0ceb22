package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wizline/internal/catalog"
	"wizline/internal/domain"
	"wizline/internal/engine"
)

func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "catalog", Short: "Inspect the configuration catalog"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List catalog items in declaration order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items := e.Catalog.Items()
				return printJSONOrTable(items, func() {
					tw := newTable()
					tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Depends on", "Beginner"})
					for _, it := range items {
						tw.AppendRow(table.Row{it.ID, it.Title, it.Priority, joinOrDash(it.DependsOn), it.ForBeginners()})
					}
					tw.Render()
				})
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Catalog totals by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				stats := e.Catalog.Stats()
				return printJSONOrTable(stats, func() {
					tw := newTable()
					tw.AppendHeader(table.Row{"Priority", "Items"})
					for _, p := range e.Catalog.Priorities() {
						tw.AppendRow(table.Row{p, stats.ByPriority[p]})
					}
					tw.AppendFooter(table.Row{"Total", stats.Total})
					tw.Render()
				})
			})
		},
	})
	return cmd
}

func wizardCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "wizard", Short: "Answer configuration questions"}
	cmd.AddCommand(wizardNextCmd())
	cmd.AddCommand(wizardShowCmd())
	cmd.AddCommand(wizardAnswerCmd())
	cmd.AddCommand(wizardRunCmd())
	return cmd
}

func wizardNextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Show the next question",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				res, err := e.NextQuestion(ctx, p.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(res, func() {
					switch {
					case res.Complete:
						fmt.Println("Wizard complete: every item is answered.")
					case res.Stuck:
						fmt.Printf("No item can be asked; unreachable: %s\n", joinOrDash(res.Unreachable))
					default:
						printQuestion(os.Stdout, *res.Question)
					}
				})
			})
		},
	}
}

func wizardShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <item-id>",
		Short: "Show any question with its recorded answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				q, err := e.QuestionByID(ctx, p.ID, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(q, func() { printQuestion(os.Stdout, q) })
			})
		},
	}
}

func wizardAnswerCmd() *cobra.Command {
	var sets []string
	var raw string
	cmd := &cobra.Command{
		Use:   "answer <item-id>",
		Short: "Record an answer (--set name=value, repeatable, or --values JSON)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				it, ok := e.Catalog.Get(args[0])
				if !ok {
					return domain.NotFoundError{Kind: "config item", ID: args[0]}
				}
				values := map[string]any{}
				if raw != "" {
					if err := json.Unmarshal([]byte(raw), &values); err != nil {
						return fmt.Errorf("invalid --values json: %w", err)
					}
				}
				parsed, err := parseAssignments(it, sets)
				if err != nil {
					return err
				}
				for k, v := range parsed {
					values[k] = v
				}
				d, err := e.SubmitAnswer(ctx, engine.SubmitOptions{
					ProjectID: p.ID,
					ItemID:    it.ID,
					Answers:   values,
					ActorID:   viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(d, func() {
					fmt.Printf("Recorded decision #%d: %s\n", d.Seq, d.Title)
				})
			})
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field value as name=value")
	cmd.Flags().StringVar(&raw, "values", "", "answers as a JSON object")
	return cmd
}

func wizardRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Walk through the wizard interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				r := &runner{engine: e, projectID: p.ID, actorID: viper.GetString("actor-id"), in: os.Stdin, out: os.Stdout}
				return r.run(ctx)
			})
		},
	}
}

// parseAssignments converts name=value pairs using the item's input types.
func parseAssignments(it catalog.Item, pairs []string) (map[string]any, error) {
	out := map[string]any{}
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q, expected name=value", pair)
		}
		in, found := inputByName(it, name)
		if !found {
			return nil, fmt.Errorf("config item %s has no field %s", it.ID, name)
		}
		v, err := parseFieldValue(in, value)
		if err != nil {
			return nil, err
		}
		out[name] = v
	}
	return out, nil
}

func inputByName(it catalog.Item, name string) (catalog.Input, bool) {
	for _, in := range it.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return catalog.Input{}, false
}

func parseFieldValue(in catalog.Input, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch in.Type {
	case catalog.InputNumber:
		if raw == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("field %s expects a number, got %q", in.Name, raw)
		}
		return f, nil
	case catalog.InputMultiSelect:
		var values []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, part)
			}
		}
		for _, v := range values {
			if len(in.Options) > 0 && !contains(in.Options, v) {
				return nil, fmt.Errorf("field %s: %q is not one of %s", in.Name, v, strings.Join(in.Options, ", "))
			}
		}
		return values, nil
	case catalog.InputSelect:
		if raw != "" && len(in.Options) > 0 && !contains(in.Options, raw) {
			return nil, fmt.Errorf("field %s: %q is not one of %s", in.Name, raw, strings.Join(in.Options, ", "))
		}
		return raw, nil
	default:
		return raw, nil
	}
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

func backlogCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "backlog",
		Short: "List items with their derived status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				entries, err := e.Backlog(ctx, p.ID, status)
				if err != nil {
					return err
				}
				return printJSONOrTable(entries, func() { renderBacklog(entries) })
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter: PENDING, BLOCKED, READY or DONE")
	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Counts by status and priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				s, err := e.BacklogSummary(ctx, p.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(s, func() {
					tw := newTable()
					tw.AppendHeader(table.Row{"Status", "Items"})
					for _, st := range []domain.Status{domain.StatusBlocked, domain.StatusReady, domain.StatusDone} {
						tw.AppendRow(table.Row{st, s.ByStatus[st]})
					}
					tw.AppendFooter(table.Row{"Complete", fmt.Sprintf("%.1f%%", s.CompletionPercentage)})
					tw.Render()
				})
			})
		},
	})
	return cmd
}

func renderBacklog(entries []domain.BacklogEntry) {
	tw := newTable()
	tw.AppendHeader(table.Row{"ID", "Title", "Priority", "Status", "Depends on"})
	for _, e := range entries {
		tw.AppendRow(table.Row{e.ConfigItemID, e.Title, e.Priority, e.Status, joinOrDash(e.DependsOn)})
	}
	tw.Render()
}

func progressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Wizard progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				rep, err := e.Progress(ctx, p.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(rep, func() {
					tw := newTable()
					tw.AppendHeader(table.Row{"Mode", "Total", "Done", "Ready", "Blocked", "Progress"})
					tw.AppendRow(table.Row{rep.Mode, rep.Total, rep.Done, rep.Ready, rep.Blocked, fmt.Sprintf("%.1f%%", rep.Percentage)})
					tw.Render()
				})
			})
		},
	}
}

func decisionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decisions",
		Short: "List decisions in the order they were first recorded",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProject(cmd.Context(), func(ctx context.Context, e engine.Engine, p domain.Project) error {
				items, err := e.ListDecisions(ctx, p.ID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items, func() {
					tw := newTable()
					tw.AppendHeader(table.Row{"#", "Item", "Decision", "Rationale", "Updated"})
					for _, d := range items {
						tw.AppendRow(table.Row{d.Seq, d.ConfigItemID, d.Title, d.Rationale, d.UpdatedAt})
					}
					tw.Render()
				})
			})
		},
	}
}
