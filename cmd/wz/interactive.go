package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"wizline/internal/artifact"
	"wizline/internal/catalog"
	"wizline/internal/engine"
	"wizline/internal/sequencer"
)

// runner drives an interactive wizard session over a line-oriented terminal.
type runner struct {
	engine    engine.Engine
	projectID string
	actorID   string
	in        io.Reader
	out       io.Writer

	scanner *bufio.Scanner
	session sequencer.Session
}

var errQuit = errors.New("quit")

func (r *runner) readLine(prompt string) (string, error) {
	fmt.Fprint(r.out, prompt)
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", errQuit
	}
	return strings.TrimSpace(r.scanner.Text()), nil
}

func (r *runner) run(ctx context.Context) error {
	r.scanner = bufio.NewScanner(r.in)
	var current *engine.Question
	for {
		if current == nil {
			res, err := r.engine.NextQuestion(ctx, r.projectID)
			if err != nil {
				return err
			}
			if res.Complete {
				fmt.Fprintln(r.out, "Wizard complete: every item is answered.")
				return nil
			}
			if res.Stuck {
				fmt.Fprintf(r.out, "No item can be asked; unreachable: %s\n", joinOrDash(res.Unreachable))
				return nil
			}
			current = res.Question
			r.session.Present(current.ConfigItemID, sequencer.FromNext)
		}
		printQuestion(r.out, *current)

		action, err := r.readLine("[enter]=answer  b=back  e <ID>=edit  q=quit > ")
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
		switch {
		case action == "q":
			return nil
		case action == "b":
			id, ok := r.session.Back()
			if !ok {
				fmt.Fprintln(r.out, "Nothing to go back to.")
				continue
			}
			q, err := r.engine.QuestionByID(ctx, r.projectID, id)
			if err != nil {
				return err
			}
			current = &q
			continue
		case strings.HasPrefix(action, "e "):
			id := strings.TrimSpace(strings.TrimPrefix(action, "e "))
			q, err := r.engine.QuestionByID(ctx, r.projectID, id)
			if err != nil {
				fmt.Fprintf(r.out, "%v\n", err)
				continue
			}
			r.session.Present(q.ConfigItemID, sequencer.FromEdit)
			current = &q
			continue
		case action != "":
			fmt.Fprintf(r.out, "Unknown command %q\n", action)
			continue
		}

		values, err := r.collect(*current)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = r.engine.SubmitAnswer(ctx, engine.SubmitOptions{
			ProjectID: r.projectID,
			ItemID:    current.ConfigItemID,
			Answers:   values,
			ActorID:   r.actorID,
		})
		var ve *engine.ValidationError
		if errors.As(err, &ve) {
			fmt.Fprintf(r.out, "Missing required fields: %s\n", strings.Join(ve.Missing, ", "))
			continue
		}
		if err != nil {
			return err
		}
		r.session.Submitted(current.ConfigItemID)
		fmt.Fprintf(r.out, "Saved %s: %s\n", current.ConfigItemID, artifact.FormatValues(values))
		if r.session.ReturnsToBacklog() {
			return r.printBacklog(ctx)
		}
		current = nil
	}
}

// printBacklog ends an edit session at the backlog view.
func (r *runner) printBacklog(ctx context.Context) error {
	entries, err := r.engine.Backlog(ctx, r.projectID, "")
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, "Backlog:")
	for _, e := range entries {
		fmt.Fprintf(r.out, "  %-10s %-8s %s\n", e.ConfigItemID, e.Status, e.Title)
	}
	fmt.Fprintln(r.out, "Run 'wz wizard run' to continue with the next question.")
	return nil
}

// collect prompts for every field. Keys outside the catalog inputs are kept
// from the recorded answer. An empty line keeps the recorded answer,
// then the recommended value, and otherwise leaves the field unset.
func (r *runner) collect(q engine.Question) (map[string]any, error) {
	values := make(map[string]any, len(q.Answers))
	for k, v := range q.Answers {
		values[k] = v
	}
	for _, f := range q.Fields {
		in := catalog.Input{Name: f.Name, Type: catalog.InputType(f.Type), Options: f.Options}
		def, hasDef := q.Answers[f.Name]
		if !hasDef && f.Recommended != nil {
			def, hasDef = f.Recommended, true
		}
		prompt := f.Label
		if f.Required {
			prompt += " *"
		}
		if hasDef {
			prompt += fmt.Sprintf(" [%s]", artifact.FormatValue(def))
		}
		for {
			line, err := r.readLine(prompt + ": ")
			if err != nil {
				return nil, err
			}
			if line == "" {
				if hasDef {
					values[f.Name] = def
				}
				break
			}
			v, err := parseFieldValue(in, line)
			if err != nil {
				fmt.Fprintf(r.out, "%v\n", err)
				continue
			}
			values[f.Name] = v
			break
		}
	}
	return values, nil
}

func printQuestion(w io.Writer, q engine.Question) {
	fmt.Fprintf(w, "\n[%d/%d] %s %s (%s, %s)\n", q.Progress, q.Total, q.ConfigItemID, q.Title, q.Priority, q.Status)
	if q.Description != "" {
		fmt.Fprintf(w, "  %s\n", q.Description)
	}
	if q.Why != "" {
		fmt.Fprintf(w, "  Why: %s\n", q.Why)
	}
	if len(q.DependsOn) > 0 {
		fmt.Fprintf(w, "  Depends on: %s\n", strings.Join(q.DependsOn, ", "))
	}
	for _, f := range q.Fields {
		line := fmt.Sprintf("  - %s (%s", f.Label, f.Type)
		if f.Required {
			line += ", required"
		}
		line += ")"
		if len(f.Options) > 0 {
			opts := make([]string, 0, len(f.Options))
			for _, o := range f.Options {
				if label, ok := f.OptionLabels[o]; ok && label != "" {
					opts = append(opts, fmt.Sprintf("%s=%s", o, label))
				} else {
					opts = append(opts, o)
				}
			}
			line += ": " + strings.Join(opts, " | ")
		}
		fmt.Fprintln(w, line)
	}
	if len(q.Answers) > 0 {
		fmt.Fprintf(w, "  Current answer: %s\n", artifact.FormatValues(q.Answers))
	}
}
