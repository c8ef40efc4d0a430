// Package formatting renders tool responses for the CLI commands: flow
// paths, task recommendations, and blocked-task reports as tables, or raw
// JSON when requested.
package formatting

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	pkgstrings "roster/pkg/strings"
)

// Options configures rendering behavior.
type Options struct {
	Color bool // enable colored output
	Quiet bool // suppress footers and decorations
}

// Renderer writes formatted tool output to a single destination.
type Renderer struct {
	out     io.Writer
	options Options
}

// NewRenderer creates a renderer writing to out.
func NewRenderer(out io.Writer, options Options) *Renderer {
	return &Renderer{out: out, options: options}
}

// createTable creates a table with the standard styling.
func (r *Renderer) createTable() table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetStyle(table.StyleRounded)
	return t
}

// paint colorizes s when color is enabled.
func (r *Renderer) paint(c text.Color, s string) string {
	if !r.options.Color {
		return s
	}
	return c.Sprint(s)
}

func (r *Renderer) header(labels ...string) table.Row {
	row := make(table.Row, len(labels))
	for i, label := range labels {
		row[i] = r.paint(text.FgHiCyan, label)
	}
	return row
}

// FlowPath renders a get_flow_path data payload: the flow name, any matched
// tags, and the status sequence with the current position marked.
func (r *Renderer) FlowPath(data map[string]interface{}) {
	flowName := stringField(data, "flowName")
	current := stringField(data, "current")

	fmt.Fprintf(r.out, "%s %s\n", r.paint(text.FgHiBlue, "Flow:"), flowName)
	if tags := stringList(data, "matchedTags"); len(tags) > 0 {
		fmt.Fprintf(r.out, "%s %s\n", r.paint(text.FgHiBlue, "Matched tags:"), strings.Join(tags, ", "))
	}

	t := r.createTable()
	t.AppendHeader(r.header("#", "STATUS", ""))
	for i, status := range stringList(data, "sequence") {
		marker := ""
		if current != "" && status == current {
			marker = r.paint(text.FgGreen, "current")
			if terminal, _ := data["terminal"].(bool); terminal {
				marker = r.paint(text.FgGreen, "current, terminal")
			}
		}
		t.AppendRow(table.Row{i, status, marker})
	}
	t.Render()

	if current != "" && data["position"] == nil && !r.options.Quiet {
		fmt.Fprintf(r.out, "%s\n", r.paint(text.FgYellow, fmt.Sprintf("status %q is not part of this flow", current)))
	}
}

// NextTasks renders a get_next_item data payload as a recommendation table.
func (r *Renderer) NextTasks(data map[string]interface{}) {
	tasks := mapList(data, "tasks")
	if len(tasks) == 0 {
		fmt.Fprintf(r.out, "%s\n", r.paint(text.FgYellow, "No startable tasks."))
		return
	}

	t := r.createTable()
	t.AppendHeader(r.header("#", "TITLE", "ID", "PRIORITY", "COMPLEXITY"))
	for i, task := range tasks {
		complexity := "-"
		if c, ok := task["complexity"].(float64); ok {
			complexity = fmt.Sprintf("%d", int(c))
		}
		t.AppendRow(table.Row{
			i + 1,
			cellText(stringField(task, "title")),
			stringField(task, "taskId"),
			stringField(task, "priority"),
			complexity,
		})
	}
	t.Render()

	if !r.options.Quiet {
		if total, ok := data["totalCandidates"].(float64); ok {
			fmt.Fprintf(r.out, "%s %d\n", r.paint(text.FgHiBlue, "Startable candidates:"), int(total))
		}
	}
}

// BlockedTasks renders a get_blocked data payload: each blocked task with
// the dependencies holding it.
func (r *Renderer) BlockedTasks(data map[string]interface{}) {
	blocked := mapList(data, "blockedTasks")
	if len(blocked) == 0 {
		fmt.Fprintf(r.out, "%s\n", r.paint(text.FgYellow, "No blocked tasks."))
		return
	}

	t := r.createTable()
	t.AppendHeader(r.header("TITLE", "ID", "STATUS", "BLOCKED BY"))
	for _, task := range blocked {
		var holds []string
		for _, blocker := range mapList(task, "blockers") {
			hold := fmt.Sprintf("%s (%s)", cellText(stringField(blocker, "title")), stringField(blocker, "status"))
			if threshold := stringField(blocker, "threshold"); threshold != "" {
				hold += fmt.Sprintf(" until %s", threshold)
			}
			holds = append(holds, hold)
		}
		t.AppendRow(table.Row{
			cellText(stringField(task, "title")),
			stringField(task, "taskId"),
			stringField(task, "status"),
			strings.Join(holds, "\n"),
		})
	}
	t.Render()

	if !r.options.Quiet {
		if count, ok := data["count"].(float64); ok {
			fmt.Fprintf(r.out, "%s %d\n", r.paint(text.FgHiBlue, "Blocked tasks:"), int(count))
		}
	}
}

// JSON pretty-prints v, for --output json.
func (r *Renderer) JSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, string(b))
	return nil
}

func stringField(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// cellText keeps free-form text short enough for a table cell.
func cellText(s string) string {
	return pkgstrings.TruncateDescription(s, pkgstrings.DefaultDescriptionMaxLen)
}

func stringList(m map[string]interface{}, key string) []string {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func mapList(m map[string]interface{}, key string) []map[string]interface{} {
	raw, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(raw))
	for _, item := range raw {
		if entry, ok := item.(map[string]interface{}); ok {
			out = append(out, entry)
		}
	}
	return out
}
