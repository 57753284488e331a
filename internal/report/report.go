// Package report renders agent activity reports.
//
// A report combines the current agent roster with recorded task runs,
// first as Markdown, then optionally converted to a standalone HTML
// page for sharing outside the terminal.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"

	"girder/internal/history"
	"girder/internal/registry"
)

// Report is the input to the renderers.
type Report struct {
	GeneratedAt time.Time
	Agents      []registry.Agent
	Runs        []history.Run
}

// Markdown renders the report as GitHub-flavored Markdown.
func Markdown(r Report) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Agent Activity Report\n\n")
	fmt.Fprintf(&b, "Generated %s\n\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Agents\n\n")
	if len(r.Agents) == 0 {
		b.WriteString("No agents configured.\n\n")
	} else {
		b.WriteString("| Agent | Type | Status | Last Run |\n")
		b.WriteString("|-------|------|--------|----------|\n")
		for _, a := range r.Agents {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				a.Name, a.Type, a.Status, registry.LastRunDisplay(a, r.GeneratedAt))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recent Runs\n\n")
	if len(r.Runs) == 0 {
		b.WriteString("No runs recorded.\n")
	} else {
		b.WriteString("| Agent | Task | Status | Started | Duration | Message |\n")
		b.WriteString("|-------|------|--------|---------|----------|--------|\n")
		for _, run := range r.Runs {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				run.AgentID, run.TaskType, run.Status,
				run.StartedAt.Format("2006-01-02 15:04:05"),
				runDuration(run), escapePipes(run.Message))
		}
	}

	return []byte(b.String())
}

func runDuration(r history.Run) string {
	if r.FinishedAt == nil {
		return "in progress"
	}
	return r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

// pageTemplate wraps the converted Markdown in a minimal standalone page.
const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #ccc; padding: 0.4rem 0.6rem; text-align: left; }
th { background: #f4f4f4; }
</style>
</head>
<body>
{{.Content}}
</body>
</html>
`

type pageData struct {
	Title   string
	Content template.HTML
}

// HTML converts the report to a standalone HTML page.
func HTML(r Report) ([]byte, error) {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.Table,
			extension.Linkify,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)

	var body bytes.Buffer
	if err := md.Convert(Markdown(r), &body); err != nil {
		return nil, fmt.Errorf("convert report: %w", err)
	}

	tmpl, err := template.New("report").Parse(pageTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse report template: %w", err)
	}

	var page bytes.Buffer
	err = tmpl.Execute(&page, pageData{
		Title:   "Agent Activity Report",
		Content: template.HTML(body.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("render report page: %w", err)
	}
	return page.Bytes(), nil
}

// WriteHTML renders the report and writes it to path.
func WriteHTML(path string, r Report) error {
	data, err := HTML(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
