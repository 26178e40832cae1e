// Package report renders the consolidated HTML document for one
// catalog run: one row per query definition with its substituted query
// text, hit-count badge, and source attribution.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"huntbook/internal/catalog"
	"huntbook/internal/hunt"
)

var urlPattern = regexp.MustCompile(`^https?://\S+$`)

// reportTmpl escapes Name, query text and non-URL sources via
// html/template's contextual auto-escaping. The hit badge styles zero
// and non-zero counts differently: non-zero is the case an analyst has
// to look at.
const reportTmpl = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Kind}} hunt: {{.EntityID}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;padding:20px;line-height:1.4}
table{border-collapse:collapse;margin:8px 0;width:100%}
td,th{border:1px solid #ddd;padding:6px;vertical-align:top}
h1{margin:6px 0 4px}
.dim{color:#666}
pre{margin:0;font-family:ui-monospace,Menlo,Consolas,monospace;white-space:pre-wrap}
.badge{display:inline-block;min-width:2em;padding:2px 8px;border-radius:10px;text-align:center;font-weight:bold}
.badge.hit{background:#c62828;color:#fff}
.badge.zero{background:#eee;color:#888}
</style>
</head>
<body>
<h1>Executed queries: {{.Kind}} <span class="dim">{{.EntityID}}</span></h1>
<p class="dim">Time frame: {{.TimeFrame}} &nbsp; Generated: {{.Generated}}</p>
<table>
<tr><th>Name</th><th>Query</th><th>Hits</th><th>Source</th></tr>
{{- range .Rows}}
<tr>
<td>{{.Name}}</td>
<td><pre>{{.Query}}</pre></td>
<td>{{if gt .Hits 0}}<span class="badge hit">{{.Hits}}</span>{{else}}<span class="badge zero">0</span>{{end}}</td>
<td>{{if .SourceURL}}<a href="{{.SourceURL}}">{{.SourceURL}}</a>{{else}}{{.Source}}{{end}}</td>
</tr>
{{- end}}
</table>
</body>
</html>
`

var tmpl = template.Must(template.New("report").Parse(reportTmpl))

type row struct {
	Name      string
	Query     string
	Hits      int
	Source    string
	SourceURL template.URL
}

type page struct {
	Kind      hunt.Kind
	EntityID  string
	TimeFrame string
	Generated string
	Rows      []row
}

// Render builds the report document from the in-memory catalog state.
// It uses whatever hit counts the catalog currently carries, so a run
// whose final persist failed still reports its fresh counts.
func Render(cat *catalog.Catalog, kind hunt.Kind, hctx hunt.Context, now time.Time) ([]byte, error) {
	p := page{
		Kind:      kind,
		EntityID:  hctx.EntityID(kind),
		TimeFrame: hctx.TimeFrame,
		Generated: now.UTC().Format(time.RFC3339),
	}
	for _, def := range cat.Defs {
		r := row{
			Name:   def.Name,
			Query:  hunt.RenderQuery(def.Query, hctx),
			Hits:   def.ResultCount,
			Source: def.Source,
		}
		if urlPattern.MatchString(def.Source) {
			r.SourceURL = template.URL(def.Source)
		}
		p.Rows = append(p.Rows, r)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, p); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return buf.Bytes(), nil
}

// Path returns the report file path for an entity run under dir,
// following the <Kind>-ExecutedQueries-<EntityID>.html pattern.
func Path(dir string, kind hunt.Kind, entityID string) string {
	return filepath.Join(dir, fmt.Sprintf("%s-ExecutedQueries-%s.html", kind, entityID))
}

// Write renders the report and writes it under dir, creating the
// directory if absent. It returns the written path.
func Write(cat *catalog.Catalog, kind hunt.Kind, hctx hunt.Context, dir string, now time.Time) (string, error) {
	data, err := Render(cat, kind, hctx, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create report dir %s: %w", dir, err)
	}
	path := Path(dir, kind, hctx.EntityID(kind))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}
	return path, nil
}
