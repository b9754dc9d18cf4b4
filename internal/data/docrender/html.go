// Package docrender renders completion documents. The HTML renderer keeps
// layout minimal; downstream conversion to print formats is out of scope.
package docrender

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"

	"github.com/stagehand-app/stagehand/internal/core"
	"github.com/stagehand-app/stagehand/internal/domain/model"
)

const completionReportTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Completion report {{.JobID}}</title></head>
<body>
{{- if .LogoURL}}
<img src="{{.LogoURL}}" alt="logo" height="48">
{{- end}}
<h1>Job completion report</h1>
<table>
<tr><td>Job</td><td>{{.JobID}}</td></tr>
{{- if .VenueName}}
<tr><td>Venue</td><td>{{.VenueName}}</td></tr>
{{- end}}
<tr><td>Crew</td><td>{{.Recipient.Name}}</td></tr>
<tr><td>Completed</td><td>{{.CompletedAt.Format "Mon 2 Jan 2006 15:04"}}</td></tr>
</table>
{{- if .Notes}}
<h2>Notes</h2>
<p>{{.Notes}}</p>
{{- end}}
{{- if .LineItems}}
<h2>Equipment</h2>
<ul>
{{- range .LineItems}}
<li>{{.Quantity}} &times; {{.Name}}</li>
{{- end}}
</ul>
{{- end}}
{{- if .SignatureURI}}
<h2>Signature</h2>
<img src="{{.SignatureURI}}" alt="signature">
{{- end}}
</body>
</html>
`

// HTMLRenderer renders completion documents to self-contained HTML with the
// captured signature inlined as a data URI.
type HTMLRenderer struct {
	tmpl *template.Template
}

var _ core.DocumentRenderer = (*HTMLRenderer)(nil)

// NewHTMLRenderer parses the report template.
func NewHTMLRenderer() (*HTMLRenderer, error) {
	tmpl, err := template.New("completion_report").Parse(completionReportTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse completion report template: %w", err)
	}
	return &HTMLRenderer{tmpl: tmpl}, nil
}

type reportData struct {
	*model.CompletionDocument
	SignatureURI template.URL
}

// Render produces the report bytes and their content type.
func (r *HTMLRenderer) Render(_ context.Context, doc *model.CompletionDocument) ([]byte, string, error) {
	if doc == nil {
		return nil, "", fmt.Errorf("document is required")
	}

	data := reportData{CompletionDocument: doc}
	if doc.Signature != nil && len(doc.Signature.Data) > 0 {
		contentType := doc.Signature.ContentType
		if contentType == "" {
			contentType = "image/png"
		}
		uri := "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(doc.Signature.Data)
		data.SignatureURI = template.URL(uri) // #nosec G203 -- built from our own base64, not user markup
	}

	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, "", fmt.Errorf("render completion report: %w", err)
	}
	return buf.Bytes(), "text/html; charset=utf-8", nil
}
