// internal/export/export.go
//
// export turns the board's output rows into a printable/downloadable
// tabular document. Build is pure; the renderers only touch the writer they
// are handed.
package export

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"time"

	"flavorchart/internal/board"
)

// Title is the fixed document title.
const Title = "Flavor Allergen Chart"

// Attribution is appended to every export.
const Attribution = "Compiled with FlavorChart from the shop reference list and staff-entered items. Verify with a manager before posting."

// Document is the layout-independent export model.
type Document struct {
	Title       string
	ShopName    string
	GeneratedAt time.Time
	Columns     []string // "Name" followed by the attribute names
	Sections    []Section
	Attribution string
}

// Section is one table: a heading (empty for the flat, unsplit layout) and
// its data rows, each row being the item name followed by the attribute
// labels in column order.
type Section struct {
	Heading string
	Rows    [][]string
}

// Build assembles a Document from grouped output rows. The generated-at
// stamp is taken in the viewer's local time by the caller.
func Build(groups []board.Group, attrNames []string, shopName string, now time.Time) Document {
	columns := make([]string, 0, len(attrNames)+1)
	columns = append(columns, "Name")
	columns = append(columns, attrNames...)

	sections := make([]Section, 0, len(groups))
	for _, group := range groups {
		section := Section{Heading: string(group.Category)}
		for _, item := range group.Items {
			row := make([]string, 0, len(columns))
			row = append(row, item.Name)
			for _, col := range attrNames {
				row = append(row, string(item.Attributes[col]))
			}
			section.Rows = append(section.Rows, row)
		}
		sections = append(sections, section)
	}

	return Document{
		Title:       Title,
		ShopName:    shopName,
		GeneratedAt: now,
		Columns:     columns,
		Sections:    sections,
		Attribution: Attribution,
	}
}

// WriteCSV renders the document as CSV: a title block, then each section's
// heading, header row and data rows, then the attribution line.
func WriteCSV(w io.Writer, doc Document) error {
	cw := csv.NewWriter(w)

	writeMeta := func(fields ...string) {
		cw.Write(fields)
	}
	writeMeta(doc.Title)
	if doc.ShopName != "" {
		writeMeta(doc.ShopName)
	}
	writeMeta("Generated at", doc.GeneratedAt.Format("2006-01-02 15:04 MST"))

	for _, section := range doc.Sections {
		writeMeta()
		if section.Heading != "" {
			writeMeta(section.Heading)
		}
		cw.Write(doc.Columns)
		for _, row := range section.Rows {
			cw.Write(row)
		}
	}

	writeMeta()
	writeMeta(doc.Attribution)

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write CSV export: %w", err)
	}
	return nil
}

var htmlTmpl = template.Must(template.New("export").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Georgia, serif; margin: 2em; }
h1 { margin-bottom: 0; }
.meta { color: #555; margin-bottom: 1.5em; }
h2 { margin-top: 1.5em; }
table { border-collapse: collapse; width: 100%; margin-bottom: 1em; }
th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }
th { background: #eee; }
.attribution { margin-top: 2em; font-size: 0.8em; color: #777; }
@media print { body { margin: 0.5em; } }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div class="meta">{{if .ShopName}}{{.ShopName}} &mdash; {{end}}generated {{.GeneratedAt.Format "January 2, 2006 3:04 PM"}}</div>
{{range .Sections}}
{{if .Heading}}<h2>{{.Heading}}</h2>{{end}}
<table>
<tr>{{range $.Columns}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}
</table>
{{end}}
<div class="attribution">{{.Attribution}}</div>
</body>
</html>
`))

// WriteHTML renders the document as a printable HTML page.
func WriteHTML(w io.Writer, doc Document) error {
	if err := htmlTmpl.Execute(w, doc); err != nil {
		return fmt.Errorf("write HTML export: %w", err)
	}
	return nil
}
