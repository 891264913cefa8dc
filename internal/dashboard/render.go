package dashboard

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"time"
)

// Placeholders shown instead of a value.
const (
	LoadingText     = "Loading..."
	UnavailableText = "Unavailable"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"display": Display,
}).ParseFS(templateFS, "templates/*.html"))

// Display formats a field for humans: the placeholder while pending, UnavailableText
// when failed, otherwise the value. Numbers use their shortest form and zero values
// are shown as-is.
func Display(f FieldView) string {
	switch f.State {
	case StatePending:
		return LoadingText
	case StateFailed:
		return UnavailableText
	}
	switch v := f.Value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Render writes one "Label: value" line per field.
func Render(w io.Writer, snapshot []FieldView) error {
	for _, f := range snapshot {
		if _, err := fmt.Fprintf(w, "%s: %s\n", f.Label, Display(f)); err != nil {
			return err
		}
	}
	return nil
}

// RenderHTML writes one <h1>Label: value</h1> heading per field.
func RenderHTML(w io.Writer, snapshot []FieldView) error {
	return templates.ExecuteTemplate(w, "fields", snapshot)
}

type pageData struct {
	Title          string
	MountID        string
	Fields         []FieldView
	Pending        bool
	RefreshSeconds int
}

// renderPage writes the full dashboard page. While fields are pending the page
// asks the browser to reload after refresh.
func renderPage(w io.Writer, title string, b *Board, refresh time.Duration) error {
	snapshot := b.Snapshot()
	secs := int(refresh / time.Second)
	if secs < 1 {
		secs = 1
	}
	return templates.ExecuteTemplate(w, "page", pageData{
		Title:          title,
		MountID:        b.ID(),
		Fields:         snapshot,
		Pending:        anyPending(snapshot),
		RefreshSeconds: secs,
	})
}

func anyPending(snapshot []FieldView) bool {
	for _, f := range snapshot {
		if f.State == StatePending {
			return true
		}
	}
	return false
}
