package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/ShayCichocki/recurse/pkg/models"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

var viewerTemplate = template.Must(template.New("viewer.html.tmpl").Funcs(template.FuncMap{
	"toJSON": func(v any) template.JS {
		data, err := json.Marshal(v)
		if err != nil {
			return template.JS("null")
		}
		return template.JS(data)
	},
	"icon":     StatusIcon,
	"truncate": Truncate,
}).ParseFS(templateFiles, "templates/viewer.html.tmpl"))

// ViewerData is the input of the HTML viewer template.
type ViewerData struct {
	Goal        string
	UpdatedAt   string
	GeneratedAt string
	Current     string
	Passed      int
	Failed      int
	Total       int
	Progress    int
	Tree        *ViewerNode
	Registry    *models.Registry
	Failures    *models.FailureLog
}

// ViewerNode is one node of the pre-built tree handed to the template.
type ViewerNode struct {
	*models.Node
	Current  bool
	Children []*ViewerNode
}

// NewViewerData prepares template input from both documents.
func NewViewerData(reg *models.Registry, failures *models.FailureLog, now time.Time) ViewerData {
	if failures == nil {
		failures = models.NewFailureLog()
	}
	d := ViewerData{
		Goal:        reg.Meta.Goal,
		UpdatedAt:   reg.UpdatedAt.Format("2006-01-02 15:04:05"),
		GeneratedAt: now.Format("2006-01-02 15:04:05"),
		Current:     reg.CurrentNode,
		Total:       reg.Nodes.Len(),
		Passed:      reg.CountByStatus(models.StatusPassed),
		Failed:      reg.CountByStatus(models.StatusFailed),
		Tree:        buildViewerTree(reg, models.RootID),
		Registry:    reg,
		Failures:    failures,
	}
	if d.Total > 0 {
		d.Progress = d.Passed * 100 / d.Total
	}
	return d
}

func buildViewerTree(reg *models.Registry, id string) *ViewerNode {
	n, ok := reg.Node(id)
	if !ok {
		return nil
	}
	vn := &ViewerNode{Node: n, Current: id == reg.CurrentNode}
	for _, child := range n.Children {
		if c := buildViewerTree(reg, child); c != nil {
			vn.Children = append(vn.Children, c)
		}
	}
	return vn
}

// RenderHTML writes the standalone viewer page.
func RenderHTML(w io.Writer, data ViewerData) error {
	var buf bytes.Buffer
	if err := viewerTemplate.Execute(&buf, data); err != nil {
		return fmt.Errorf("render viewer: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
