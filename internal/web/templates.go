package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/template/html/v2"

	"bookreview/internal/models"
)

//go:embed templates
var templateFS embed.FS

// NewEngine creates the HTML view engine over the embedded templates.
// mediaURL prefixes stored thumbnail paths.
func NewEngine(mediaURL string) *html.Engine {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		panic(fmt.Sprintf("templates: %v", err))
	}

	media := func(path string) string {
		return strings.TrimRight(mediaURL, "/") + "/" + strings.TrimLeft(path, "/")
	}

	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFuncMap(template.FuncMap{
		"media":    media,
		"stars":    stars,
		"rank":     func(offset, i int) int { return offset + i + 1 },
		"rating":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
		"date":     func(t time.Time) string { return t.Format("2006-01-02 15:04") },
		"rates":    models.RateChoices,
		"choices":  models.Categories,
		"derefInt": derefInt,
	})
	return engine
}

// stars renders a rating as filled and empty stars.
func stars(rate int) string {
	if rate < 0 {
		rate = 0
	}
	if rate > models.MaxRate {
		rate = models.MaxRate
	}
	return strings.Repeat("★", rate) + strings.Repeat("☆", models.MaxRate-rate)
}

// derefInt returns *p, or -1 for nil so no select option matches.
func derefInt(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}
