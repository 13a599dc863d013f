package portal

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/chulminlee01/mrt-tech-test/internal/types"
	"github.com/yuin/goldmark"
)

//go:embed templates/index.html.tmpl templates/styles.css
var templateFS embed.FS

// StepName identifies this step in errors and artifacts
const StepName = "portal"

// Output file names inside a run output directory
const (
	IndexFile      = "index.html"
	StylesheetFile = "styles.css"
)

// Options controls portal rendering
type Options struct {
	// LanguageCode selects the UI strings (see types.LanguageCode)
	LanguageCode string
	// Stylesheet is a relative href to link instead of inlining the built-in CSS
	Stylesheet string
	// SiteTitle replaces the default "<company> <localized portal title>" heading
	SiteTitle string
}

// Builder renders index.html. Rendering is deterministic and makes no model calls.
type Builder struct {
	tmpl   *template.Template
	md     goldmark.Markdown
	logger *slog.Logger
}

// NewBuilder parses the embedded template
func NewBuilder(logger *slog.Logger) (*Builder, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	tmpl, err := template.ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse portal template", Cause: err}
	}
	return &Builder{tmpl: tmpl, md: goldmark.New(), logger: logger}, nil
}

// DefaultCSS returns the built-in stylesheet
func DefaultCSS() string {
	data, err := templateFS.ReadFile("templates/styles.css")
	if err != nil {
		panic(fmt.Sprintf("embedded stylesheet missing: %v", err))
	}
	return string(data)
}

type download struct {
	Label string
	Href  string
}

type assignmentView struct {
	types.AssignmentRecord
	Anchor    string
	Downloads []download
}

type pageData struct {
	Title       string
	Lang        string
	Company     string
	Role        string
	Level       string
	Labels      Labels
	Research    template.HTML
	Assignments []assignmentView
	Stylesheet  string
	InlineCSS   template.CSS
}

// Build writes outputDir/index.html and returns its path. research may be nil.
func (b *Builder) Build(set *types.AssignmentSet, research *types.ResearchReport, outputDir string, opts Options) (string, error) {
	if set == nil {
		return "", &RenderError{Message: "no assignments to render"}
	}

	html, err := b.Render(set, research, opts)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", &RenderError{Message: "failed to create output directory", Cause: err}
	}
	outPath := filepath.Join(outputDir, IndexFile)
	if err := os.WriteFile(outPath, html, 0644); err != nil {
		return "", &RenderError{Message: "failed to write " + IndexFile, Cause: err}
	}
	b.logger.Info("portal written", "path", outPath, "assignments", len(set.Assignments), "stylesheet", opts.Stylesheet != "")
	return outPath, nil
}

// Render returns the page bytes without writing them
func (b *Builder) Render(set *types.AssignmentSet, research *types.ResearchReport, opts Options) ([]byte, error) {
	data, err := b.pageData(set, research, opts)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := b.tmpl.Execute(&buf, data); err != nil {
		return nil, &TemplateError{Message: "failed to execute portal template", Cause: err}
	}
	return buf.Bytes(), nil
}

func (b *Builder) pageData(set *types.AssignmentSet, research *types.ResearchReport, opts Options) (*pageData, error) {
	lang := opts.LanguageCode
	if lang == "" {
		lang = types.LangEnglish
	}
	labels := LabelsFor(lang)

	title := strings.TrimSpace(opts.SiteTitle)
	if title == "" {
		title = strings.TrimSpace(set.Company + " " + labels.PageTitle)
	}

	data := &pageData{
		Title:      title,
		Lang:       lang,
		Company:    set.Company,
		Role:       set.JobRole,
		Level:      set.JobLevel,
		Labels:     labels,
		Stylesheet: opts.Stylesheet,
	}
	if opts.Stylesheet == "" {
		data.InlineCSS = template.CSS(DefaultCSS())
	}

	if research != nil && strings.TrimSpace(research.Text) != "" {
		var buf bytes.Buffer
		if err := b.md.Convert([]byte(research.Text), &buf); err != nil {
			return nil, &RenderError{Message: "failed to render research summary", Cause: err}
		}
		// goldmark drops raw HTML unless WithUnsafe is set
		data.Research = template.HTML(buf.String())
	}

	for _, a := range set.Assignments {
		view := assignmentView{AssignmentRecord: a, Anchor: anchorFor(a.ID)}
		for _, ds := range a.Datasets {
			if ds.Path == "" {
				continue
			}
			view.Downloads = append(view.Downloads, download{
				Label: fmt.Sprintf("%s: %s", labels.Dataset, path.Base(ds.Path)),
				Href:  ds.Path,
			})
		}
		if a.StarterCode.Path != "" {
			view.Downloads = append(view.Downloads, download{
				Label: fmt.Sprintf("%s: %s", labels.StarterCode, path.Base(a.StarterCode.Path)),
				Href:  a.StarterCode.Path,
			})
		}
		data.Assignments = append(data.Assignments, view)
	}
	return data, nil
}

func anchorFor(id string) string {
	var sb strings.Builder
	sb.WriteString("assignment-")
	for _, r := range strings.ToLower(id) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
