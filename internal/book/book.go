// Package book assembles the aggregated digest into a single EPUB: cover,
// contents, one chapter per section, one entry per article, closing page.
// Rendering is fully offline; nothing here touches the network.
package book

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	epub "github.com/go-shiori/go-epub"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"

	"github.com/morningbyte/morningbyte/internal/digest"
)

//go:embed styles.css
var stylesCSS []byte

// maxTagsShown bounds the tag row under each article.
const maxTagsShown = 5

// Options are the configuration-driven rendering flags.
type Options struct {
	IncludeScores         bool
	IncludeCommentsLink   bool
	MaxArticlesPerSection int
}

// Builder renders digests into EPUB files.
type Builder struct {
	opts Options
	md   goldmark.Markdown
}

// NewBuilder creates a Builder.
func NewBuilder(opts Options) *Builder {
	return &Builder{opts: opts, md: goldmark.New()}
}

var coverTmpl = template.Must(template.New("cover").Parse(`<div class="cover">
  <h1>{{.Title}}</h1>
  {{if .Subtitle}}<p class="subtitle">{{.Subtitle}}</p>{{end}}
  <p class="date">{{.Date}}</p>
  <p class="stats">{{.TotalArticles}} articles from {{.NumSources}} sources</p>
</div>`))

var contentsTmpl = template.Must(template.New("contents").Parse(`<div class="toc">
  <h2>Today&#39;s Digest</h2>
  <ul>
  {{range .Entries}}
    <li><a href="{{.File}}">{{.Title}}</a> <span class="count">({{.Count}} articles)</span></li>
  {{end}}
  </ul>
</div>`))

var sectionTmpl = template.Must(template.New("section").Parse(`<div class="section">
  <h2>{{.Title}}</h2>
  {{if not .Articles}}
  <p class="empty-section">No items today.</p>
  {{end}}
  {{range .Articles}}
  <div class="article">
    <h3 class="article-title"><a href="{{.URL}}">{{.Title}}</a></h3>
    <p class="article-meta">
      <span class="source">{{.Source}}</span>
      {{- if .ShowScore}} &#183; <span class="score">&#9650; {{.Score}}</span>{{end}}
      {{- if .ShowComments}} &#183; <a href="{{.CommentsURL}}" class="comments">{{.Comments}} comments</a>{{end}}
    </p>
    {{if .Domain}}<p class="article-domain">({{.Domain}})</p>{{end}}
    {{if .Summary}}<p class="article-summary">{{.Summary}}</p>{{end}}
    {{if .Content}}<div class="article-content">{{.Content}}</div>{{end}}
    {{if .Tags}}
    <div class="tags">
      {{range .Tags}}<span class="tag">{{.}}</span>{{end}}
    </div>
    {{end}}
  </div>
  {{end}}
</div>`))

var closingTmpl = template.Must(template.New("closing").Parse(`<div class="closing">
  <p>That&#39;s all for today.</p>
  <p>Generated by morningbyte on {{.Date}}.</p>
</div>`))

type articleView struct {
	Title        string
	URL          string
	Domain       string
	Source       string
	Score        int
	ShowScore    bool
	Comments     int
	CommentsURL  string
	ShowComments bool
	Summary      string
	Content      template.HTML
	Tags         []string
}

// Write renders the digest into an EPUB at outPath.
func (b *Builder) Write(d *digest.Digest, outPath string) error {
	e, err := epub.NewEpub(fmt.Sprintf("%s - %s", d.Title, d.Date.Format("January 2, 2006")))
	if err != nil {
		return fmt.Errorf("creating epub: %w", err)
	}
	e.SetAuthor("Morning Byte")
	e.SetLang("en")
	e.SetIdentifier("urn:uuid:" + uuid.NewString())
	if d.Subtitle != "" {
		e.SetDescription(d.Subtitle)
	}

	cssPath, cleanup, err := addStylesheet(e)
	if err != nil {
		return err
	}
	defer cleanup()

	cover, err := renderTemplate(coverTmpl, map[string]any{
		"Title":         d.Title,
		"Subtitle":      d.Subtitle,
		"Date":          d.Date.Format("Monday, January 2, 2006"),
		"TotalArticles": d.TotalArticles(),
		"NumSources":    len(d.SourceNames()),
	})
	if err != nil {
		return err
	}
	if _, err := e.AddSection(cover, "Cover", "cover.xhtml", cssPath); err != nil {
		return fmt.Errorf("adding cover: %w", err)
	}

	contents, err := renderTemplate(contentsTmpl, b.contentsData(d))
	if err != nil {
		return err
	}
	if _, err := e.AddSection(contents, "Contents", "contents.xhtml", cssPath); err != nil {
		return fmt.Errorf("adding contents: %w", err)
	}

	for i, sec := range d.Sections {
		body, err := b.sectionHTML(sec)
		if err != nil {
			return err
		}
		if _, err := e.AddSection(body, sec.Title, sectionFile(i), cssPath); err != nil {
			return fmt.Errorf("adding section %q: %w", sec.Title, err)
		}
	}

	closing, err := renderTemplate(closingTmpl, map[string]any{
		"Date": d.Date.Format("January 2, 2006"),
	})
	if err != nil {
		return err
	}
	if _, err := e.AddSection(closing, "The End", "closing.xhtml", cssPath); err != nil {
		return fmt.Errorf("adding closing page: %w", err)
	}

	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := e.Write(outPath); err != nil {
		return fmt.Errorf("writing epub: %w", err)
	}
	return nil
}

type contentsEntry struct {
	Title string
	File  string
	Count int
}

// contentsData lists the non-empty sections with their page anchors.
func (b *Builder) contentsData(d *digest.Digest) map[string]any {
	var entries []contentsEntry
	for i, sec := range d.Sections {
		if len(sec.Articles) == 0 {
			continue
		}
		count := len(sec.Articles)
		if b.opts.MaxArticlesPerSection > 0 && count > b.opts.MaxArticlesPerSection {
			count = b.opts.MaxArticlesPerSection
		}
		entries = append(entries, contentsEntry{Title: sec.Title, File: sectionFile(i), Count: count})
	}
	return map[string]any{"Entries": entries}
}

// sectionHTML renders one section chapter body.
func (b *Builder) sectionHTML(sec digest.Section) (string, error) {
	articles := sec.Articles
	if b.opts.MaxArticlesPerSection > 0 && len(articles) > b.opts.MaxArticlesPerSection {
		articles = articles[:b.opts.MaxArticlesPerSection]
	}

	views := make([]articleView, 0, len(articles))
	for _, a := range articles {
		views = append(views, b.articleView(a))
	}
	return renderTemplate(sectionTmpl, map[string]any{
		"Title":    sec.Title,
		"Articles": views,
	})
}

func (b *Builder) articleView(a digest.Article) articleView {
	v := articleView{
		Title:   a.Title,
		URL:     a.URL,
		Domain:  a.Domain(),
		Source:  a.SourceName,
		Summary: a.Summary,
	}

	// A missing score means no badge at all, never a zero placeholder.
	if b.opts.IncludeScores && a.Score != nil && *a.Score > 0 {
		v.Score = *a.Score
		v.ShowScore = true
	}
	if b.opts.IncludeCommentsLink && a.CommentCount != nil && *a.CommentCount > 0 && a.CommentsURL != "" {
		v.Comments = *a.CommentCount
		v.CommentsURL = a.CommentsURL
		v.ShowComments = true
	}

	if a.Content != "" && a.Content != a.Summary {
		v.Content = b.markdownHTML(a.Content)
	}

	tags := a.Tags
	if len(tags) > maxTagsShown {
		tags = tags[:maxTagsShown]
	}
	v.Tags = tags
	return v
}

// markdownHTML converts markdown or plain text into safe HTML; goldmark
// escapes raw HTML by default. Falls back to an escaped paragraph when
// conversion fails.
func (b *Builder) markdownHTML(src string) template.HTML {
	var buf bytes.Buffer
	if err := b.md.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}

// addStylesheet registers the embedded CSS with the epub through a temp
// file, since the library takes a source path.
func addStylesheet(e *epub.Epub) (string, func(), error) {
	f, err := os.CreateTemp("", "morningbyte-*.css")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp stylesheet: %w", err)
	}
	if _, err := f.Write(stylesCSS); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("writing temp stylesheet: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("closing temp stylesheet: %w", err)
	}

	cssPath, err := e.AddCSS(f.Name(), "styles.css")
	if err != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("adding stylesheet: %w", err)
	}
	return cssPath, func() { os.Remove(f.Name()) }, nil
}

func sectionFile(i int) string {
	return fmt.Sprintf("section-%04d.xhtml", i+1)
}

func renderTemplate(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}
