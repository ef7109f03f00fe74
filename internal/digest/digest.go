// Package digest holds the normalized article model shared by every
// source adapter, plus the section/digest structures the renderer consumes.
package digest

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"
)

// SourceKind identifies the protocol family a source speaks.
type SourceKind string

const (
	KindRankedLink     SourceKind = "ranked_link"
	KindSubreddit      SourceKind = "subreddit"
	KindLinkAggregator SourceKind = "link_aggregator"
	KindTagFeed        SourceKind = "tag_feed"
	KindGenericFeed    SourceKind = "generic_feed"
)

// SummaryBudget is the maximum summary length in runes; longer summaries
// are cut and marked with an ellipsis.
const SummaryBudget = 500

// Untitled is substituted for articles whose provider returned no title.
const Untitled = "(untitled)"

// Article is one normalized story or post. Produced by a source adapter,
// consumed by the aggregator and the renderer; treated as immutable after
// Normalize except for optional content enrichment.
type Article struct {
	// ID is a stable, source-scoped identity (provider prefix + native id).
	ID    string
	Title string
	// URL links the content itself; for self posts it carries the
	// discussion link instead.
	URL        string
	SourceName string
	SourceKind SourceKind
	// Score and CommentCount are nil when the provider has no such signal.
	Score        *int
	CommentCount *int
	CommentsURL  string
	Published    *time.Time
	Summary      string
	// Content optionally carries long-form body text (markdown or plain
	// text) for the rendered page; filled by self posts or enrichment.
	Content string
	Tags    []string
}

// Normalize enforces the model invariants on an adapter-produced article:
// non-empty title, non-negative counts, bounded summary, and a usable URL.
func Normalize(a Article) Article {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		a.Title = Untitled
	}
	if a.URL == "" {
		a.URL = a.CommentsURL
	}
	if a.Score != nil && *a.Score < 0 {
		zero := 0
		a.Score = &zero
	}
	if a.CommentCount != nil && *a.CommentCount < 0 {
		zero := 0
		a.CommentCount = &zero
	}
	a.Summary = TruncateSummary(strings.TrimSpace(a.Summary))
	return a
}

// TruncateSummary cuts s to the summary budget, appending an ellipsis
// marker when anything was dropped.
func TruncateSummary(s string) string {
	if utf8.RuneCountInString(s) <= SummaryBudget {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:SummaryBudget-3])) + "..."
}

// Domain returns the URL's host with a leading www. stripped, for display
// next to the title. Empty when the URL does not parse.
func (a Article) Domain() string {
	u, err := url.Parse(a.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// Section groups one source's articles in the final document.
type Section struct {
	Title    string
	Articles []Article
}

// Digest is the full aggregated, ordered collection of sections for one run.
type Digest struct {
	Title    string
	Subtitle string
	Date     time.Time
	Sections []Section
}

// TotalArticles counts articles across all sections.
func (d *Digest) TotalArticles() int {
	var n int
	for _, s := range d.Sections {
		n += len(s.Articles)
	}
	return n
}

// SourceNames returns the distinct article source labels, in first-seen order.
func (d *Digest) SourceNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range d.Sections {
		for _, a := range s.Articles {
			if _, ok := seen[a.SourceName]; ok {
				continue
			}
			seen[a.SourceName] = struct{}{}
			names = append(names, a.SourceName)
		}
	}
	return names
}
