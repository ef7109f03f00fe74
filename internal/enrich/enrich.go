// Package enrich optionally fetches full article text for the rendered
// pages. Failures are silent downgrades: the article keeps its summary.
package enrich

import (
	"context"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/morningbyte/morningbyte/internal/digest"
)

const userAgent = "morningbyte/1.0 (daily tech digest)"

// maxConcurrent bounds the enrichment fan-out.
const maxConcurrent = 5

// minContentLength rejects extractions that are too short to be the
// actual article body.
const minContentLength = 100

// skipDomains lists hosts that block scrapers, paywall, or whose pages
// carry nothing worth extracting.
var skipDomains = map[string]struct{}{
	"twitter.com":          {},
	"x.com":                {},
	"youtube.com":          {},
	"youtu.be":             {},
	"github.com":           {},
	"reddit.com":           {},
	"news.ycombinator.com": {},
	"lobste.rs":            {},
	"dev.to":               {},
	"medium.com":           {},
	"nytimes.com":          {},
	"wsj.com":              {},
	"bloomberg.com":        {},
	"ft.com":               {},
	"substack.com":         {},
}

// Result holds the counts of an enrichment run.
type Result struct {
	Fetched int
	Skipped int
	Failed  int
}

// Enricher fetches article pages and extracts readable text.
type Enricher struct {
	client *http.Client

	mu            sync.Mutex
	failedDomains map[string]struct{}
}

// New creates an enricher with the given per-request timeout.
func New(timeout time.Duration) *Enricher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Enricher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
		failedDomains: make(map[string]struct{}),
	}
}

// EnrichDigest fills Content for articles that lack one, with bounded
// concurrency. Articles on skip-listed or already-failed domains are left
// untouched.
func (e *Enricher) EnrichDigest(ctx context.Context, d *digest.Digest) *Result {
	type task struct{ si, ai int }
	var tasks []task
	result := &Result{}

	for si := range d.Sections {
		for ai := range d.Sections[si].Articles {
			a := &d.Sections[si].Articles[ai]
			if a.Content != "" || a.URL == "" {
				continue
			}
			if shouldSkip(a.URL) {
				result.Skipped++
				continue
			}
			tasks = append(tasks, task{si, ai})
		}
	}

	var mu sync.Mutex
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup
	for _, tk := range tasks {
		wg.Add(1)
		go func(tk task) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			a := &d.Sections[tk.si].Articles[tk.ai]
			if e.domainFailed(a.URL) {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return
			}

			content, err := e.fetchContent(ctx, a.URL)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				e.markDomainFailed(a.URL)
				result.Failed++
				return
			}
			if content == "" {
				result.Failed++
				return
			}
			a.Content = content
			result.Fetched++
		}(tk)
	}
	wg.Wait()

	log.Printf("content enrichment: %d fetched, %d skipped, %d failed", result.Fetched, result.Skipped, result.Failed)
	return result
}

// fetchContent downloads the page and extracts its readable text. A nil
// error with empty content means the page had nothing extractable.
func (e *Enricher) fetchContent(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len(text) < minContentLength {
		return "", nil
	}
	return text, nil
}

func (e *Enricher) domainFailed(articleURL string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.failedDomains[domainOf(articleURL)]
	return ok
}

func (e *Enricher) markDomainFailed(articleURL string) {
	d := domainOf(articleURL)
	if d == "" {
		return
	}
	e.mu.Lock()
	e.failedDomains[d] = struct{}{}
	e.mu.Unlock()
}

func shouldSkip(articleURL string) bool {
	_, ok := skipDomains[domainOf(articleURL)]
	return ok
}

func domainOf(articleURL string) string {
	u, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
