package sources

import (
	"context"
	"encoding/xml"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/morningbyte/morningbyte/internal/digest"
)

// maxPerFeed bounds how many entries a single feed contributes to the merge.
const maxPerFeed = 10

// FeedSpec is one configured RSS/Atom endpoint.
type FeedSpec struct {
	URL  string
	Name string
}

// Feeds is the generic-feed adapter: one instance handles N independently
// configured feed endpoints. A failing endpoint never fails the others; it
// is reported as a partial failure keyed by the feed's name.
type Feeds struct {
	feeds    []FeedSpec
	maxItems int
}

// NewFeeds creates the generic-feed adapter.
func NewFeeds(feeds []FeedSpec, maxItems int) *Feeds {
	return &Feeds{feeds: feeds, maxItems: maxItems}
}

func (f *Feeds) Name() string            { return "RSS Feeds" }
func (f *Feeds) Kind() digest.SourceKind { return digest.KindGenericFeed }
func (f *Feeds) MaxItems() int           { return f.maxItems }

type feedResult struct {
	articles []digest.Article
	failure  *Failure
}

// Fetch parses all feeds concurrently, merges the survivors newest-first
// and caps to the adapter limit. Endpoint failures land in Result.Partial.
func (f *Feeds) Fetch(ctx context.Context) (Result, error) {
	results := make([]feedResult, len(f.feeds))
	var wg sync.WaitGroup
	for i, spec := range f.feeds {
		wg.Add(1)
		go func(i int, spec FeedSpec) {
			defer wg.Done()
			results[i] = f.fetchFeed(ctx, spec)
		}(i, spec)
	}
	wg.Wait()

	var out Result
	seen := make(map[string]struct{})
	for _, r := range results {
		if r.failure != nil {
			out.Partial = append(out.Partial, *r.failure)
			continue
		}
		for _, a := range r.articles {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			out.Articles = append(out.Articles, a)
		}
	}

	sort.SliceStable(out.Articles, func(i, j int) bool {
		pi, pj := out.Articles[i].Published, out.Articles[j].Published
		if pi == nil || pj == nil {
			return pi != nil
		}
		return pi.After(*pj)
	})
	if len(out.Articles) > f.maxItems {
		out.Articles = out.Articles[:f.maxItems]
	}
	return out, nil
}

func (f *Feeds) fetchFeed(ctx context.Context, spec FeedSpec) feedResult {
	name := spec.Name
	if name == "" {
		name = feedNameFromURL(spec.URL)
	}

	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	feed, err := parser.ParseURLWithContext(spec.URL, ctx)
	if err != nil {
		fe := classifyFeedError(err)
		return feedResult{failure: &Failure{Source: name, Kind: fe.Kind, Message: fe.Err.Error()}}
	}

	var articles []digest.Article
	for _, item := range feed.Items {
		if len(articles) >= maxPerFeed {
			break
		}
		a := feedItemToArticle(item, name)
		if a == nil {
			continue
		}
		articles = append(articles, *a)
	}
	return feedResult{articles: articles}
}

func feedItemToArticle(item *gofeed.Item, source string) *digest.Article {
	link := item.Link
	if link == "" {
		link = item.GUID
	}
	if link == "" {
		return nil
	}

	id := item.GUID
	if id == "" {
		id = link
	}

	var published *time.Time
	if item.PublishedParsed != nil {
		published = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed
	}

	summary := item.Description
	if summary == "" && item.Content != "" {
		summary = item.Content
	}

	return &digest.Article{
		ID:         "feed-" + id,
		Title:      item.Title,
		URL:        link,
		SourceName: source,
		SourceKind: digest.KindGenericFeed,
		Published:  published,
		Summary:    htmlToText(summary),
		Tags:       item.Categories,
	}
}

// classifyFeedError maps gofeed errors onto the failure taxonomy; parse
// errors on a fetched body count as malformed responses.
func classifyFeedError(err error) *FetchError {
	var he gofeed.HTTPError
	if errors.As(err, &he) {
		if he.StatusCode == http.StatusTooManyRequests {
			return &FetchError{Kind: FailureRateLimited, Err: err}
		}
		return &FetchError{Kind: FailureNetwork, Err: err}
	}
	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
		return &FetchError{Kind: FailureMalformed, Err: err}
	}
	var se *xml.SyntaxError
	if errors.As(err, &se) {
		return &FetchError{Kind: FailureMalformed, Err: err}
	}
	return classify(err)
}

// feedNameFromURL derives a display label from the feed's host when the
// configuration gave none.
func feedNameFromURL(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())
	for _, prefix := range []string{"www.", "blog.", "blogs.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}
	parts := strings.Split(host, ".")
	if len(parts) >= 2 {
		host = parts[len(parts)-2]
	}
	return strings.ToUpper(host[:1]) + host[1:]
}
