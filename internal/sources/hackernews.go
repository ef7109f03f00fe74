package sources

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
)

const hackerNewsBaseURL = "https://hacker-news.firebaseio.com/v0"

// storyFetchers bounds the per-item fan-out against the HN API.
const storyFetchers = 5

// HackerNews fetches top stories from the official Hacker News API.
// No auth required.
type HackerNews struct {
	baseURL  string
	client   *http.Client
	maxItems int
}

// NewHackerNews creates the ranked-link adapter.
func NewHackerNews(maxItems int) *HackerNews {
	return &HackerNews{
		baseURL:  hackerNewsBaseURL,
		client:   newHTTPClient(),
		maxItems: maxItems,
	}
}

func (h *HackerNews) Name() string            { return "Hacker News" }
func (h *HackerNews) Kind() digest.SourceKind { return digest.KindRankedLink }
func (h *HackerNews) MaxItems() int           { return h.maxItems }

type hnItem struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	By          string `json:"by"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Time        int64  `json:"time"`
	Text        string `json:"text"`
	Dead        bool   `json:"dead"`
	Deleted     bool   `json:"deleted"`
}

// Fetch pulls the top-story ID list, then the story items in parallel.
// Non-story and removed entries are skipped, so the result may come in
// under the cap; the aggregator enforces the final limit anyway.
func (h *HackerNews) Fetch(ctx context.Context) (Result, error) {
	var ids []int64
	if err := getJSON(ctx, h.client, h.baseURL+"/topstories.json", &ids); err != nil {
		return Result{}, err
	}
	if len(ids) > h.maxItems {
		ids = ids[:h.maxItems]
	}

	items := make([]*hnItem, len(ids))
	sem := make(chan struct{}, storyFetchers)
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			var item hnItem
			url := fmt.Sprintf("%s/item/%d.json", h.baseURL, id)
			if err := getJSON(ctx, h.client, url, &item); err != nil {
				log.Printf("hackernews: story %d: %v", id, err)
				return
			}
			items[i] = &item
		}(i, id)
	}
	wg.Wait()

	var articles []digest.Article
	for _, item := range items {
		if item == nil || item.Type != "story" || item.Dead || item.Deleted {
			continue
		}
		articles = append(articles, h.toArticle(item))
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return *articles[i].Score > *articles[j].Score
	})
	return Result{Articles: articles}, nil
}

func (h *HackerNews) toArticle(item *hnItem) digest.Article {
	discussURL := fmt.Sprintf("https://news.ycombinator.com/item?id=%d", item.ID)
	url := item.URL
	if url == "" {
		// Ask HN / Show HN self posts link to the discussion page.
		url = discussURL
	}

	score := item.Score
	comments := item.Descendants
	var published *time.Time
	if item.Time > 0 {
		t := time.Unix(item.Time, 0).UTC()
		published = &t
	}

	return digest.Article{
		ID:           fmt.Sprintf("hn-%d", item.ID),
		Title:        item.Title,
		URL:          url,
		SourceName:   h.Name(),
		SourceKind:   h.Kind(),
		Score:        &score,
		CommentCount: &comments,
		CommentsURL:  discussURL,
		Published:    published,
		Summary:      htmlToText(item.Text),
	}
}
