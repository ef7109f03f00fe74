package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
)

const devtoBaseURL = "https://dev.to"

// perTagLimit over-fetches per tag so the merged set has slack for
// cross-tag duplicates.
const perTagLimit = 10

// DevTo fetches top articles from the Dev.to (Forem) public API, either
// for a set of tags or site-wide when no tags are configured.
type DevTo struct {
	baseURL  string
	client   *http.Client
	tags     []string
	maxItems int
}

// NewDevTo creates the tag-feed adapter.
func NewDevTo(tags []string, maxItems int) *DevTo {
	return &DevTo{
		baseURL:  devtoBaseURL,
		client:   newHTTPClient(),
		tags:     tags,
		maxItems: maxItems,
	}
}

func (d *DevTo) Name() string            { return "Dev.to" }
func (d *DevTo) Kind() digest.SourceKind { return digest.KindTagFeed }
func (d *DevTo) MaxItems() int           { return d.maxItems }

type devtoArticle struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	URL            string   `json:"url"`
	Description    string   `json:"description"`
	Reactions      int      `json:"positive_reactions_count"`
	CommentsCount  int      `json:"comments_count"`
	PublishedAtStr string   `json:"published_at"`
	TagList        []string `json:"tag_list"`
}

// Fetch merges the top articles across all configured tags, dedups by id,
// sorts by reactions and applies the adapter-level cap.
func (d *DevTo) Fetch(ctx context.Context) (Result, error) {
	queries := []string{fmt.Sprintf("per_page=%d&top=1", d.maxItems)}
	if len(d.tags) > 0 {
		queries = queries[:0]
		for _, tag := range d.tags {
			queries = append(queries, fmt.Sprintf("tag=%s&per_page=%d&top=1", url.QueryEscape(tag), perTagLimit))
		}
	}

	var merged []digest.Article
	seen := make(map[string]struct{})
	for _, q := range queries {
		var items []devtoArticle
		if err := getJSON(ctx, d.client, d.baseURL+"/api/articles?"+q, &items); err != nil {
			return Result{}, err
		}
		for _, item := range items {
			a := d.toArticle(item)
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			merged = append(merged, a)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return *merged[i].Score > *merged[j].Score
	})
	if len(merged) > d.maxItems {
		merged = merged[:d.maxItems]
	}
	return Result{Articles: merged}, nil
}

func (d *DevTo) toArticle(item devtoArticle) digest.Article {
	score := item.Reactions
	comments := item.CommentsCount
	var published *time.Time
	if t, err := time.Parse(time.RFC3339, item.PublishedAtStr); err == nil {
		published = &t
	}

	return digest.Article{
		ID:           fmt.Sprintf("devto-%d", item.ID),
		Title:        item.Title,
		URL:          item.URL,
		SourceName:   d.Name(),
		SourceKind:   d.Kind(),
		Score:        &score,
		CommentCount: &comments,
		CommentsURL:  item.URL + "#comments",
		Published:    published,
		Summary:      item.Description,
		Tags:         item.TagList,
	}
}
