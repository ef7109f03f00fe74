package sources

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
)

const redditBaseURL = "https://www.reddit.com"

// Reddit fetches hot posts from a set of subreddits through the public
// JSON API (append .json, no auth for read-only access).
type Reddit struct {
	baseURL    string
	client     *http.Client
	subreddits []string
	maxItems   int
}

// NewReddit creates the subreddit adapter.
func NewReddit(subreddits []string, maxItems int) *Reddit {
	return &Reddit{
		baseURL:    redditBaseURL,
		client:     newHTTPClient(),
		subreddits: subreddits,
		maxItems:   maxItems,
	}
}

func (r *Reddit) Name() string            { return "Reddit" }
func (r *Reddit) Kind() digest.SourceKind { return digest.KindSubreddit }
func (r *Reddit) MaxItems() int           { return r.maxItems }

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Selftext    string  `json:"selftext"`
	IsSelf      bool    `json:"is_self"`
	Stickied    bool    `json:"stickied"`
}

// Fetch merges hot posts across all configured subreddits, dedups by id,
// then sorts by score and applies the adapter-level cap. The per-subreddit
// limit over-fetches on purpose so skipped stickies don't starve the cap.
func (r *Reddit) Fetch(ctx context.Context) (Result, error) {
	var merged []digest.Article
	seen := make(map[string]struct{})

	for _, sub := range r.subreddits {
		posts, err := r.fetchSubreddit(ctx, sub)
		if err != nil {
			return Result{}, err
		}
		for _, a := range posts {
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
	if len(merged) > r.maxItems {
		merged = merged[:r.maxItems]
	}
	return Result{Articles: merged}, nil
}

func (r *Reddit) fetchSubreddit(ctx context.Context, sub string) ([]digest.Article, error) {
	url := fmt.Sprintf("%s/r/%s/hot.json?limit=25&t=day", r.baseURL, sub)
	var listing redditListing
	if err := getJSON(ctx, r.client, url, &listing); err != nil {
		return nil, err
	}

	var articles []digest.Article
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied {
			continue
		}
		articles = append(articles, r.toArticle(post, sub))
	}
	return articles, nil
}

func (r *Reddit) toArticle(post redditPost, sub string) digest.Article {
	permalink := redditBaseURL + post.Permalink

	// External link posts keep their link; self posts and reddit-internal
	// links point at the discussion page.
	url := post.URL
	if post.IsSelf || url == "" {
		url = permalink
	}

	var summary, content string
	if post.IsSelf && post.Selftext != "" {
		summary = post.Selftext
		content = post.Selftext // markdown, rendered at book-assembly time
	}

	score := post.Score
	comments := post.NumComments
	var published *time.Time
	if post.CreatedUTC > 0 {
		t := time.Unix(int64(post.CreatedUTC), 0).UTC()
		published = &t
	}

	return digest.Article{
		ID:           "reddit-" + post.ID,
		Title:        post.Title,
		URL:          url,
		SourceName:   "r/" + sub,
		SourceKind:   r.Kind(),
		Score:        &score,
		CommentCount: &comments,
		CommentsURL:  permalink,
		Published:    published,
		Summary:      summary,
		Content:      content,
		Tags:         []string{sub},
	}
}
