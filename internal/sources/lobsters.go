package sources

import (
	"context"
	"net/http"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
)

const lobstersBaseURL = "https://lobste.rs"

// Lobsters fetches the hottest stories from the lobste.rs JSON API.
type Lobsters struct {
	baseURL  string
	client   *http.Client
	maxItems int
}

// NewLobsters creates the link-aggregator adapter.
func NewLobsters(maxItems int) *Lobsters {
	return &Lobsters{
		baseURL:  lobstersBaseURL,
		client:   newHTTPClient(),
		maxItems: maxItems,
	}
}

func (l *Lobsters) Name() string            { return "Lobsters" }
func (l *Lobsters) Kind() digest.SourceKind { return digest.KindLinkAggregator }
func (l *Lobsters) MaxItems() int           { return l.maxItems }

type lobstersStory struct {
	ShortID      string   `json:"short_id"`
	ShortIDURL   string   `json:"short_id_url"`
	Title        string   `json:"title"`
	URL          string   `json:"url"`
	Score        int      `json:"score"`
	CommentCount int      `json:"comment_count"`
	CreatedAt    string   `json:"created_at"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags"`
}

// Fetch pulls /hottest.json, already ranked by the provider.
func (l *Lobsters) Fetch(ctx context.Context) (Result, error) {
	var stories []lobstersStory
	if err := getJSON(ctx, l.client, l.baseURL+"/hottest.json", &stories); err != nil {
		return Result{}, err
	}

	if len(stories) > l.maxItems {
		stories = stories[:l.maxItems]
	}

	articles := make([]digest.Article, 0, len(stories))
	for _, s := range stories {
		// The discussion page stands in for text posts without a link.
		url := s.URL
		if url == "" {
			url = s.ShortIDURL
		}

		score := s.Score
		comments := s.CommentCount
		var published *time.Time
		if t, err := time.Parse(time.RFC3339, s.CreatedAt); err == nil {
			published = &t
		}

		articles = append(articles, digest.Article{
			ID:           "lobsters-" + s.ShortID,
			Title:        s.Title,
			URL:          url,
			SourceName:   l.Name(),
			SourceKind:   l.Kind(),
			Score:        &score,
			CommentCount: &comments,
			CommentsURL:  s.ShortIDURL,
			Published:    published,
			Summary:      htmlToText(s.Description),
			Tags:         s.Tags,
		})
	}
	return Result{Articles: articles}, nil
}
