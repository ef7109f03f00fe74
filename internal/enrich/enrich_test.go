package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>A real article</title></head>
<body>
<article>
<h1>A real article</h1>
<p>%s</p>
</article>
</body>
</html>`

func longParagraph() string {
	return strings.Repeat("This sentence pads the article body so extraction succeeds. ", 10)
}

func singleArticleDigest(url string) *digest.Digest {
	return &digest.Digest{Sections: []digest.Section{
		{Title: "S", Articles: []digest.Article{{ID: "a", Title: "A", URL: url}}},
	}}
}

func TestEnrichDigestFillsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, articlePage, longParagraph())
	}))
	t.Cleanup(srv.Close)

	d := singleArticleDigest(srv.URL + "/post")
	res := New(5 * time.Second).EnrichDigest(context.Background(), d)

	if res.Fetched != 1 {
		t.Fatalf("expected 1 fetched, got %+v", res)
	}
	if !strings.Contains(d.Sections[0].Articles[0].Content, "pads the article body") {
		t.Error("expected extracted text in article content")
	}
}

func TestEnrichSkipsListedDomains(t *testing.T) {
	d := singleArticleDigest("https://github.com/some/repo")
	res := New(time.Second).EnrichDigest(context.Background(), d)
	if res.Skipped != 1 || res.Fetched != 0 {
		t.Errorf("expected skip for listed domain, got %+v", res)
	}
}

func TestEnrichCountsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	d := singleArticleDigest(srv.URL + "/post")
	res := New(time.Second).EnrichDigest(context.Background(), d)
	if res.Failed != 1 {
		t.Errorf("expected 1 failure, got %+v", res)
	}
	if d.Sections[0].Articles[0].Content != "" {
		t.Error("failed fetch must not set content")
	}
}

func TestEnrichTruncatedBodyIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Advertise more bytes than we send; the client sees the
		// connection die mid-body.
		w.Header().Set("Content-Length", "100000")
		fmt.Fprint(w, "<html><body><p>partial")
	}))
	t.Cleanup(srv.Close)

	d := &digest.Digest{Sections: []digest.Section{
		{Title: "S", Articles: []digest.Article{
			{ID: "a", Title: "A", URL: srv.URL + "/one"},
			{ID: "b", Title: "B", URL: srv.URL + "/two"},
		}},
	}}
	res := New(5 * time.Second).EnrichDigest(context.Background(), d)

	// The read error is a failure, and it marks the domain so the second
	// article is skipped instead of retried.
	if res.Failed+res.Skipped != 2 || res.Failed == 0 {
		t.Errorf("expected truncated body to fail and short-circuit the domain, got %+v", res)
	}
	if res.Fetched != 0 {
		t.Errorf("expected no content fetched, got %+v", res)
	}
	for _, a := range d.Sections[0].Articles {
		if a.Content != "" {
			t.Errorf("truncated fetch must not set content on %s", a.ID)
		}
	}
}

func TestEnrichLeavesExistingContent(t *testing.T) {
	d := &digest.Digest{Sections: []digest.Section{
		{Title: "S", Articles: []digest.Article{{ID: "a", Title: "A", URL: "https://e.com/x", Content: "already here"}}},
	}}
	res := New(time.Second).EnrichDigest(context.Background(), d)
	if res.Fetched != 0 || res.Failed != 0 {
		t.Errorf("expected no work, got %+v", res)
	}
	if d.Sections[0].Articles[0].Content != "already here" {
		t.Error("existing content must be preserved")
	}
}
