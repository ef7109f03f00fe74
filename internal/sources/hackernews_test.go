package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/morningbyte/morningbyte/internal/digest"
)

func fakeHNServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[1, 2, 3, 4]`)
	})
	mux.HandleFunc("/item/1.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":1,"type":"story","title":"Linked story","url":"https://example.com/one","by":"alice","score":120,"descendants":42,"time":1756160000}`)
	})
	mux.HandleFunc("/item/2.json", func(w http.ResponseWriter, r *http.Request) {
		// Ask HN style self post: no url field.
		fmt.Fprint(w, `{"id":2,"type":"story","title":"Ask HN: Anyone?","by":"bob","score":300,"descendants":10,"time":1756160100,"text":"<p>Some question</p>"}`)
	})
	mux.HandleFunc("/item/3.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id":3,"type":"job","title":"Hiring","score":1,"time":1756160200}`)
	})
	mux.HandleFunc("/item/4.json", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `null`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHackerNewsFetch(t *testing.T) {
	srv := fakeHNServer(t)
	hn := NewHackerNews(4)
	hn.baseURL = srv.URL

	res, err := hn.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Job posting and null item are skipped.
	if len(res.Articles) != 2 {
		t.Fatalf("expected 2 articles, got %d", len(res.Articles))
	}

	// Sorted by score descending.
	if res.Articles[0].ID != "hn-2" {
		t.Errorf("expected hn-2 first (score 300), got %s", res.Articles[0].ID)
	}

	ask := res.Articles[0]
	if ask.URL != "https://news.ycombinator.com/item?id=2" {
		t.Errorf("expected self post to fall back to discussion URL, got %q", ask.URL)
	}
	if ask.Summary != "Some question" {
		t.Errorf("expected HTML-stripped summary, got %q", ask.Summary)
	}

	linked := res.Articles[1]
	if linked.URL != "https://example.com/one" {
		t.Errorf("expected external URL, got %q", linked.URL)
	}
	if linked.CommentsURL != "https://news.ycombinator.com/item?id=1" {
		t.Errorf("unexpected comments URL %q", linked.CommentsURL)
	}
	if *linked.Score != 120 || *linked.CommentCount != 42 {
		t.Error("score/comment mapping wrong")
	}
	if linked.SourceKind != digest.KindRankedLink {
		t.Errorf("unexpected kind %s", linked.SourceKind)
	}
}

func TestHackerNewsListingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	hn := NewHackerNews(5)
	hn.baseURL = srv.URL

	_, err := hn.Fetch(context.Background())
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Kind != FailureNetwork {
		t.Errorf("expected network failure, got %s", fe.Kind)
	}
}

func TestHackerNewsRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	hn := NewHackerNews(5)
	hn.baseURL = srv.URL

	_, err := hn.Fetch(context.Background())
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Kind != FailureRateLimited {
		t.Errorf("expected rate_limited, got %s", fe.Kind)
	}
}

func TestHackerNewsMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{not json`)
	}))
	t.Cleanup(srv.Close)

	hn := NewHackerNews(5)
	hn.baseURL = srv.URL

	_, err := hn.Fetch(context.Background())
	fe, ok := err.(*FetchError)
	if !ok {
		t.Fatalf("expected *FetchError, got %T", err)
	}
	if fe.Kind != FailureMalformed {
		t.Errorf("expected malformed, got %s", fe.Kind)
	}
}
