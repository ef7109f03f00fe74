package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
)

// stubSource is an in-memory Source for coordinator tests.
type stubSource struct {
	name     string
	maxItems int
	result   Result
	err      error
	delay    time.Duration
}

func (s *stubSource) Name() string            { return s.name }
func (s *stubSource) Kind() digest.SourceKind { return digest.KindRankedLink }
func (s *stubSource) MaxItems() int           { return s.maxItems }

func (s *stubSource) Fetch(ctx context.Context) (Result, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return s.result, s.err
}

func TestCoordinatorIsolatesFailures(t *testing.T) {
	ok := &stubSource{
		name:     "Healthy",
		maxItems: 5,
		result: Result{Articles: []digest.Article{
			{ID: "a", Title: "A", SourceName: "Healthy"},
		}},
	}
	bad := &stubSource{
		name: "Broken",
		err:  &FetchError{Kind: FailureNetwork, Err: errors.New("connection refused")},
	}

	c := NewCoordinator(time.Second)
	fr := c.Fetch(context.Background(), []Source{ok, bad})

	if len(fr.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(fr.Results))
	}
	if len(fr.Results[0].Articles) != 1 {
		t.Errorf("expected healthy source's articles, got %d", len(fr.Results[0].Articles))
	}
	if fr.Results[1].Err == nil {
		t.Fatal("expected failure recorded for broken source")
	}
	if len(fr.Failures) != 1 {
		t.Fatalf("expected exactly one failure, got %d", len(fr.Failures))
	}
	if fr.Failures[0].Source != "Broken" || fr.Failures[0].Kind != FailureNetwork {
		t.Errorf("unexpected failure entry: %+v", fr.Failures[0])
	}
}

func TestCoordinatorTimesOutSlowAdapter(t *testing.T) {
	slow := &stubSource{name: "Slow", delay: 2 * time.Second}
	fast := &stubSource{
		name:   "Fast",
		result: Result{Articles: []digest.Article{{ID: "f", Title: "F"}}},
	}

	c := NewCoordinator(50 * time.Millisecond)
	start := time.Now()
	fr := c.Fetch(context.Background(), []Source{slow, fast})

	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("coordinator blocked on slow adapter: %v", elapsed)
	}
	if fr.Results[0].Err == nil || fr.Results[0].Err.Kind != FailureTimeout {
		t.Errorf("expected timeout classification, got %+v", fr.Results[0].Err)
	}
	if len(fr.Results[1].Articles) != 1 {
		t.Error("fast source should be unaffected by slow one")
	}
}

func TestCoordinatorNormalizesArticles(t *testing.T) {
	neg := -5
	src := &stubSource{
		name:     "S",
		maxItems: 5,
		result: Result{Articles: []digest.Article{
			{ID: "x", Title: "", CommentsURL: "https://e.com/d", Score: &neg},
		}},
	}

	c := NewCoordinator(time.Second)
	fr := c.Fetch(context.Background(), []Source{src})

	a := fr.Results[0].Articles[0]
	if a.Title != digest.Untitled {
		t.Errorf("expected placeholder title, got %q", a.Title)
	}
	if a.URL != "https://e.com/d" {
		t.Errorf("expected discussion URL substituted, got %q", a.URL)
	}
	if *a.Score != 0 {
		t.Errorf("expected clamped score, got %d", *a.Score)
	}
}

func TestCoordinatorForwardsPartialFailures(t *testing.T) {
	src := &stubSource{
		name: "RSS Feeds",
		result: Result{
			Articles: []digest.Article{{ID: "a", Title: "A"}},
			Partial:  []Failure{{Source: "Dead Feed", Kind: FailureTimeout, Message: "deadline"}},
		},
	}

	c := NewCoordinator(time.Second)
	fr := c.Fetch(context.Background(), []Source{src})

	if len(fr.Failures) != 1 {
		t.Fatalf("expected 1 forwarded failure, got %d", len(fr.Failures))
	}
	if fr.Failures[0].Source != "Dead Feed" {
		t.Errorf("expected partial failure keyed by feed name, got %q", fr.Failures[0].Source)
	}
}
