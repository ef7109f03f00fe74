package sources

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
)

const defaultAdapterTimeout = 30 * time.Second

// SourceResult is one source's slot in a FetchResult: its articles, or the
// classified reason it produced none. Never both.
type SourceResult struct {
	Name     string
	Kind     digest.SourceKind
	MaxItems int
	Articles []digest.Article
	Err      *FetchError
	Partial  []Failure
}

// FetchResult holds every source's outcome in configured order, plus the
// flattened failure report for this run.
type FetchResult struct {
	Results  []SourceResult
	Failures []Failure
}

// Coordinator fans out over the enabled adapters, one goroutine per source,
// with a per-adapter timeout. One failing source never blocks the others,
// and there is exactly one attempt per adapter per run.
type Coordinator struct {
	timeout time.Duration
}

// NewCoordinator creates a coordinator with the given per-adapter timeout.
func NewCoordinator(timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = defaultAdapterTimeout
	}
	return &Coordinator{timeout: timeout}
}

// Fetch runs all sources concurrently and merges results only after every
// task has finished or timed out. Articles are normalized here, the single
// choke point between adapters and the rest of the pipeline.
func (c *Coordinator) Fetch(ctx context.Context, srcs []Source) *FetchResult {
	results := make([]SourceResult, len(srcs))

	var wg sync.WaitGroup
	for i, src := range srcs {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			results[i] = c.fetchOne(ctx, src)
		}(i, src)
	}
	wg.Wait()

	fr := &FetchResult{Results: results}
	for _, r := range results {
		if r.Err != nil {
			fr.Failures = append(fr.Failures, Failure{
				Source:  r.Name,
				Kind:    r.Err.Kind,
				Message: r.Err.Err.Error(),
			})
			continue
		}
		fr.Failures = append(fr.Failures, r.Partial...)
	}
	return fr
}

func (c *Coordinator) fetchOne(ctx context.Context, src Source) SourceResult {
	sr := SourceResult{Name: src.Name(), Kind: src.Kind(), MaxItems: src.MaxItems()}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := src.Fetch(cctx)
	if err != nil {
		sr.Err = classify(err)
		log.Printf("fetch %s failed: %v", sr.Name, sr.Err)
		return sr
	}

	sr.Articles = make([]digest.Article, 0, len(out.Articles))
	for _, a := range out.Articles {
		sr.Articles = append(sr.Articles, digest.Normalize(a))
	}
	sr.Partial = out.Partial
	log.Printf("fetched %d articles from %s", len(sr.Articles), sr.Name)
	return sr
}
