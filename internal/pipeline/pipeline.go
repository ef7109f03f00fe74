// Package pipeline orchestrates the digest run: fetch sources, aggregate
// into sections, optionally enrich article content, render the EPUB.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/morningbyte/morningbyte/internal/aggregate"
	"github.com/morningbyte/morningbyte/internal/book"
	"github.com/morningbyte/morningbyte/internal/config"
	"github.com/morningbyte/morningbyte/internal/digest"
	"github.com/morningbyte/morningbyte/internal/enrich"
	"github.com/morningbyte/morningbyte/internal/sources"
)

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Digest      *digest.Digest
	Report      []sources.Failure
	OutputPath  string
	EmptyDigest bool
	Steps       []StepResult
}

// Pipeline runs the digest generation steps in order.
type Pipeline struct {
	cfg         *config.Config
	srcs        []sources.Source
	coordinator *sources.Coordinator
	enricher    *enrich.Enricher
	builder     *book.Builder
}

// New creates a pipeline over the given sources.
func New(cfg *config.Config, srcs []sources.Source) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		srcs:        srcs,
		coordinator: sources.NewCoordinator(cfg.AdapterTimeout()),
		enricher:    enrich.New(cfg.ContentTimeout()),
		builder: book.NewBuilder(book.Options{
			IncludeScores:         cfg.Digest.IncludeScores,
			IncludeCommentsLink:   cfg.Digest.IncludeCommentsLink,
			MaxArticlesPerSection: cfg.Digest.MaxArticlesPerSection,
		}),
	}
}

// Run executes the full pipeline and writes the EPUB to outPath.
func (p *Pipeline) Run(ctx context.Context, outPath string) (*Result, error) {
	if len(p.srcs) == 0 {
		return nil, fmt.Errorf("no sources enabled")
	}
	r := &Result{OutputPath: outPath}

	fr, step := p.runFetch(ctx)
	r.Steps = append(r.Steps, step)
	r.Report = fr.Failures

	d, step := p.runAggregate(fr, time.Now())
	r.Steps = append(r.Steps, step)
	r.Digest = d
	if step.Err != nil {
		if !errors.Is(step.Err, aggregate.ErrEmptyDigest) {
			return r, step.Err
		}
		// An empty digest still renders; the reader gets the failure
		// report instead of silence.
		r.EmptyDigest = true
	}

	if p.cfg.Fetch.Content {
		r.Steps = append(r.Steps, p.runEnrich(ctx, d))
	}

	step = p.runRender(d, outPath)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r, step.Err
	}
	return r, nil
}

// Preview fetches and aggregates without rendering, for a quick look at
// what today's digest would contain.
func (p *Pipeline) Preview(ctx context.Context) (*Result, error) {
	if len(p.srcs) == 0 {
		return nil, fmt.Errorf("no sources enabled")
	}
	r := &Result{}

	fr, step := p.runFetch(ctx)
	r.Steps = append(r.Steps, step)
	r.Report = fr.Failures

	d, step := p.runAggregate(fr, time.Now())
	r.Steps = append(r.Steps, step)
	r.Digest = d
	if errors.Is(step.Err, aggregate.ErrEmptyDigest) {
		r.EmptyDigest = true
	} else if step.Err != nil {
		return r, step.Err
	}
	return r, nil
}

func (p *Pipeline) runFetch(ctx context.Context) (*sources.FetchResult, StepResult) {
	log.Println("Step 1/4: Fetching sources...")
	fr := p.coordinator.Fetch(ctx, p.srcs)

	total := 0
	for _, sr := range fr.Results {
		total += len(sr.Articles)
	}
	return fr, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d articles from %d sources, %d failures", total, len(p.srcs), len(fr.Failures)),
	}
}

func (p *Pipeline) runAggregate(fr *sources.FetchResult, now time.Time) (*digest.Digest, StepResult) {
	log.Println("Step 2/4: Aggregating...")
	d, err := aggregate.Build(fr, aggregate.Meta{
		Title:       p.cfg.Digest.Title,
		Subtitle:    p.cfg.Digest.Subtitle,
		GeneratedAt: now,
	})
	if err != nil {
		return d, StepResult{Name: "Aggregate", Err: err}
	}
	return d, StepResult{
		Name:    "Aggregate",
		Summary: fmt.Sprintf("Built %d sections with %d articles", len(d.Sections), d.TotalArticles()),
	}
}

func (p *Pipeline) runEnrich(ctx context.Context, d *digest.Digest) StepResult {
	log.Println("Step 3/4: Enriching article content...")
	result := p.enricher.EnrichDigest(ctx, d)
	return StepResult{
		Name:    "Enrich",
		Summary: fmt.Sprintf("Fetched full content for %d articles, %d skipped, %d failed", result.Fetched, result.Skipped, result.Failed),
	}
}

func (p *Pipeline) runRender(d *digest.Digest, outPath string) StepResult {
	log.Println("Step 4/4: Rendering EPUB...")
	if err := p.builder.Write(d, outPath); err != nil {
		return StepResult{Name: "Render", Err: err}
	}
	return StepResult{
		Name:    "Render",
		Summary: fmt.Sprintf("Wrote %s", outPath),
	}
}
