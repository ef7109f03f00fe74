// Package aggregate turns raw fetch results into the ordered, deduplicated,
// size-bounded digest. The transform is pure: identical input always yields
// identical output, independent of fetch completion order.
package aggregate

import (
	"errors"
	"sort"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
	"github.com/morningbyte/morningbyte/internal/sources"
)

// ErrEmptyDigest signals that every enabled source failed. The digest is
// still returned; the caller decides whether an empty document is worth
// producing.
var ErrEmptyDigest = errors.New("every enabled source failed")

// Meta carries the digest-level metadata stamped onto the result.
type Meta struct {
	Title       string
	Subtitle    string
	GeneratedAt time.Time
}

// Build assembles the digest from a fetch result. Every source contributes
// a section in configured order — a failed source yields an empty section,
// never a missing one, so the rendered structure stays consistent.
func Build(fr *sources.FetchResult, meta Meta) (*digest.Digest, error) {
	d := &digest.Digest{
		Title:    meta.Title,
		Subtitle: meta.Subtitle,
		Date:     meta.GeneratedAt,
	}

	allFailed := len(fr.Results) > 0
	for _, sr := range fr.Results {
		if sr.Err == nil {
			allFailed = false
		}

		articles := dedupe(sr.Articles)
		sortArticles(articles)
		if len(articles) > sr.MaxItems {
			articles = articles[:sr.MaxItems]
		}

		d.Sections = append(d.Sections, digest.Section{
			Title:    sr.Name,
			Articles: articles,
		})
	}

	if allFailed {
		return d, ErrEmptyDigest
	}
	return d, nil
}

// dedupe removes within-source duplicates: exact id matches first, then
// identical resolved URLs. On a URL collision the first-seen article keeps
// its position, but an occurrence carrying a summary wins over one without.
func dedupe(articles []digest.Article) []digest.Article {
	kept := make([]digest.Article, 0, len(articles))
	byID := make(map[string]struct{})
	byURL := make(map[string]int)

	for _, a := range articles {
		if _, ok := byID[a.ID]; ok {
			continue
		}
		byID[a.ID] = struct{}{}

		if a.URL != "" {
			if idx, ok := byURL[a.URL]; ok {
				if kept[idx].Summary == "" && a.Summary != "" {
					a2 := a
					kept[idx] = a2
				}
				continue
			}
			byURL[a.URL] = len(kept)
		}
		kept = append(kept, a)
	}
	return kept
}

// sortArticles orders by the stable composite key: score descending
// (missing sorts lowest), published descending (missing sorts oldest),
// original fetch order as the tiebreak.
func sortArticles(articles []digest.Article) {
	sort.SliceStable(articles, func(i, j int) bool {
		si, sj := scoreKey(articles[i]), scoreKey(articles[j])
		if si != sj {
			return si > sj
		}
		pi, pj := publishedKey(articles[i]), publishedKey(articles[j])
		return pi.After(pj)
	})
}

func scoreKey(a digest.Article) int {
	if a.Score == nil {
		return -1
	}
	return *a.Score
}

func publishedKey(a digest.Article) time.Time {
	if a.Published == nil {
		return time.Time{}
	}
	return *a.Published
}
