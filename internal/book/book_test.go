package book

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/morningbyte/morningbyte/internal/digest"
)

func intPtr(v int) *int { return &v }

func sampleDigest() *digest.Digest {
	return &digest.Digest{
		Title:    "Morning Byte",
		Subtitle: "Your Daily Tech Digest",
		Date:     time.Date(2024, 3, 15, 6, 0, 0, 0, time.UTC),
		Sections: []digest.Section{
			{
				Title: "Hacker News",
				Articles: []digest.Article{
					{
						ID:           "hn-1",
						Title:        "A story",
						URL:          "https://example.com/story",
						SourceName:   "Hacker News",
						Score:        intPtr(142),
						CommentCount: intPtr(37),
						CommentsURL:  "https://news.ycombinator.com/item?id=1",
						Summary:      "A short summary.",
					},
					{
						ID:         "hn-2",
						Title:      "No score here",
						URL:        "https://example.com/other",
						SourceName: "Hacker News",
					},
				},
			},
			{Title: "Lobsters"},
		},
	}
}

func TestWriteCreatesEpub(t *testing.T) {
	b := NewBuilder(Options{IncludeScores: true, IncludeCommentsLink: true, MaxArticlesPerSection: 15})
	out := filepath.Join(t.TempDir(), "nested", "digest.epub")

	if err := b.Write(sampleDigest(), out); err != nil {
		t.Fatalf("Write: %v", err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatalf("stat output: %v", err)
	}
	if info.Size() == 0 {
		t.Fatal("epub file is empty")
	}
}

func TestSectionHTMLScoreBadge(t *testing.T) {
	b := NewBuilder(Options{IncludeScores: true, IncludeCommentsLink: true})
	d := sampleDigest()

	body, err := b.sectionHTML(d.Sections[0])
	if err != nil {
		t.Fatalf("sectionHTML: %v", err)
	}
	if !strings.Contains(body, "142") {
		t.Errorf("expected score badge for scored article, got:\n%s", body)
	}
	if !strings.Contains(body, "37 comments") {
		t.Errorf("expected comments link, got:\n%s", body)
	}

	// The scoreless article must not get a zero badge.
	if strings.Contains(body, "▲ 0") {
		t.Errorf("rendered a zero score badge:\n%s", body)
	}
}

func TestSectionHTMLScoresDisabled(t *testing.T) {
	b := NewBuilder(Options{IncludeScores: false})
	d := sampleDigest()

	body, err := b.sectionHTML(d.Sections[0])
	if err != nil {
		t.Fatalf("sectionHTML: %v", err)
	}
	if strings.Contains(body, "class=\"score\"") {
		t.Errorf("score badge rendered with scores disabled:\n%s", body)
	}
}

func TestSectionHTMLEmptySection(t *testing.T) {
	b := NewBuilder(Options{})

	body, err := b.sectionHTML(digest.Section{Title: "Lobsters"})
	if err != nil {
		t.Fatalf("sectionHTML: %v", err)
	}
	if !strings.Contains(body, "No items today.") {
		t.Errorf("empty section missing placeholder:\n%s", body)
	}
}

func TestSectionHTMLTruncatesToMax(t *testing.T) {
	b := NewBuilder(Options{MaxArticlesPerSection: 1})
	d := sampleDigest()

	body, err := b.sectionHTML(d.Sections[0])
	if err != nil {
		t.Fatalf("sectionHTML: %v", err)
	}
	if !strings.Contains(body, "A story") {
		t.Errorf("first article missing:\n%s", body)
	}
	if strings.Contains(body, "No score here") {
		t.Errorf("section not capped at 1 article:\n%s", body)
	}
}

func TestMarkdownContentRendered(t *testing.T) {
	b := NewBuilder(Options{})
	sec := digest.Section{
		Title: "Reddit",
		Articles: []digest.Article{
			{
				ID:         "reddit-1",
				Title:      "Self post",
				URL:        "https://reddit.com/r/golang/1",
				SourceName: "r/golang",
				Summary:    "intro",
				Content:    "Some **bold** text.",
			},
		},
	}

	body, err := b.sectionHTML(sec)
	if err != nil {
		t.Fatalf("sectionHTML: %v", err)
	}
	if !strings.Contains(body, "<strong>bold</strong>") {
		t.Errorf("markdown content not converted:\n%s", body)
	}
}

func TestContentsListsOnlyNonEmptySections(t *testing.T) {
	b := NewBuilder(Options{MaxArticlesPerSection: 15})
	d := sampleDigest()

	data := b.contentsData(d)
	entries := data["Entries"].([]contentsEntry)
	if len(entries) != 1 {
		t.Fatalf("expected 1 contents entry, got %d", len(entries))
	}
	if entries[0].Title != "Hacker News" {
		t.Errorf("unexpected contents entry %q", entries[0].Title)
	}
	if entries[0].File != "section-0001.xhtml" {
		t.Errorf("unexpected section file %q", entries[0].File)
	}
	if entries[0].Count != 2 {
		t.Errorf("expected count 2, got %d", entries[0].Count)
	}
}
