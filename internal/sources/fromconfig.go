package sources

import (
	"github.com/morningbyte/morningbyte/internal/config"
)

// FromConfig builds the enabled adapters in section order.
func FromConfig(cfg *config.Config) []Source {
	var srcs []Source

	if sc := cfg.Sources.HackerNews; sc.Enabled {
		srcs = append(srcs, NewHackerNews(sc.MaxItems))
	}
	if sc := cfg.Sources.Reddit; sc.Enabled && len(sc.Subreddits) > 0 {
		srcs = append(srcs, NewReddit(sc.Subreddits, sc.MaxItems))
	}
	if sc := cfg.Sources.Lobsters; sc.Enabled {
		srcs = append(srcs, NewLobsters(sc.MaxItems))
	}
	if sc := cfg.Sources.DevTo; sc.Enabled {
		srcs = append(srcs, NewDevTo(sc.Tags, sc.MaxItems))
	}
	if sc := cfg.Sources.RSS; sc.Enabled && len(sc.Feeds) > 0 {
		feeds := make([]FeedSpec, len(sc.Feeds))
		for i, f := range sc.Feeds {
			feeds[i] = FeedSpec{URL: f.URL, Name: f.Name}
		}
		srcs = append(srcs, NewFeeds(feeds, sc.MaxItems))
	}

	return srcs
}
