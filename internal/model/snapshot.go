package model

import "time"

const (
	// DefaultTitle is substituted when the source omits a headline.
	DefaultTitle = "Untitled"
	// DefaultSourceName is substituted when the source block is missing.
	DefaultSourceName = "Unknown source"
)

// ArticleSnapshot is an immutable, fully-defaulted copy of an article's
// display fields. One is embedded verbatim into every Like and Comment so
// the record stays renderable after the source feed no longer carries the
// article. Every field is guaranteed non-absent: a snapshot that reached
// the store never leaks an empty-because-missing distinction back out.
type ArticleSnapshot struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Source      Source `json:"source"`
}

// BuildSnapshot produces a snapshot with every field defaulted to a safe
// value. It is total over non-nil input: the only failure mode is a nil
// article, reported via ok=false rather than a partial result.
func BuildSnapshot(a *Article) (ArticleSnapshot, bool) {
	if a == nil {
		return ArticleSnapshot{}, false
	}

	snap := ArticleSnapshot{
		ID:          a.ID,
		Title:       a.Title,
		Description: a.Description,
		Content:     a.Content,
		URL:         a.URL,
		Image:       a.Image,
		PublishedAt: a.PublishedAt,
		Source:      Source{ID: a.Source.ID, Name: a.Source.Name},
	}
	if snap.Title == "" {
		snap.Title = DefaultTitle
	}
	if snap.PublishedAt == "" {
		snap.PublishedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if snap.Source.Name == "" {
		snap.Source.Name = DefaultSourceName
	}
	return snap, true
}
