package model

// Source identifies the outlet an article came from. Most outlets have no
// stable id on the wire, so ID stays a pointer.
type Source struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

// Article is an externally-sourced news item. It is fetched fresh per feed
// load and never written to the store directly; only snapshots of it are
// embedded into interaction records.
type Article struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	PublishedAt string `json:"publishedAt"`
	Lang        string `json:"lang,omitempty"`
	Source      Source `json:"source"`
}
