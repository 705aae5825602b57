package reader

import (
	"time"

	"github.com/go-shiori/go-readability"
)

// Extractor defines the interface for turning an article URL into readable
// content. This allows us to mock the download step in tests.
type Extractor interface {
	Extract(url string, timeout time.Duration) (*readability.Article, error)
}

// DefaultExtractor is the real implementation that uses the internet
type DefaultExtractor struct{}

func (e *DefaultExtractor) Extract(url string, timeout time.Duration) (*readability.Article, error) {
	art, err := readability.FromURL(url, timeout)
	return &art, err
}
