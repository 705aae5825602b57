package feed

import (
	"encoding/base64"
	"fmt"
	"time"
)

// ArticleID derives an id for an article that has no canonical id of its
// own: base64 of the URL plus the article's zero-based rank in the current
// fetch page. The rank disambiguates duplicate URLs within one page, so
// ids are unique per fetch. The same article at a different rank in a
// later fetch gets a different id; callers must treat the id as
// fetch-session-scoped, not canonical.
func ArticleID(url string, index int) string {
	if url == "" {
		return fmt.Sprintf("news-%d-%d", time.Now().UnixMilli(), index)
	}
	return fmt.Sprintf("%s-%d", base64.StdEncoding.EncodeToString([]byte(url)), index)
}
