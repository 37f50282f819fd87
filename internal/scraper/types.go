package scraper

import "time"

// Post is one forum message extracted from a topic page. Timestamp is
// always localized to Europe/Paris.
type Post struct {
	Author    string
	Timestamp time.Time
}
