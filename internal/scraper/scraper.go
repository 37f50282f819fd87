package scraper

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// adSentinel is the author name the forum puts on sponsored placeholder
// blocks; those blocks carry no real post.
const adSentinel = "Publicité"

var (
	ErrEmptyContent  = errors.New("page content is empty")
	ErrNoPageCount   = errors.New("no numeric page label found in the pagination header")
	ErrMissingAuthor = errors.New("message block has no author")
	ErrBadTimestamp  = errors.New("message toolbar does not match the expected timestamp phrase")
)

// Post timestamps render as "Posté le DD-MM-YYYY à HH:MM:SS" with
// non-breaking spaces around the "à".
var timestampRe = regexp.MustCompile(`Posté le ([0-9]{2}-[0-9]{2}-[0-9]{4})\x{00a0}à\x{00a0}([0-9]{2}:[0-9]{2}:[0-9]{2})`)

var paris *time.Location

func init() {
	var err error
	paris, err = time.LoadLocation("Europe/Paris")
	if err != nil {
		panic(err)
	}
}

// ParsePage extracts the posts of one topic page, in document order.
// Advertisement blocks are skipped; any other malformed message block is a
// fatal parsing error, since it means the page template changed.
func ParsePage(content string) ([]Post, error) {
	if content == "" {
		return nil, ErrEmptyContent
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var posts []Post
	var parseErr error

	doc.Find(".messagetable").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		author := strings.TrimSpace(sel.Find(".s2").First().Text())
		if author == adSentinel {
			return true
		}
		if author == "" {
			parseErr = fmt.Errorf("message %d: %w", i, ErrMissingAuthor)
			return false
		}

		toolbar := sel.Find(".toolbar .left").Text()
		m := timestampRe.FindStringSubmatch(toolbar)
		if m == nil {
			parseErr = fmt.Errorf("message %d by %q: %w", i, author, ErrBadTimestamp)
			return false
		}

		timestamp, err := time.ParseInLocation("02-01-2006 15:04:05", m[1]+" "+m[2], paris)
		if err != nil {
			parseErr = fmt.Errorf("message %d by %q: %w: %v", i, author, ErrBadTimestamp, err)
			return false
		}

		posts = append(posts, Post{Author: author, Timestamp: timestamp})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	return posts, nil
}

// MaxPageNumber reads the topic's total page count from the pagination
// header of a fetched page. The header lists navigable page labels; only
// the purely numeric ones count, and the maximum wins.
func MaxPageNumber(content string) (int, error) {
	if content == "" {
		return 0, ErrEmptyContent
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return 0, fmt.Errorf("failed to parse HTML: %w", err)
	}

	maxPage := 0
	doc.Find(".fondForum2PagesHaut .cHeader").Each(func(_ int, sel *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(sel.Text()))
		if err != nil || n <= 0 {
			return
		}
		if n > maxPage {
			maxPage = n
		}
	})
	if maxPage == 0 {
		return 0, ErrNoPageCount
	}

	return maxPage, nil
}
