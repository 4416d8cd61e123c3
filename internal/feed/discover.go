// ABOUTME: Feed discovery for account pages that advertise their RSS/Atom feed
// ABOUTME: Reads <link rel="alternate"> headers so a profile URL can be ingested directly

package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// ErrNoFeedFound means neither the URL nor its advertised links held a feed.
var ErrNoFeedFound = errors.New("no RSS/Atom feed found at URL")

// Link is a feed advertised by an HTML page.
type Link struct {
	URL   string
	Title string
}

// fetchFeed fetches pageURL and parses it as a feed. When the body is an
// HTML page instead, each advertised feed link is tried in order.
func fetchFeed(ctx context.Context, pageURL string) (*Parsed, string, error) {
	res, err := Fetch(ctx, pageURL, "", "")
	if err != nil {
		return nil, "", err
	}
	parsed, parseErr := Parse(res.Body)
	if parseErr == nil {
		return parsed, pageURL, nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse feed: %w", parseErr)
	}
	links := FeedLinks(res.Body, base)
	if len(links) == 0 {
		return nil, "", fmt.Errorf("%w: %v", ErrNoFeedFound, parseErr)
	}
	for _, l := range links {
		linked, err := Fetch(ctx, l.URL, "", "")
		if err != nil {
			continue
		}
		if parsed, err := Parse(linked.Body); err == nil {
			return parsed, l.URL, nil
		}
	}
	return nil, "", ErrNoFeedFound
}

// FeedLinks returns the feeds an HTML page advertises, resolved against base.
func FeedLinks(body []byte, base *url.URL) []Link {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var links []Link
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "link" {
			var rel, typ, href, title string
			for _, a := range n.Attr {
				switch a.Key {
				case "rel":
					rel = strings.ToLower(a.Val)
				case "type":
					typ = a.Val
				case "href":
					href = a.Val
				case "title":
					title = a.Val
				}
			}
			if rel == "alternate" && isFeedType(typ) && href != "" {
				if ref, err := url.Parse(href); err == nil {
					links = append(links, Link{URL: base.ResolveReference(ref).String(), Title: title})
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func isFeedType(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "rss") ||
		strings.Contains(contentType, "atom") ||
		strings.Contains(contentType, "xml")
}
