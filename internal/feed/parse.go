// ABOUTME: RSS/Atom parsing for account feeds using gofeed
// ABOUTME: Normalizes feed items into a small Item structure before they become posts

package feed

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Parsed is a normalized feed.
type Parsed struct {
	Title string
	Items []Item
}

// Item is a normalized feed entry.
type Item struct {
	GUID        string
	Title       string
	Link        string
	Author      string
	PublishedAt *time.Time
	Content     string
	ImageURL    string
}

// Parse parses RSS or Atom feed data.
func Parse(data []byte) (*Parsed, error) {
	f, err := gofeed.NewParser().ParseString(string(data))
	if err != nil {
		return nil, err
	}

	parsed := &Parsed{
		Title: f.Title,
		Items: make([]Item, 0, len(f.Items)),
	}
	for _, it := range f.Items {
		item := Item{
			GUID:  it.GUID,
			Title: strings.TrimSpace(it.Title),
			Link:  it.Link,
		}
		if item.GUID == "" {
			item.GUID = it.Link
		}
		item.Author = itemAuthor(it)
		if it.PublishedParsed != nil {
			item.PublishedAt = it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			item.PublishedAt = it.UpdatedParsed
		}
		if it.Content != "" {
			item.Content = it.Content
		} else {
			item.Content = it.Description
		}
		item.Content = strings.TrimSpace(item.Content)
		if f.Image != nil {
			item.ImageURL = f.Image.URL
		}
		parsed.Items = append(parsed.Items, item)
	}
	return parsed, nil
}

// itemAuthor returns the first non-empty author name, falling back to
// dc:creator, which RSS translation can leave off the Person fields.
func itemAuthor(it *gofeed.Item) string {
	if it.Author != nil {
		if name := strings.TrimSpace(it.Author.Name); name != "" {
			return name
		}
	}
	for _, a := range it.Authors {
		if a != nil {
			if name := strings.TrimSpace(a.Name); name != "" {
				return name
			}
		}
	}
	if it.DublinCoreExt != nil {
		for _, c := range it.DublinCoreExt.Creator {
			if c = strings.TrimSpace(c); c != "" {
				return c
			}
		}
	}
	return ""
}
