// Package feed renders a user's published articles as an RSS 2.0 document.
package feed

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/minispace/internal/model"
)

// MaxItems caps how many articles a feed lists.
const MaxItems = 50

type rssDoc struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language"`
	LastBuildDate string    `xml:"lastBuildDate"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description string   `xml:"description"`
	Categories  []string `xml:"category"`
	GUID        rssGUID  `xml:"guid"`
	PubDate     string   `xml:"pubDate"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

// Build renders the feed for user. articles should already be limited to
// published ones, newest first; drafts are skipped regardless. baseURL is the
// absolute site root used for every link.
//
// lastBuildDate is the newest article's update time, so an unchanged feed
// renders byte-identically.
func Build(user *model.UserData, articles []model.Article, baseURL string) ([]byte, error) {
	base := strings.TrimSuffix(baseURL, "/")
	profileURL := base + "/" + url.PathEscape(user.Username)

	description := strings.TrimSpace(user.General.Tagline)
	if description == "" {
		description = "Articles by " + user.DisplayName()
	}

	channel := rssChannel{
		Title:       user.DisplayName(),
		Link:        profileURL,
		Description: description,
		Language:    "en",
	}

	var latest time.Time
	for _, a := range articles {
		if !a.Published {
			continue
		}
		if len(channel.Items) == MaxItems {
			break
		}

		link := base + "/articles/" + url.PathEscape(a.ID)
		channel.Items = append(channel.Items, rssItem{
			Title:       a.Title,
			Link:        link,
			Description: a.Excerpt,
			Categories:  a.Tags,
			GUID:        rssGUID{IsPermaLink: true, Value: link},
			PubDate:     a.CreatedAt.UTC().Format(time.RFC1123Z),
		})
		if a.UpdatedAt.After(latest) {
			latest = a.UpdatedAt
		}
	}

	if latest.IsZero() {
		latest = user.UpdatedAt
	}
	channel.LastBuildDate = latest.UTC().Format(time.RFC1123Z)

	data, err := xml.MarshalIndent(rssDoc{Version: "2.0", Channel: channel}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("feed: encoding rss for %s: %w", user.Username, err)
	}
	return append([]byte(xml.Header), data...), nil
}
