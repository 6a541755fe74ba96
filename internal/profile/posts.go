package profile

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/sakif/minispace/internal/model"
)

// Variant selects which controls and attribution the posts list shows.
type Variant string

const (
	VariantProfile  Variant = "profile"  // owner view with controls
	VariantPublic   Variant = "public"   // read-only, someone's page
	VariantDiscover Variant = "discover" // read-only, cross-user feed
)

const (
	DefaultEmptyMessage = "No articles found"
	DefaultLinkPrefix   = "/articles"

	// collapsedTagLimit is how many tag badges public and discover items show.
	collapsedTagLimit = 3
	wordsPerMinute    = 200
)

// PostsOptions configures RenderPosts. Zero values give a public list
// linking to /articles/{id} with the default empty message.
type PostsOptions struct {
	Variant      Variant
	ShowAuthor   bool
	LinkPrefix   string
	EmptyMessage string
	EmptySubtext string

	// Ids with a publish toggle or delete in flight; only those rows have
	// the corresponding control disabled.
	Updating map[string]bool
	Deleting map[string]bool

	// TagLink makes tag badges clickable; see TagLinker.
	TagLink TagLinker
	Accent  string

	// ReturnTo is the page owner controls send the browser back to after
	// a publish toggle or delete. Empty means the dashboard.
	ReturnTo string
}

// Posts is the rendered {displayPosts} block.
type Posts struct {
	Variant      Variant    `json:"variant"`
	Empty        bool       `json:"empty"`
	EmptyMessage string     `json:"emptyMessage,omitempty"`
	EmptySubtext string     `json:"emptySubtext,omitempty"`
	Header       string     `json:"header,omitempty"`
	Items        []PostItem `json:"items,omitempty"`
	Accent       string     `json:"accent"`
}

type PostItem struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	URL            string         `json:"url"`
	Author         string         `json:"author,omitempty"`
	AuthorURL      string         `json:"authorUrl,omitempty"`
	Excerpt        string         `json:"excerpt"`
	Date           string         `json:"date"`
	ReadingMinutes int            `json:"readingMinutes"`
	Tags           []TagBadge     `json:"tags,omitempty"`
	MoreTags       int            `json:"moreTags,omitempty"`
	Published      bool           `json:"published"`
	Controls       *OwnerControls `json:"controls,omitempty"`
}

type TagBadge struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// OwnerControls are only present on profile-variant items.
type OwnerControls struct {
	EditURL      string `json:"editUrl"`
	PublishURL   string `json:"publishUrl"`
	PublishLabel string `json:"publishLabel"`
	DeleteURL    string `json:"deleteUrl"` // confirmation step, not the delete itself
	ReturnTo     string `json:"returnTo,omitempty"`
	Updating     bool   `json:"updating"`
	Deleting     bool   `json:"deleting"`
}

// RenderPosts renders articles in order. An empty list always yields the
// empty-state message.
func RenderPosts(articles []model.Article, opts PostsOptions) *Posts {
	variant := opts.Variant
	if variant != VariantProfile && variant != VariantDiscover {
		variant = VariantPublic
	}

	posts := &Posts{
		Variant: variant,
		Accent:  AccentOrDefault(opts.Accent),
	}

	if len(articles) == 0 {
		posts.Empty = true
		posts.EmptyMessage = opts.EmptyMessage
		if posts.EmptyMessage == "" {
			posts.EmptyMessage = DefaultEmptyMessage
		}
		posts.EmptySubtext = opts.EmptySubtext
		return posts
	}

	prefix := strings.TrimSuffix(opts.LinkPrefix, "/")
	if prefix == "" {
		prefix = DefaultLinkPrefix
	}
	showAuthor := opts.ShowAuthor || variant == VariantDiscover

	posts.Header = fmt.Sprintf("Showing %d of %d writings", len(articles), len(articles))
	posts.Items = make([]PostItem, 0, len(articles))

	for _, a := range articles {
		item := PostItem{
			ID:             a.ID,
			Title:          a.Title,
			URL:            prefix + "/" + a.ID,
			Excerpt:        a.Excerpt,
			Date:           FormatDate(a.CreatedAt),
			ReadingMinutes: ReadingMinutes(a),
			Published:      a.Published,
		}

		if showAuthor && a.AuthorName != "" {
			item.Author = a.AuthorName
			item.AuthorURL = "/" + a.AuthorName
		}

		tags := a.Tags
		if variant != VariantProfile && len(tags) > collapsedTagLimit {
			item.MoreTags = len(tags) - collapsedTagLimit
			tags = tags[:collapsedTagLimit]
		}
		for _, tag := range tags {
			badge := TagBadge{Name: tag}
			if opts.TagLink != nil {
				t := tag
				badge.URL = opts.TagLink(&t)
			}
			item.Tags = append(item.Tags, badge)
		}

		if variant == VariantProfile {
			item.Controls = ownerControls(a, opts)
		}

		posts.Items = append(posts.Items, item)
	}

	return posts
}

func ownerControls(a model.Article, opts PostsOptions) *OwnerControls {
	label := "Publish"
	if a.Published {
		label = "Unpublish"
	}
	deleteURL := "/articles/" + a.ID + "/delete"
	if opts.ReturnTo != "" {
		deleteURL += "?next=" + url.QueryEscape(opts.ReturnTo)
	}
	return &OwnerControls{
		EditURL:      "/edit/" + a.ID,
		PublishURL:   "/articles/" + a.ID + "/publish",
		PublishLabel: label,
		DeleteURL:    deleteURL,
		ReturnTo:     opts.ReturnTo,
		Updating:     opts.Updating[a.ID],
		Deleting:     opts.Deleting[a.ID],
	}
}

// ReadingMinutes estimates reading time at 200 words per minute from the
// body, or the excerpt when the body is empty. Never less than one.
func ReadingMinutes(a model.Article) int {
	text := a.Body
	if strings.TrimSpace(text) == "" {
		text = a.Excerpt
	}
	words := len(strings.Fields(text))
	minutes := (words + wordsPerMinute - 1) / wordsPerMinute
	if minutes < 1 {
		return 1
	}
	return minutes
}
