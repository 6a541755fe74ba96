package model

import (
	"slices"
	"time"
)

// Article is a piece of writing owned by a user.
//
// AuthorName is a denormalised copy of the owner's username (see UserData).
// New articles start as drafts (Published == false).
type Article struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Excerpt    string    `json:"excerpt"`
	Body       string    `json:"body,omitempty"`
	Tags       []string  `json:"tags"`
	AuthorName string    `json:"authorName"`
	Published  bool      `json:"published"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// HasTag reports whether the article carries tag exactly (case-sensitive).
func (a Article) HasTag(tag string) bool {
	return slices.Contains(a.Tags, tag)
}
