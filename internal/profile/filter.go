package profile

import "github.com/sakif/minispace/internal/model"

// TagFilter is the tag-selection state of one page session: the full
// article list plus an optional selected tag.
//
// It has a single writer (the viewer's own clicks) and is not safe for
// concurrent use. Every operation is idempotent.
type TagFilter struct {
	articles []model.Article
	selected *string
}

func NewTagFilter(articles []model.Article) *TagFilter {
	return &TagFilter{articles: articles}
}

// Click applies a tag click: a nil tag clears the filter.
func (f *TagFilter) Click(tag *string) {
	if tag == nil {
		f.Clear()
		return
	}
	f.Select(*tag)
}

func (f *TagFilter) Select(tag string) {
	f.selected = &tag
}

func (f *TagFilter) Clear() {
	f.selected = nil
}

// Selected returns a copy of the selected tag, or nil.
func (f *TagFilter) Selected() *string {
	if f.selected == nil {
		return nil
	}
	tag := *f.selected
	return &tag
}

// All returns the unfiltered article list.
func (f *TagFilter) All() []model.Article {
	return f.articles
}

// Visible returns every article when no tag is selected, otherwise the
// articles carrying the selected tag, in their original order.
func (f *TagFilter) Visible() []model.Article {
	if f.selected == nil {
		return f.articles
	}
	visible := make([]model.Article, 0, len(f.articles))
	for _, a := range f.articles {
		if a.HasTag(*f.selected) {
			visible = append(visible, a)
		}
	}
	return visible
}

// Reset replaces the article list and clears the selection.
func (f *TagFilter) Reset(articles []model.Article) {
	f.articles = articles
	f.selected = nil
}
