package profile

import (
	"sort"

	"github.com/sakif/minispace/internal/model"
)

// VisibleTagLimit is how many chips the cloud shows before the expand control.
const VisibleTagLimit = 12

// TagLinker returns the link target that applies a tag click. A nil tag
// means "All" (clear the filter). The cloud and the posts list never filter
// anything themselves; following the link is the click.
type TagLinker func(tag *string) string

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// CountTags builds the tag frequency index, most used first. Tags are exact,
// case-sensitive strings. Equal counts keep the order in which the tags were
// first seen while walking articles in order.
func CountTags(articles []model.Article) []TagCount {
	counts := make(map[string]int)
	var order []string

	for _, a := range articles {
		for _, tag := range a.Tags {
			if _, seen := counts[tag]; !seen {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	result := make([]TagCount, len(order))
	for i, tag := range order {
		result[i] = TagCount{Tag: tag, Count: counts[tag]}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Count > result[j].Count
	})
	return result
}

type TagChip struct {
	Tag      string `json:"tag"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
	URL      string `json:"url,omitempty"`
}

// TagCloud is the rendered {displayTags} block. Visible holds at most
// VisibleTagLimit chips; Overflow holds the rest behind the expand control.
type TagCloud struct {
	All      TagChip   `json:"all"`
	Visible  []TagChip `json:"visible"`
	Overflow []TagChip `json:"overflow,omitempty"`
	Empty    bool      `json:"empty"`
	Accent   string    `json:"accent"`
}

// HasOverflow reports whether the expand control should be shown.
func (c *TagCloud) HasOverflow() bool { return len(c.Overflow) > 0 }

// RenderTags builds the tag cloud from the full, unfiltered article list.
// selected is the active filter (nil for none) and only affects highlighting.
func RenderTags(articles []model.Article, selected *string, link TagLinker, accent string) *TagCloud {
	cloud := &TagCloud{
		All: TagChip{
			Tag:      "All",
			Count:    len(articles),
			Selected: selected == nil,
		},
		Accent: AccentOrDefault(accent),
	}
	if link != nil {
		cloud.All.URL = link(nil)
	}

	counts := CountTags(articles)
	if len(counts) == 0 {
		cloud.Empty = true
		return cloud
	}

	chips := make([]TagChip, len(counts))
	for i, tc := range counts {
		chips[i] = TagChip{
			Tag:      tc.Tag,
			Count:    tc.Count,
			Selected: selected != nil && *selected == tc.Tag,
		}
		if link != nil {
			tag := tc.Tag
			chips[i].URL = link(&tag)
		}
	}

	if len(chips) > VisibleTagLimit {
		cloud.Visible = chips[:VisibleTagLimit]
		cloud.Overflow = chips[VisibleTagLimit:]
	} else {
		cloud.Visible = chips
	}
	return cloud
}
