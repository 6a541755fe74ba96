package profile

import (
	"html/template"
	"strings"

	"github.com/sakif/minispace/internal/model"
)

// Input is everything a profile page is rendered from.
type Input struct {
	User *model.UserData

	// Articles is the list {displayPosts} shows (already narrowed by the
	// tag filter). AllArticles feeds {displayTags}; nil means Articles.
	Articles    []model.Article
	AllArticles []model.Article

	SelectedTag *string
	TagLink     TagLinker
	Posts       PostsOptions
}

// Block is one rendered unit. Exactly one payload field is set, matching Section
// (Section is zero for Markdown blocks).
type Block struct {
	Key     string      `json:"key"`
	Section SectionKind `json:"section,omitempty"`
	Type    string      `json:"type"`

	HTML      template.HTML `json:"html,omitempty"`
	Text      string        `json:"text,omitempty"`
	Card      *Card         `json:"card,omitempty"`
	Posts     *Posts        `json:"posts,omitempty"`
	Tags      *TagCloud     `json:"tags,omitempty"`
	Projects  []ProjectCard `json:"projects,omitempty"`
	Bookshelf []BookRow     `json:"bookshelf,omitempty"`
	Skills    []string      `json:"skills,omitempty"`
}

// Page is a composed profile page.
type Page struct {
	Username   string       `json:"username"`
	Theme      model.Theme  `json:"theme"`
	Layout     model.Layout `json:"layout"`
	Accent     string       `json:"accent"`
	HeaderText string       `json:"headerText,omitempty"`
	FooterText string       `json:"footerText,omitempty"`
	CustomCSS  template.CSS `json:"customCss,omitempty"`
	Blocks     []Block      `json:"blocks"`
	Main       []Block      `json:"-"`
	Aside      []Block      `json:"-"`
}

// Composer renders parsed templates into blocks.
type Composer struct {
	markdown *MarkdownRenderer
}

func NewComposer(markdown *MarkdownRenderer) *Composer {
	return &Composer{markdown: markdown}
}

// Compose parses the user's template and renders the full page.
func (c *Composer) Compose(in Input) Page {
	user := in.User
	layout := user.PageLayout.Normalize()
	blocks := c.Render(Parse(user.Template()), in)

	page := Page{
		Username:   user.Username,
		Theme:      user.ProfileTheme.Normalize(),
		Layout:     layout,
		Accent:     AccentOrDefault(user.AccentColor),
		HeaderText: strings.TrimSpace(user.HeaderText),
		FooterText: strings.TrimSpace(user.FooterText),
		CustomCSS:  SanitizeCSS(user.CustomCSS),
		Blocks:     blocks,
	}
	page.Main, page.Aside = Arrange(layout, blocks)
	return page
}

// Render dispatches each unit to its renderer, in template order.
// Adjacent literal units are rendered as one Markdown run so unknown tokens
// stay inside the surrounding paragraph. Units that render nothing (empty
// collections, blank inline values, whitespace) produce no block; the posts
// list always produces one.
func (c *Composer) Render(units []Unit, in Input) []Block {
	accent := AccentOrDefault(in.User.AccentColor)
	var blocks []Block

	for i := 0; i < len(units); i++ {
		u := units[i]

		if u.Kind == UnitLiteral {
			var sb strings.Builder
			sb.WriteString(u.Raw)
			for i+1 < len(units) && units[i+1].Kind == UnitLiteral {
				i++
				sb.WriteString(units[i].Raw)
			}
			if html := c.markdown.Render(sb.String(), accent); html != "" {
				blocks = append(blocks, Block{Key: u.Key(), Type: "markdown", HTML: html})
			}
			continue
		}

		if b, ok := c.renderSection(u, in, accent); ok {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func (c *Composer) renderSection(u Unit, in Input, accent string) (Block, bool) {
	user := in.User
	b := Block{Key: u.Key(), Section: u.Section, Type: u.Section.String()}

	switch u.Section {
	case SectionProfileCard:
		b.Card = RenderCard(user)
	case SectionPosts:
		opts := in.Posts
		if opts.Accent == "" {
			opts.Accent = accent
		}
		if opts.TagLink == nil {
			opts.TagLink = in.TagLink
		}
		b.Posts = RenderPosts(in.Articles, opts)
	case SectionTags:
		all := in.AllArticles
		if all == nil {
			all = in.Articles
		}
		b.Tags = RenderTags(all, in.SelectedTag, in.TagLink, accent)
	case SectionProjects:
		b.Projects = RenderProjects(user.Projects)
		return b, b.Projects != nil
	case SectionBookshelf:
		b.Bookshelf = RenderBookshelf(user.Bookshelf)
		return b, b.Bookshelf != nil
	case SectionSkills:
		b.Skills = RenderSkills(user.Skills)
		return b, b.Skills != nil
	case SectionDisplayName:
		b.Text = user.DisplayName()
	case SectionProfession:
		b.Text = strings.TrimSpace(user.General.Profession)
		return b, b.Text != ""
	case SectionLocation:
		b.Text = strings.TrimSpace(user.General.Location)
		return b, b.Text != ""
	default:
		return b, false
	}
	return b, true
}

// Arrange splits blocks into page columns. The sidebar layout moves the
// profile card, tag cloud and skills into the aside; other layouts use a
// single column. Relative order is kept in both columns.
func Arrange(layout model.Layout, blocks []Block) (main, aside []Block) {
	if layout.Normalize() != model.LayoutSidebar {
		return blocks, nil
	}
	for _, b := range blocks {
		switch b.Section {
		case SectionProfileCard, SectionTags, SectionSkills:
			aside = append(aside, b)
		default:
			main = append(main, b)
		}
	}
	return main, aside
}
