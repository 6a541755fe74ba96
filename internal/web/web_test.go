package web

import (
	"bytes"
	"html/template"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/profile"
)

func testUser() *model.UserData {
	u := model.NewUserData("alice", "alice@example.com")
	u.ID = "u1"
	u.CreatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	u.ProfileEmoji = "🌱"
	u.Skills = []string{"Go"}
	u.Bookshelf = []model.Book{{Title: "Dune", Rating: 4, Status: model.BookReading}}
	u.Projects = []model.Project{{Title: "Site", URL: "https://example.com", Status: model.ProjectActive}}
	return u
}

func testArticles() []model.Article {
	created := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	return []model.Article{
		{ID: "a1", Title: "Hello <world>", Excerpt: "first", Tags: []string{"go"}, AuthorName: "alice", Published: true, CreatedAt: created},
		{ID: "a2", Title: "Draft", AuthorName: "alice", CreatedAt: created},
	}
}

func TestNewRenderer_ParsesEveryPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	for _, page := range []string{
		"home", "discover", "users", "profile", "dashboard", "article",
		"editor", "confirm_delete", "login", "register", "settings", "error",
	} {
		assert.True(t, r.Has(page), page)
	}
	assert.False(t, r.Has("layout"))
	assert.False(t, r.Has("blocks"))
}

func TestRender_UnknownPage(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	err = r.Render(&bytes.Buffer{}, "nope", Page{})
	assert.Error(t, err)
}

func TestRender_Profile(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	user := testUser()
	user.PageLayout = model.LayoutSidebar
	user.CustomCSS = "h1 { color: red; }"
	user.LayoutTemplate = "# Hi\n\n{displayProfileCard}{displayTags}{displayPosts}{projects}{bookshelf}{skills}{location}"

	link := func(tag *string) string {
		if tag == nil {
			return "/alice"
		}
		return "/alice?tag=" + *tag
	}
	composer := profile.NewComposer(profile.NewMarkdownRenderer(true))
	page := composer.Compose(profile.Input{
		User:     user,
		Articles: testArticles(),
		TagLink:  link,
		Posts:    profile.PostsOptions{Variant: profile.VariantProfile},
	})

	var buf bytes.Buffer
	err = r.Render(&buf, "profile", Page{
		Title:  "alice",
		Viewer: user,
		Data: struct {
			Page        profile.Page
			DisplayName string
			Owner       bool
		}{page, "alice", true},
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, `class="profile profile-custom theme-minimal layout-sidebar"`)
	assert.Contains(t, html, `<aside class="profile-aside">`)
	assert.Contains(t, html, "Hello &lt;world&gt;", "titles are escaped")
	assert.Contains(t, html, `href="/alice?tag=go"`)
	assert.Contains(t, html, "/edit/a1", "owner controls")
	assert.Contains(t, html, "★★★★☆")
	assert.Contains(t, html, ".profile-custom h1")
	assert.Contains(t, html, "/alice/feed.xml")
}

func TestRender_Forms(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	tests := []struct {
		page string
		data any
		want string
	}{
		{"login", struct {
			Email, Username, Next, Error, Field string
			GitHub                              bool
		}{Next: "/profile", Error: "invalid email or password", GitHub: true}, "invalid email or password"},
		{"editor", struct {
			Action, Heading string
			Input           struct{ Title, Excerpt, Body string }
			Tags, Error     string
			Field           string
		}{Action: "/write", Heading: "New article", Field: "title", Error: "title: cannot be blank"}, `aria-invalid="true"`},
		{"confirm_delete", struct {
			Article *model.Article
			Next    string
		}{&model.Article{ID: "a1", Title: "Bye"}, "/alice"}, `<input type="hidden" name="next" value="/alice">`},
		{"error", struct {
			Status           int
			Heading, Message string
		}{404, "Not Found", "article not found"}, "404 · Not Found"},
	}

	for _, tt := range tests {
		t.Run(tt.page, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, r.Render(&buf, tt.page, Page{Title: tt.page, Data: tt.data}))
			assert.Contains(t, buf.String(), tt.want)
			assert.Contains(t, buf.String(), `href="/login"`, "anonymous nav")
		})
	}
}

func TestRender_Article(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	a := testArticles()[0]
	var buf bytes.Buffer
	err = r.Render(&buf, "article", Page{Title: a.Title, Data: struct {
		Article  *model.Article
		Body     template.HTML
		Accent   string
		Author   string
		Minutes  int
		Controls *profile.OwnerControls
	}{&a, "<p>body</p>", "#ff0000", "Alice", 1, nil}})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "<p>body</p>")
	assert.Contains(t, html, "--accent: #ff0000")
	assert.Contains(t, html, "03/02/2024")
}

func TestStatic(t *testing.T) {
	rr := httptest.NewRecorder()
	Static().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/style.css", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), ".layout-sidebar")
}
