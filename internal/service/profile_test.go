package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/minispace/internal/apperror"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/profile"
	"github.com/sakif/minispace/internal/repository"
)

// =========================================================================
// Settings
// =========================================================================

func TestUpdateSettings(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	in := SettingsFrom(alice)
	in.AccentColor = "#ff00aa"
	in.ProfileTheme = model.ThemeCreative
	in.PageLayout = model.LayoutSidebar
	in.CustomLayout = "{displayName}\n\n{displayPosts}"
	in.General.DisplayName = "Alice A."
	in.Skills = []string{"Go", "go", " SQL ", ""}
	in.Bookshelf = []model.Book{{Title: "Dune", Rating: 5, Status: model.BookCompleted}}
	in.Projects = []model.Project{{Title: "Site", URL: "https://example.com", Status: model.ProjectActive}}

	got, err := env.profiles.UpdateSettings(context.Background(), alice.ID, in)
	require.NoError(t, err)

	assert.Equal(t, "#ff00aa", got.AccentColor)
	assert.Equal(t, model.ThemeCreative, got.ProfileTheme)
	assert.Equal(t, model.LayoutSidebar, got.PageLayout)
	assert.Equal(t, "{displayName}\n\n{displayPosts}", got.LayoutTemplate)
	assert.Equal(t, []string{"Go", "SQL"}, got.Skills, "case-insensitive dedupe keeps first spelling")

	stored, err := env.profiles.GetSettings(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A.", stored.General.DisplayName)
}

func TestUpdateSettings_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SettingsInput)
		field  string
	}{
		{"accent not hex", func(in *SettingsInput) { in.AccentColor = "blue" }, "accentColor"},
		{"unknown theme", func(in *SettingsInput) { in.ProfileTheme = "neon" }, "profileTheme"},
		{"unknown layout", func(in *SettingsInput) { in.PageLayout = "grid" }, "profileLayout"},
		{"unknown preset", func(in *SettingsInput) { in.BannerPreset = "rainbow" }, "bannerPreset"},
		{"rating too high", func(in *SettingsInput) { in.Bookshelf = []model.Book{{Title: "x", Rating: 6}} }, "bookshelf"},
		{"rating negative", func(in *SettingsInput) { in.Bookshelf = []model.Book{{Title: "x", Rating: -1}} }, "bookshelf"},
		{"untitled project", func(in *SettingsInput) { in.Projects = []model.Project{{URL: "https://x.io"}} }, "projects"},
		{"bad project status", func(in *SettingsInput) { in.Projects = []model.Project{{Title: "x", Status: "paused"}} }, "projects"},
		{"bad social url", func(in *SettingsInput) { in.SocialLinks.Website = "not a url" }, "socialLinks"},
		{"reserved username", func(in *SettingsInput) { in.Username = "api" }, "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			alice := env.register(t, "alice")

			in := SettingsFrom(alice)
			tt.mutate(&in)
			_, err := env.profiles.UpdateSettings(context.Background(), alice.ID, in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestUpdateSettings_RenameMovesArticles(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.register(t, "bob")
	env.write(t, alice, "one", true)
	env.write(t, alice, "two", false)
	ctx := context.Background()

	in := SettingsFrom(alice)
	in.Username = "Alicia"
	got, err := env.profiles.UpdateSettings(ctx, alice.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.Username)

	mine, err := env.articles.ListForOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, a := range mine {
		assert.Equal(t, "alicia", a.AuthorName)
	}

	in.Username = "bob"
	_, err = env.profiles.UpdateSettings(ctx, alice.ID, in)
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestChangeEmail(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.register(t, "bob")
	ctx := context.Background()

	_, err := env.profiles.ChangeEmail(ctx, alice.ID, "new@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = env.profiles.ChangeEmail(ctx, alice.ID, "not-an-email", testPassword)
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = env.profiles.ChangeEmail(ctx, alice.ID, "bob@example.com", testPassword)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	got, err := env.profiles.ChangeEmail(ctx, alice.ID, "New@Example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)

	_, err = env.auth.Login(ctx, "new@example.com", testPassword)
	assert.NoError(t, err)
}

func TestListUsers(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	env.register(t, "alina")
	env.register(t, "bob")

	users, err := env.profiles.ListUsers(context.Background(), "ali", repository.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

// =========================================================================
// RenderProfile
// =========================================================================

func blockTypes(page profile.Page) []string {
	types := make([]string, len(page.Blocks))
	for i, b := range page.Blocks {
		types[i] = b.Type
	}
	return types
}

func findBlock(t *testing.T, page profile.Page, typ string) profile.Block {
	t.Helper()
	for _, b := range page.Blocks {
		if b.Type == typ {
			return b
		}
	}
	t.Fatalf("no %q block in %v", typ, blockTypes(page))
	return profile.Block{}
}

func TestRenderProfile_PublicView(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.write(t, alice, "draft", false, "go")
	env.write(t, alice, "first", true, "go", "notes")
	env.write(t, alice, "second", true, "notes")

	view, err := env.profiles.RenderProfile(context.Background(), "Alice", "", nil)
	require.NoError(t, err)

	assert.False(t, view.Owner)
	assert.Equal(t, []string{"profileCard", "posts"}, blockTypes(view.Page))

	posts := findBlock(t, view.Page, "posts").Posts
	require.Len(t, posts.Items, 2, "drafts hidden from visitors")
	assert.Equal(t, profile.VariantPublic, posts.Variant)
	for _, item := range posts.Items {
		assert.Nil(t, item.Controls)
	}
}

func TestRenderProfile_OwnerView(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.write(t, alice, "draft", false)
	env.write(t, alice, "public", true)

	view, err := env.profiles.RenderProfile(context.Background(), "alice", alice.ID, nil)
	require.NoError(t, err)

	assert.True(t, view.Owner)
	posts := findBlock(t, view.Page, "posts").Posts
	require.Len(t, posts.Items, 2)
	assert.Equal(t, profile.VariantProfile, posts.Variant)
	for _, item := range posts.Items {
		require.NotNil(t, item.Controls)
		assert.Equal(t, "/alice", item.Controls.ReturnTo)
	}
	assert.Zero(t, env.pages.Len(), "owner views are not cached")
}

func TestRenderProfile_TagFilter(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	in := SettingsFrom(alice)
	in.CustomLayout = "{displayTags}{displayPosts}"
	_, err := env.profiles.UpdateSettings(context.Background(), alice.ID, in)
	require.NoError(t, err)

	env.write(t, alice, "a", true, "go")
	env.write(t, alice, "b", true, "rust")
	env.write(t, alice, "c", true, "go")

	view, err := env.profiles.RenderProfile(context.Background(), "alice", "", ptr("go"))
	require.NoError(t, err)

	posts := findBlock(t, view.Page, "posts").Posts
	assert.Len(t, posts.Items, 2)

	tags := findBlock(t, view.Page, "tags").Tags
	assert.Equal(t, 3, tags.All.Count, "tag cloud counts every article")
	assert.False(t, tags.All.Selected)
	assert.Equal(t, "/alice", tags.All.URL)
	require.NotEmpty(t, tags.Visible)
	assert.Equal(t, "go", tags.Visible[0].Tag)
	assert.True(t, tags.Visible[0].Selected)
	assert.Equal(t, "/alice?tag=go", tags.Visible[0].URL)

	view, err = env.profiles.RenderProfile(context.Background(), "alice", "", ptr("missing"))
	require.NoError(t, err)
	posts = findBlock(t, view.Page, "posts").Posts
	assert.True(t, posts.Empty)
	assert.Equal(t, `No articles tagged "missing"`, posts.EmptyMessage)
}

func TestRenderProfile_CacheAndInvalidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.write(t, alice, "first", true)
	ctx := context.Background()

	in := SettingsFrom(alice)
	in.PageLayout = model.LayoutSidebar
	_, err := env.profiles.UpdateSettings(ctx, alice.ID, in)
	require.NoError(t, err)

	first, err := env.profiles.RenderProfile(ctx, "alice", "", nil)
	require.NoError(t, err)
	calls := env.store.listByAuthorCalls

	cached, err := env.profiles.RenderProfile(ctx, "alice", "", nil)
	require.NoError(t, err)
	assert.Equal(t, calls, env.store.listByAuthorCalls, "served from cache")
	assert.Equal(t, blockTypes(first.Page), blockTypes(cached.Page))
	assert.Len(t, cached.Page.Aside, len(first.Page.Aside), "columns rebuilt after cache hit")
	assert.NotEmpty(t, cached.Page.Aside)

	env.write(t, alice, "second", true)
	fresh, err := env.profiles.RenderProfile(ctx, "alice", "", nil)
	require.NoError(t, err)
	assert.Greater(t, env.store.listByAuthorCalls, calls, "article write invalidated the cache")
	assert.Len(t, findBlock(t, fresh.Page, "posts").Posts.Items, 2)
}

func TestRenderProfile_CachesOnlyKnownTags(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	env.write(t, alice, "first", true, "go")
	ctx := context.Background()

	tests := []struct {
		name    string
		tag     *string
		wantLen int
	}{
		{"unknown tag", ptr("nope"), 0},
		{"another unknown tag", ptr("Go"), 0},
		{"known tag", ptr("go"), 1},
		{"no filter", nil, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.profiles.RenderProfile(ctx, "alice", "", tt.tag)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, env.pages.Len())
		})
	}
}

func TestRenderProfile_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.profiles.RenderProfile(context.Background(), "ghost", "", nil)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
