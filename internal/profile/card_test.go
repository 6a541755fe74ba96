package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/minispace/internal/model"
)

func TestRenderCard_Banner(t *testing.T) {
	tests := []struct {
		name       string
		image      string
		preset     string
		wantKind   string
		wantPreset string
	}{
		{"image wins", "https://img.example.com/b.png", "ocean-blue", BannerImage, ""},
		{"known preset", "", "ocean-blue", BannerPreset, "ocean-blue"},
		{"unknown preset", "", "neon-pink", BannerDefault, ""},
		{"nothing set", "", "", BannerDefault, ""},
		{"non-http image falls through", "javascript:alert(1)", "warm-earth", BannerPreset, "warm-earth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := model.NewUserData("lily", "lily@example.com")
			u.BannerImage = tt.image
			u.BannerPreset = tt.preset

			card := RenderCard(u)
			assert.Equal(t, tt.wantKind, card.Banner.Kind)
			assert.Equal(t, tt.wantPreset, card.Banner.Preset)
			assert.NotEmpty(t, card.Banner.Background)
		})
	}
}

func TestRenderCard_AllPresetsResolve(t *testing.T) {
	for _, preset := range model.BannerPresets {
		u := model.NewUserData("lily", "")
		u.BannerPreset = preset
		assert.Equal(t, BannerPreset, RenderCard(u).Banner.Kind, preset)
	}
}

func TestRenderCard_SocialLinks(t *testing.T) {
	u := model.NewUserData("lily", "")
	u.SocialLinks = model.SocialLinks{
		Website: "example.com",
		GitHub:  "https://github.com/lily",
		Twitter: "   ",
	}

	links := RenderCard(u).SocialLinks

	require.Len(t, links, 2)
	assert.Equal(t, SocialLink{Kind: "website", Label: "Website", URL: "https://example.com"}, links[0])
	assert.Equal(t, "https://github.com/lily", links[1].URL)
}

func TestRenderCard_JoinDate(t *testing.T) {
	u := model.NewUserData("lily", "")
	u.CreatedAt = time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "January 2023", RenderCard(u).JoinDate)

	u.ShowJoinDate = false
	assert.Empty(t, RenderCard(u).JoinDate)
}

func TestRenderCard_ThemeAndIdentity(t *testing.T) {
	u := model.NewUserData("lily", "")
	u.ProfileTheme = "neon"
	u.ProfileEmoji = "🌱"
	u.Bio = "  writes about gardens  "

	card := RenderCard(u)
	assert.Equal(t, model.ThemeMinimal, card.Theme)
	assert.Equal(t, "🌱", card.Avatar)
	assert.Equal(t, "lily", card.DisplayName)
	assert.Equal(t, "writes about gardens", card.Bio)
	assert.Equal(t, model.DefaultAccentColor, card.Accent)
}

func TestExternalURL(t *testing.T) {
	tests := map[string]string{
		"":                    "",
		"example.com":         "https://example.com",
		"http://example.com":  "http://example.com",
		"HTTPS://example.com": "HTTPS://example.com",
		" twitter.com/lily ":  "https://twitter.com/lily",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExternalURL(in), "input %q", in)
	}
}
