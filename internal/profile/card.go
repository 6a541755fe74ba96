package profile

import (
	"html/template"
	"net/url"
	"strings"

	"github.com/sakif/minispace/internal/model"
)

// Banner kinds, in order of precedence.
const (
	BannerImage   = "image"
	BannerPreset  = "preset"
	BannerDefault = "default"
)

const defaultBanner = template.CSS("linear-gradient(to right, #e5e7eb, #d1d5db)")

var bannerBackgrounds = map[string]template.CSS{
	"garden-green":    "linear-gradient(to right, #4ade80, #16a34a)",
	"sunset-orange":   "linear-gradient(to right, #fb923c, #ec4899)",
	"ocean-blue":      "linear-gradient(to right, #60a5fa, #2563eb)",
	"lavender-purple": "linear-gradient(to right, #c084fc, #9333ea)",
	"warm-earth":      "linear-gradient(to right, #fbbf24, #f97316)",
	"cool-gray":       "linear-gradient(to right, #9ca3af, #4b5563)",
	"minimal-dots":    "radial-gradient(circle at 1px 1px, rgba(0,0,0,0.15) 1px, transparent 0) 0 0 / 20px 20px, #f3f4f6",
}

// Banner describes the card header background. ImageURL is set only for
// BannerImage; Background is always a usable CSS background value.
type Banner struct {
	Kind       string       `json:"kind"`
	Preset     string       `json:"preset,omitempty"`
	ImageURL   string       `json:"imageUrl,omitempty"`
	Background template.CSS `json:"background"`
}

type SocialLink struct {
	Kind  string `json:"kind"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Card is the rendered identity block for {displayProfileCard}.
type Card struct {
	Avatar      string       `json:"avatar,omitempty"` // emoji; empty means the generic icon
	Username    string       `json:"username"`
	DisplayName string       `json:"displayName"`
	Tagline     string       `json:"tagline,omitempty"`
	JoinDate    string       `json:"joinDate,omitempty"`
	Bio         string       `json:"bio,omitempty"`
	Banner      Banner       `json:"banner"`
	SocialLinks []SocialLink `json:"socialLinks,omitempty"`
	Tools       []string     `json:"tools,omitempty"`
	Theme       model.Theme  `json:"theme"`
	Accent      string       `json:"accent"`
}

// RenderCard builds the profile card for user.
func RenderCard(user *model.UserData) *Card {
	card := &Card{
		Avatar:      strings.TrimSpace(user.ProfileEmoji),
		Username:    user.Username,
		DisplayName: user.DisplayName(),
		Tagline:     strings.TrimSpace(user.General.Tagline),
		Bio:         strings.TrimSpace(user.Bio),
		Banner:      resolveBanner(user.BannerImage, user.BannerPreset),
		SocialLinks: socialLinks(user.SocialLinks),
		Tools:       nonEmpty(user.Tools),
		Theme:       user.ProfileTheme.Normalize(),
		Accent:      AccentOrDefault(user.AccentColor),
	}
	if user.ShowJoinDate {
		card.JoinDate = FormatMonthYear(user.CreatedAt)
	}
	return card
}

func resolveBanner(image, preset string) Banner {
	if u, ok := httpURL(image); ok {
		return Banner{Kind: BannerImage, ImageURL: u, Background: defaultBanner}
	}
	if bg, ok := bannerBackgrounds[preset]; ok {
		return Banner{Kind: BannerPreset, Preset: preset, Background: bg}
	}
	return Banner{Kind: BannerDefault, Background: defaultBanner}
}

func socialLinks(s model.SocialLinks) []SocialLink {
	candidates := []SocialLink{
		{Kind: "website", Label: "Website", URL: s.Website},
		{Kind: "twitter", Label: "Twitter", URL: s.Twitter},
		{Kind: "github", Label: "GitHub", URL: s.GitHub},
		{Kind: "linkedin", Label: "LinkedIn", URL: s.LinkedIn},
	}

	var links []SocialLink
	for _, c := range candidates {
		if u := ExternalURL(c.URL); u != "" {
			c.URL = u
			links = append(links, c)
		}
	}
	return links
}

// ExternalURL trims raw and prefixes https:// when it has no scheme.
// Blank input returns "".
func ExternalURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

// httpURL accepts only absolute http(s) URLs with a host.
func httpURL(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", false
	}
	return u.String(), true
}

func nonEmpty(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
