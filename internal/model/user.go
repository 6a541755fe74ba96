// Package model defines the data structures used throughout the application.
package model

import (
	"strings"
	"time"
)

// Defaults applied when a user has not customised their profile.
const (
	DefaultAccentColor = "#3b82f6"
	DefaultLayout      = "{displayProfileCard}\n\n{displayPosts}"
)

// UserData is a registered account together with its public profile.
//
// Username is unique, stored lowercase, and is the only key articles use to
// point at their author (Article.AuthorName). Renaming a user therefore means
// rewriting every article's AuthorName in the same save.
//
// PasswordHash is empty for accounts created through GitHub login;
// GitHubID is zero for accounts created with email + password.
type UserData struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	GitHubID     int64  `json:"-"`

	Bio          string `json:"bio,omitempty"`
	ProfileEmoji string `json:"profileEmoji,omitempty"`

	// Visual customisation
	BannerImage  string `json:"bannerImage,omitempty"`
	BannerPreset string `json:"bannerPreset,omitempty"`
	AccentColor  string `json:"accentColor,omitempty"`
	ProfileTheme Theme  `json:"profileTheme,omitempty"`
	PageLayout   Layout `json:"profileLayout,omitempty"`
	CustomCSS    string `json:"customCSS,omitempty"`
	HeaderText   string `json:"headerText,omitempty"`
	FooterText   string `json:"footerText,omitempty"`
	ShowJoinDate bool   `json:"showJoinDate"`

	SocialLinks SocialLinks `json:"socialLinks"`

	// LayoutTemplate is the token string rendered on the public page.
	LayoutTemplate string `json:"customLayout,omitempty"`

	// Structured collections
	General   General   `json:"general"`
	Projects  []Project `json:"projects"`
	Bookshelf []Book    `json:"bookshelf"`
	Skills    []string  `json:"skills"`
	Tools     []string  `json:"tools"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SocialLinks are optional; empty values are not rendered.
type SocialLinks struct {
	Website  string `json:"website,omitempty"`
	Twitter  string `json:"twitter,omitempty"`
	GitHub   string `json:"github,omitempty"`
	LinkedIn string `json:"linkedin,omitempty"`
}

// General holds the short free-text facts used by the inline tokens.
type General struct {
	DisplayName string `json:"displayName,omitempty"`
	Profession  string `json:"profession,omitempty"`
	Location    string `json:"location,omitempty"`
	Tagline     string `json:"tagline,omitempty"`
}

type Project struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
	Status      ProjectStatus `json:"status,omitempty"`
	Year        string        `json:"year,omitempty"`
}

type Book struct {
	Title  string     `json:"title"`
	Author string     `json:"author"`
	Status BookStatus `json:"status,omitempty"`
	Rating int        `json:"rating,omitempty"`
}

// NewUserData returns a user with the profile defaults filled in.
func NewUserData(username, email string) *UserData {
	return &UserData{
		Username:       strings.ToLower(username),
		Email:          email,
		AccentColor:    DefaultAccentColor,
		ProfileTheme:   ThemeMinimal,
		PageLayout:     LayoutDefault,
		ShowJoinDate:   true,
		LayoutTemplate: DefaultLayout,
	}
}

// Accent returns the user's accent colour or the default.
func (u *UserData) Accent() string {
	if u == nil || strings.TrimSpace(u.AccentColor) == "" {
		return DefaultAccentColor
	}
	return u.AccentColor
}

// Template returns the layout template, falling back to DefaultLayout.
func (u *UserData) Template() string {
	if u == nil || strings.TrimSpace(u.LayoutTemplate) == "" {
		return DefaultLayout
	}
	return u.LayoutTemplate
}

// DisplayName is General.DisplayName when set, otherwise the username.
func (u *UserData) DisplayName() string {
	if name := strings.TrimSpace(u.General.DisplayName); name != "" {
		return name
	}
	return u.Username
}
