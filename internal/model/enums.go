package model

// Theme selects one of three fixed visual treatments for the profile page.
type Theme string

const (
	ThemeMinimal  Theme = "minimal"
	ThemeModern   Theme = "modern"
	ThemeCreative Theme = "creative"
)

var Themes = []Theme{ThemeMinimal, ThemeModern, ThemeCreative}

func (t Theme) Valid() bool {
	switch t {
	case ThemeMinimal, ThemeModern, ThemeCreative:
		return true
	}
	return false
}

// Normalize maps unknown or empty values to ThemeMinimal.
func (t Theme) Normalize() Theme {
	if t.Valid() {
		return t
	}
	return ThemeMinimal
}

// Layout is the page arrangement of rendered units.
type Layout string

const (
	LayoutDefault  Layout = "default"
	LayoutSidebar  Layout = "sidebar"
	LayoutCentered Layout = "centered"
)

var Layouts = []Layout{LayoutDefault, LayoutSidebar, LayoutCentered}

func (l Layout) Valid() bool {
	switch l {
	case LayoutDefault, LayoutSidebar, LayoutCentered:
		return true
	}
	return false
}

// Normalize maps unknown or empty values to LayoutDefault.
func (l Layout) Normalize() Layout {
	if l.Valid() {
		return l
	}
	return LayoutDefault
}

type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectArchived  ProjectStatus = "archived"
)

var ProjectStatuses = []ProjectStatus{ProjectActive, ProjectCompleted, ProjectArchived}

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectArchived:
		return true
	}
	return false
}

type BookStatus string

const (
	BookWantToRead BookStatus = "want-to-read"
	BookReading    BookStatus = "reading"
	BookCompleted  BookStatus = "completed"
)

var BookStatuses = []BookStatus{BookWantToRead, BookReading, BookCompleted}

func (s BookStatus) Valid() bool {
	switch s {
	case BookWantToRead, BookReading, BookCompleted:
		return true
	}
	return false
}

// BannerPresets is the closed set of named banner backgrounds.
var BannerPresets = []string{
	"garden-green",
	"sunset-orange",
	"ocean-blue",
	"lavender-purple",
	"warm-earth",
	"cool-gray",
	"minimal-dots",
}
