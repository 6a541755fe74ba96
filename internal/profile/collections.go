package profile

import (
	"strings"

	"github.com/sakif/minispace/internal/model"
)

const maxStars = 5

// Badge is a status label. Class is "other" for values outside the known
// enum; the raw value is then shown as-is.
type Badge struct {
	Label string `json:"label"`
	Class string `json:"class"`
}

type ProjectCard struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Year        string `json:"year,omitempty"`
	Status      *Badge `json:"status,omitempty"`
}

type BookRow struct {
	Title  string         `json:"title"`
	Author string         `json:"author"`
	Status *Badge         `json:"status,omitempty"`
	Stars  [maxStars]bool `json:"stars"`
	Rated  bool           `json:"rated"`
}

var projectLabels = map[model.ProjectStatus]string{
	model.ProjectActive:    "Active",
	model.ProjectCompleted: "Completed",
	model.ProjectArchived:  "Archived",
}

var bookLabels = map[model.BookStatus]string{
	model.BookWantToRead: "Want to read",
	model.BookReading:    "Reading",
	model.BookCompleted:  "Completed",
}

// RenderProjects returns nil for an empty collection.
func RenderProjects(projects []model.Project) []ProjectCard {
	if len(projects) == 0 {
		return nil
	}
	cards := make([]ProjectCard, 0, len(projects))
	for _, p := range projects {
		cards = append(cards, ProjectCard{
			Title:       p.Title,
			Description: p.Description,
			URL:         ExternalURL(p.URL),
			Year:        strings.TrimSpace(p.Year),
			Status:      statusBadge(string(p.Status), projectLabels[p.Status]),
		})
	}
	return cards
}

// RenderBookshelf returns nil for an empty collection. Ratings outside 0..5
// are clamped: the row never shows more than five or fewer than zero stars.
func RenderBookshelf(books []model.Book) []BookRow {
	if len(books) == 0 {
		return nil
	}
	rows := make([]BookRow, 0, len(books))
	for _, b := range books {
		row := BookRow{
			Title:  b.Title,
			Author: b.Author,
			Status: statusBadge(string(b.Status), bookLabels[b.Status]),
			Rated:  b.Rating > 0,
		}
		filled := min(max(b.Rating, 0), maxStars)
		for i := 0; i < filled; i++ {
			row.Stars[i] = true
		}
		rows = append(rows, row)
	}
	return rows
}

// RenderSkills returns the skills in order, duplicates included, or nil when
// there are none.
func RenderSkills(skills []string) []string {
	if len(skills) == 0 {
		return nil
	}
	out := make([]string, len(skills))
	copy(out, skills)
	return out
}

func statusBadge(raw, label string) *Badge {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if label == "" {
		return &Badge{Label: raw, Class: "other"}
	}
	return &Badge{Label: label, Class: raw}
}
