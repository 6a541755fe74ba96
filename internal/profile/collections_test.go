package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/minispace/internal/model"
)

func TestCollections_EmptyRenderNothing(t *testing.T) {
	assert.Nil(t, RenderProjects(nil))
	assert.Nil(t, RenderProjects([]model.Project{}))
	assert.Nil(t, RenderBookshelf(nil))
	assert.Nil(t, RenderBookshelf([]model.Book{}))
	assert.Nil(t, RenderSkills(nil))
	assert.Nil(t, RenderSkills([]string{}))
}

func TestRenderProjects_Status(t *testing.T) {
	tests := []struct {
		status model.ProjectStatus
		want   *Badge
	}{
		{model.ProjectActive, &Badge{Label: "Active", Class: "active"}},
		{model.ProjectArchived, &Badge{Label: "Archived", Class: "archived"}},
		{"paused", &Badge{Label: "paused", Class: "other"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			cards := RenderProjects([]model.Project{{Title: "Seed bank", Status: tt.status}})
			require.Len(t, cards, 1)
			assert.Equal(t, tt.want, cards[0].Status)
		})
	}
}

func TestRenderProjects_Link(t *testing.T) {
	cards := RenderProjects([]model.Project{
		{Title: "One", URL: "example.com/one", Year: "2024"},
		{Title: "Two"},
	})
	require.Len(t, cards, 2)
	assert.Equal(t, "https://example.com/one", cards[0].URL)
	assert.Equal(t, "2024", cards[0].Year)
	assert.Empty(t, cards[1].URL)
}

func TestRenderBookshelf_Stars(t *testing.T) {
	tests := []struct {
		name   string
		rating int
		filled int
	}{
		{"unrated", 0, 0},
		{"three", 3, 3},
		{"five", 5, 5},
		{"above range clamps", 9, 5},
		{"negative clamps", -2, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := RenderBookshelf([]model.Book{{Title: "Dune", Author: "Herbert", Rating: tt.rating}})
			require.Len(t, rows, 1)

			got := 0
			for _, s := range rows[0].Stars {
				if s {
					got++
				}
			}
			assert.Equal(t, tt.filled, got)
			assert.Equal(t, tt.rating > 0, rows[0].Rated)
		})
	}
}

func TestRenderBookshelf_Status(t *testing.T) {
	rows := RenderBookshelf([]model.Book{
		{Title: "A", Status: model.BookWantToRead},
		{Title: "B", Status: "abandoned"},
	})
	assert.Equal(t, &Badge{Label: "Want to read", Class: "want-to-read"}, rows[0].Status)
	assert.Equal(t, &Badge{Label: "abandoned", Class: "other"}, rows[1].Status)
}

func TestRenderSkills_NoDedup(t *testing.T) {
	skills := []string{"Go", "SQL", "Go"}
	got := RenderSkills(skills)
	assert.Equal(t, []string{"Go", "SQL", "Go"}, got)

	got[0] = "changed"
	assert.Equal(t, "Go", skills[0], "renderer must not alias the input")
}
