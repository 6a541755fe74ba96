package feed

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/minispace/internal/model"
)

func TestBuild(t *testing.T) {
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	user := &model.UserData{
		Username: "alice",
		General:  model.General{DisplayName: "Alice & Co"},
	}
	articles := []model.Article{
		{ID: "a2", Title: "Second <post>", Excerpt: "more", Tags: []string{"go", "web"}, Published: true, CreatedAt: created.Add(time.Hour), UpdatedAt: created.Add(2 * time.Hour)},
		{ID: "draft", Title: "Draft", Published: false, CreatedAt: created},
		{ID: "a1", Title: "First", Published: true, CreatedAt: created, UpdatedAt: created},
	}

	data, err := Build(user, articles, "https://minispace.test/")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), xml.Header))

	var doc rssDoc
	require.NoError(t, xml.Unmarshal(data, &doc))

	assert.Equal(t, "2.0", doc.Version)
	assert.Equal(t, "Alice & Co", doc.Channel.Title, "escaped once by the encoder")
	assert.Equal(t, "https://minispace.test/alice", doc.Channel.Link)
	assert.Equal(t, "Articles by Alice & Co", doc.Channel.Description)
	assert.Equal(t, created.Add(2*time.Hour).Format(time.RFC1123Z), doc.Channel.LastBuildDate)

	require.Len(t, doc.Channel.Items, 2, "drafts are skipped")
	first := doc.Channel.Items[0]
	assert.Equal(t, "Second <post>", first.Title)
	assert.Equal(t, "https://minispace.test/articles/a2", first.Link)
	assert.Equal(t, "https://minispace.test/articles/a2", first.GUID.Value)
	assert.True(t, first.GUID.IsPermaLink)
	assert.Equal(t, []string{"go", "web"}, first.Categories)
	assert.Equal(t, created.Add(time.Hour).Format(time.RFC1123Z), first.PubDate)
}

func TestBuild_Empty(t *testing.T) {
	updated := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	user := &model.UserData{
		Username:  "bob",
		General:   model.General{Tagline: "notes from bob"},
		UpdatedAt: updated,
	}

	data, err := Build(user, nil, "http://localhost:8080")
	require.NoError(t, err)

	var doc rssDoc
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Equal(t, "bob", doc.Channel.Title)
	assert.Equal(t, "notes from bob", doc.Channel.Description)
	assert.Equal(t, updated.Format(time.RFC1123Z), doc.Channel.LastBuildDate)
	assert.Empty(t, doc.Channel.Items)
}

func TestBuild_CapsItems(t *testing.T) {
	user := &model.UserData{Username: "carol"}
	articles := make([]model.Article, MaxItems+5)
	for i := range articles {
		articles[i] = model.Article{ID: string(rune('a' + i%26)), Title: "t", Published: true}
	}

	data, err := Build(user, articles, "http://x")
	require.NoError(t, err)

	var doc rssDoc
	require.NoError(t, xml.Unmarshal(data, &doc))
	assert.Len(t, doc.Channel.Items, MaxItems)
}
