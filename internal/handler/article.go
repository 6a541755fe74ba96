package handler

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/auth"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/profile"
	"github.com/sakif/minispace/internal/service"
)

// ArticleHandler serves article CRUD as JSON under /api/articles and the
// article pages: detail, editor, publish toggle and delete confirmation.
type ArticleHandler struct {
	*Views
	articles *service.ArticleService
	profiles *service.ProfileService
	markdown *profile.MarkdownRenderer
	logger   zerolog.Logger
}

func NewArticleHandler(
	views *Views,
	articles *service.ArticleService,
	profiles *service.ProfileService,
	markdown *profile.MarkdownRenderer,
	logger zerolog.Logger,
) *ArticleHandler {
	return &ArticleHandler{
		Views:    views,
		articles: articles,
		profiles: profiles,
		markdown: markdown,
		logger:   logger.With().Str("handler", "article").Logger(),
	}
}

// viewerID is the signed-in user's ID, or "" for anonymous requests. The
// services treat "" as a viewer who owns nothing.
func viewerID(r *http.Request) string {
	id, _ := auth.UserIDFromContext(r.Context())
	return id
}

// =========================================================================
// JSON API
// =========================================================================

// HandleGet returns one article. Drafts are visible to their author only.
//
// HTTP: GET /api/articles/{id}
func (h *ArticleHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.Get(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

// HandleCreate saves a new draft.
//
// HTTP: POST /api/articles
// BODY: {"title": "...", "excerpt": "...", "body": "...", "tags": ["go"]}
func (h *ArticleHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.ArticleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.articles.Create(r.Context(), viewerID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, a)
}

// HandleUpdate replaces title, excerpt, body and tags.
//
// HTTP: PUT /api/articles/{id}
func (h *ArticleHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.ArticleInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	a, err := h.articles.Update(r.Context(), viewerID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

// HandlePublish flips the published flag and returns the article in its
// new state. A second toggle or a delete while one is running gets 409.
//
// HTTP: POST /api/articles/{id}/publish
func (h *ArticleHandler) HandlePublish(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.TogglePublish(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, a)
}

// HandleDelete removes an article.
//
// HTTP: DELETE /api/articles/{id}
func (h *ArticleHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.articles.Delete(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =========================================================================
// Pages
// =========================================================================

type articlePage struct {
	Article  *model.Article
	Body     template.HTML
	Accent   string
	Author   string
	Minutes  int
	Controls *profile.OwnerControls
}

// editorPage backs the write and edit forms. Action is where the form posts.
type editorPage struct {
	Action  string
	Heading string
	Input   service.ArticleInput
	Tags    string
	Error   string
	Field   string
}

// HandleShow renders an article, with its body in the author's accent.
//
// HTTP: GET /articles/{id}
func (h *ArticleHandler) HandleShow(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.Get(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	page := articlePage{
		Article: a,
		Author:  a.AuthorName,
		Minutes: profile.ReadingMinutes(*a),
	}
	if author, err := h.profiles.GetUserByUsername(r.Context(), a.AuthorName); err == nil {
		page.Accent = author.AccentColor
		page.Author = author.DisplayName()
		if author.ID == viewerID(r) {
			updating, deleting := h.articles.InFlight()
			posts := profile.RenderPosts([]model.Article{*a}, profile.PostsOptions{
				Variant:  profile.VariantProfile,
				Updating: updating,
				Deleting: deleting,
				ReturnTo: "/articles/" + a.ID,
			})
			page.Controls = posts.Items[0].Controls
		}
	}
	page.Accent = profile.AccentOrDefault(page.Accent)
	page.Body = h.markdown.Render(a.Body, page.Accent)

	h.render(w, r, http.StatusOK, "article", a.Title, nil, page)
}

// HandleWrite renders an empty editor.
//
// HTTP: GET /write
func (h *ArticleHandler) HandleWrite(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "editor", "Write", nil, editorPage{Action: "/write", Heading: "New article"})
}

// HandleWriteForm creates a draft from the editor and opens it.
//
// HTTP: POST /write
func (h *ArticleHandler) HandleWriteForm(w http.ResponseWriter, r *http.Request) {
	in := articleFromForm(r)
	a, err := h.articles.Create(r.Context(), viewerID(r), in)
	if err != nil {
		h.editorError(w, r, editorPage{Action: "/write", Heading: "New article", Input: in}, err)
		return
	}
	redirect(w, r, "/articles/"+a.ID)
}

// HandleEdit renders the editor for an existing article.
//
// HTTP: GET /edit/{id}
func (h *ArticleHandler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := h.articles.Get(r.Context(), viewerID(r), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if !h.ownedByViewer(w, r, a) {
		return
	}

	h.render(w, r, http.StatusOK, "editor", "Edit", nil, editorPage{
		Action:  "/edit/" + a.ID,
		Heading: "Edit article",
		Input:   service.ArticleInput{Title: a.Title, Excerpt: a.Excerpt, Body: a.Body, Tags: a.Tags},
		Tags:    strings.Join(a.Tags, ", "),
	})
}

// HandleEditForm saves the editor.
//
// HTTP: POST /edit/{id}
func (h *ArticleHandler) HandleEditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	in := articleFromForm(r)
	if _, err := h.articles.Update(r.Context(), viewerID(r), id, in); err != nil {
		h.editorError(w, r, editorPage{Action: "/edit/" + id, Heading: "Edit article", Input: in}, err)
		return
	}
	redirect(w, r, "/articles/"+id)
}

// HandlePublishForm toggles publication from an owner control and returns
// to the page the control was on (the "next" field), or the dashboard.
//
// HTTP: POST /articles/{id}/publish
func (h *ArticleHandler) HandlePublishForm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.articles.TogglePublish(r.Context(), viewerID(r), chi.URLParam(r, "id")); err != nil {
		h.renderError(w, r, err)
		return
	}
	redirect(w, r, safeNext(r.PostFormValue("next")))
}

// HandleConfirmDelete asks before deleting.
//
// HTTP: GET /articles/{id}/delete
func (h *ArticleHandler) HandleConfirmDelete(w http.ResponseWriter, r *http.Request) {
	a, err := h.articles.Get(r.Context(), viewerID(r), chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if !h.ownedByViewer(w, r, a) {
		return
	}
	h.render(w, r, http.StatusOK, "confirm_delete", "Delete "+a.Title, nil, confirmDeletePage{
		Article: a,
		Next:    afterDelete(a.ID, r.URL.Query().Get("next")),
	})
}

type confirmDeletePage struct {
	Article *model.Article
	Next    string // where both Delete and Cancel lead
}

// HandleDeleteForm deletes after confirmation and returns to the page the
// delete started from.
//
// HTTP: POST /articles/{id}/delete
func (h *ArticleHandler) HandleDeleteForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.articles.Delete(r.Context(), viewerID(r), id); err != nil {
		h.renderError(w, r, err)
		return
	}
	redirect(w, r, afterDelete(id, r.PostFormValue("next")))
}

// afterDelete is safeNext, except that the deleted article's own page is
// gone, so it falls back to the dashboard.
func afterDelete(id, next string) string {
	next = safeNext(next)
	if next == "/articles/"+id || strings.HasPrefix(next, "/articles/"+id+"?") || strings.HasPrefix(next, "/articles/"+id+"/") {
		return "/profile"
	}
	return next
}

// ownedByViewer renders 403 unless the viewer wrote a. Published articles
// load for anyone, so edit pages must check.
func (h *ArticleHandler) ownedByViewer(w http.ResponseWriter, r *http.Request, a *model.Article) bool {
	viewer := h.viewer(r)
	if viewer == nil || viewer.Username != a.AuthorName {
		h.render(w, r, http.StatusForbidden, "error", "Forbidden", viewer, errorPage{
			Status:  http.StatusForbidden,
			Heading: "Forbidden",
			Message: "Only the author can change this article.",
		})
		return false
	}
	return true
}

func (h *ArticleHandler) editorError(w http.ResponseWriter, r *http.Request, page editorPage, err error) {
	status, _, appErr := errorStatus(err)
	if appErr == nil || status != http.StatusBadRequest {
		h.renderError(w, r, err)
		return
	}
	page.Error = appErr.Message
	page.Field = appErr.Field
	page.Tags = strings.Join(page.Input.Tags, ", ")
	h.render(w, r, status, "editor", page.Heading, nil, page)
}

// articleFromForm reads the editor fields. Tags are comma separated.
func articleFromForm(r *http.Request) service.ArticleInput {
	var tags []string
	for _, t := range strings.Split(r.PostFormValue("tags"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return service.ArticleInput{
		Title:   r.PostFormValue("title"),
		Excerpt: r.PostFormValue("excerpt"),
		Body:    r.PostFormValue("body"),
		Tags:    tags,
	}
}
