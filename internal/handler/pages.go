package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/feed"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/profile"
	"github.com/sakif/minispace/internal/repository"
	"github.com/sakif/minispace/internal/service"
)

const (
	homeLimit     = 10
	discoverLimit = 20
	usersLimit    = 50
)

// PageHandler serves the read-mostly pages: home, discover, the user
// directory, public profiles with their feeds, and the owner dashboard.
type PageHandler struct {
	*Views
	articles *service.ArticleService
	profiles *service.ProfileService
	baseURL  string
	logger   zerolog.Logger
}

func NewPageHandler(
	views *Views,
	articles *service.ArticleService,
	profiles *service.ProfileService,
	baseURL string,
	logger zerolog.Logger,
) *PageHandler {
	return &PageHandler{
		Views:    views,
		articles: articles,
		profiles: profiles,
		baseURL:  baseURL,
		logger:   logger.With().Str("handler", "pages").Logger(),
	}
}

type discoverPage struct {
	Posts   *profile.Posts
	PrevURL string
	NextURL string
}

type userRow struct {
	Username    string
	DisplayName string
	Tagline     string
	Emoji       string
	Accent      string
}

type usersPage struct {
	Query string
	Users []userRow
}

type dashboardPage struct {
	User      *model.UserData
	Tags      *profile.TagCloud
	Posts     *profile.Posts
	Drafts    int
	Published int
}

// HandleHome lists the most recent published articles from everyone.
//
// HTTP: GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	articles, err := h.articles.Discover(r.Context(), repository.ListOptions{Limit: homeLimit})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	posts := profile.RenderPosts(articles, profile.PostsOptions{
		Variant:      profile.VariantDiscover,
		EmptyMessage: "Nothing published yet",
		EmptySubtext: "Be the first to write something.",
	})
	h.render(w, r, http.StatusOK, "home", "minispace", nil, discoverPage{Posts: posts})
}

// HandleDiscover pages through every published article, newest first.
//
// HTTP: GET /discover?page=N
func (h *PageHandler) HandleDiscover(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	// One extra row tells us whether a next page exists.
	articles, err := h.articles.Discover(r.Context(), repository.ListOptions{
		Limit:  discoverLimit + 1,
		Offset: (page - 1) * discoverLimit,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data := discoverPage{}
	if len(articles) > discoverLimit {
		articles = articles[:discoverLimit]
		data.NextURL = "/discover?page=" + strconv.Itoa(page+1)
	}
	if page > 1 {
		data.PrevURL = "/discover?page=" + strconv.Itoa(page-1)
	}
	data.Posts = profile.RenderPosts(articles, profile.PostsOptions{Variant: profile.VariantDiscover})

	h.render(w, r, http.StatusOK, "discover", "Discover", nil, data)
}

// HandleUsers is the user directory, optionally searched.
//
// HTTP: GET /users?q=
func (h *PageHandler) HandleUsers(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	users, err := h.profiles.ListUsers(r.Context(), query, repository.ListOptions{Limit: usersLimit})
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, userRow{
			Username:    u.Username,
			DisplayName: u.DisplayName(),
			Tagline:     u.General.Tagline,
			Emoji:       u.ProfileEmoji,
			Accent:      profile.AccentOrDefault(u.AccentColor),
		})
	}
	h.render(w, r, http.StatusOK, "users", "Writers", nil, usersPage{Query: query, Users: rows})
}

// HandleProfile renders a user's public page. The owner sees drafts and
// the article controls.
//
// HTTP: GET /{username}?tag=
func (h *PageHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.RenderProfile(r.Context(), chi.URLParam(r, "username"), viewerID(r), tagParam(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "profile", view.DisplayName, nil, view)
}

// HandleDashboard is the owner's view of their own articles: every draft
// and published article with its controls, filterable by tag.
//
// HTTP: GET /profile?tag= (RequirePage)
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	user := h.viewer(r)
	if user == nil {
		redirect(w, r, "/login?next=%2Fprofile")
		return
	}

	articles, err := h.articles.ListForOwner(r.Context(), user.ID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	filter := profile.NewTagFilter(articles)
	filter.Click(tagParam(r))

	link := func(tag *string) string {
		if tag == nil {
			return "/profile"
		}
		return "/profile?tag=" + url.QueryEscape(*tag)
	}

	updating, deleting := h.articles.InFlight()
	data := dashboardPage{
		User: user,
		Tags: profile.RenderTags(filter.All(), filter.Selected(), link, user.AccentColor),
		Posts: profile.RenderPosts(filter.Visible(), profile.PostsOptions{
			Variant:      profile.VariantProfile,
			EmptyMessage: "No articles yet",
			EmptySubtext: "Write your first article to see it here.",
			Updating:     updating,
			Deleting:     deleting,
			TagLink:      link,
			Accent:       user.AccentColor,
			ReturnTo:     link(filter.Selected()),
		}),
	}
	for _, a := range articles {
		if a.Published {
			data.Published++
		} else {
			data.Drafts++
		}
	}

	h.render(w, r, http.StatusOK, "dashboard", "Your articles", user, data)
}

// HandleFeed serves a user's published articles as RSS.
//
// HTTP: GET /{username}/feed.xml
func (h *PageHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.GetUserByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	articles, err := h.articles.ListPublishedByAuthor(r.Context(), user.Username)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	data, err := feed.Build(user, articles, h.baseURL)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn().Err(err).Str("username", user.Username).Msg("writing feed failed")
	}
}
