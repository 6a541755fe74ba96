// Package handler contains the HTTP handlers: JSON endpoints under /api and
// the server-rendered HTML pages.
//
// Handlers parse the request, call the service layer and write the
// response. They hold no business rules; ownership, validation and the
// in-flight guards all live in internal/service.
//
// TWO SURFACES, ONE SERVICE LAYER:
//
//	/api/...   JSON in, JSON out, 401 when signed out
//	/...       HTML forms in, HTML pages out, redirect to /login
//
// Both call the same service methods, so a rule enforced for one (only the
// author may delete) holds for the other.
//
// ANATOMY OF A HANDLER:
//  1. Read input: chi.URLParam, a query value, decodeJSON or a form field.
//  2. Read the caller: auth.UserIDFromContext, set by the middleware.
//  3. Call one service method with r.Context().
//  4. On error: writeError (JSON) or renderError (HTML). Both map
//     apperror kinds to status codes, so handlers never pick a status
//     for a failure themselves.
//  5. On success: writeJSON, render, or redirect.
package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/apperror"
	"github.com/sakif/minispace/internal/auth"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/web"
)

// UserLookup loads the signed-in user for the page chrome.
// *service.AuthService implements it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*model.UserData, error)
}

// Views renders HTML pages. It is shared by every handler that serves
// pages.
type Views struct {
	renderer *web.Renderer
	users    UserLookup
}

func NewViews(renderer *web.Renderer, users UserLookup) *Views {
	return &Views{renderer: renderer, users: users}
}

type errorPage struct {
	Status  int
	Heading string
	Message string
}

// viewer returns the signed-in user, or nil. A session for a user that no
// longer exists is treated as anonymous.
func (v *Views) viewer(r *http.Request) *model.UserData {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return nil
	}
	user, err := v.users.GetUserByID(r.Context(), id)
	if err != nil {
		if !errors.Is(err, apperror.ErrNotFound) {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("userID", id).Msg("loading viewer failed")
		}
		return nil
	}
	return user
}

// render writes page with the given status. viewer may be nil; it is
// looked up when the handler has not loaded it already.
func (v *Views) render(w http.ResponseWriter, r *http.Request, status int, page, title string, viewer *model.UserData, data any) {
	if viewer == nil {
		viewer = v.viewer(r)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := v.renderer.Render(w, page, web.Page{Title: title, Viewer: viewer, Data: data})
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("page", page).Msg("failed to render template")
	}
}

// renderError maps err like writeError does and renders the error page.
func (v *Views) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, appErr := errorStatus(err)

	page := errorPage{Status: status, Heading: http.StatusText(status)}
	if appErr != nil {
		page.Message = appErr.Message
	} else {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("page failed")
		page.Message = "Something went wrong on our side. Please try again."
	}

	if status == http.StatusUnauthorized {
		http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
		return
	}
	v.render(w, r, status, "error", page.Heading, nil, page)
}

// NotFound renders the 404 page for unmatched routes.
func (v *Views) NotFound(w http.ResponseWriter, r *http.Request) {
	v.render(w, r, http.StatusNotFound, "error", "Not Found", nil, errorPage{
		Status:  http.StatusNotFound,
		Heading: "Not Found",
		Message: "There is nothing at this address.",
	})
}

// redirect sends the browser on after a form post.
//
// POST/REDIRECT/GET:
// 303 See Other makes the browser follow with a GET, so refreshing the
// page it lands on does not resubmit the form.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site: only absolute paths,
// never "//host" or a scheme.
//
// OPEN REDIRECTS:
// "next" comes from the query string, so anyone can craft
// /login?next=https://evil.example. Without this check the site would
// forward a freshly signed-in user there. Anything doubtful becomes
// /profile.
func safeNext(next string) string {
	if len(next) == 0 || next[0] != '/' || (len(next) > 1 && (next[1] == '/' || next[1] == '\\')) {
		return "/profile"
	}
	return next
}
