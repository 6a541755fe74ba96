package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/service"
)

// SettingsHandler edits the signed-in user's profile and serves composed
// profile pages as JSON.
type SettingsHandler struct {
	*Views
	profiles *service.ProfileService
	logger   zerolog.Logger
}

func NewSettingsHandler(views *Views, profiles *service.ProfileService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		Views:    views,
		profiles: profiles,
		logger:   logger.With().Str("handler", "settings").Logger(),
	}
}

// settingsResponse is the editable profile plus the (separately changed)
// email address.
type settingsResponse struct {
	service.SettingsInput
	Email string `json:"email"`
}

type emailRequest struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"currentPassword"`
}

// HandleGetSettings returns the current settings.
//
// HTTP: GET /api/me/settings
func (h *SettingsHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.GetSettings(r.Context(), viewerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, settingsResponse{SettingsInput: service.SettingsFrom(user), Email: user.Email})
}

// HandleUpdateSettings replaces every editable field. Clients send back what
// GET returned with their edits applied.
//
// HTTP: PUT /api/me/settings
func (h *SettingsHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in service.SettingsInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.profiles.UpdateSettings(r.Context(), viewerID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, settingsResponse{SettingsInput: service.SettingsFrom(user), Email: user.Email})
}

// HandleChangeEmail sets a new email after checking the current password.
//
// HTTP: PUT /api/me/email
// BODY: {"email": "...", "currentPassword": "..."}
func (h *SettingsHandler) HandleChangeEmail(w http.ResponseWriter, r *http.Request) {
	var in emailRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.profiles.ChangeEmail(r.Context(), viewerID(r), in.Email, in.CurrentPassword)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"email": user.Email})
}

// HandleProfilePage returns a composed profile as JSON blocks, as the
// viewer would see it.
//
// HTTP: GET /api/users/{username}/page?tag=
func (h *SettingsHandler) HandleProfilePage(w http.ResponseWriter, r *http.Request) {
	view, err := h.profiles.RenderProfile(r.Context(), chi.URLParam(r, "username"), viewerID(r), tagParam(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// =========================================================================
// Pages
// =========================================================================

type settingsPage struct {
	Settings service.SettingsInput
	Email    string
	Skills   string
	Tools    string
	Saved    bool
	Error    string
	Field    string
}

// HandleSettingsPage renders the settings form.
//
// HTTP: GET /settings
func (h *SettingsHandler) HandleSettingsPage(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.GetSettings(r.Context(), viewerID(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	page := newSettingsPage(user)
	page.Saved = r.URL.Query().Get("saved") == "1"
	h.render(w, r, http.StatusOK, "settings", "Settings", user, page)
}

// HandleSettingsForm saves the form. Projects and the bookshelf are edited
// through the API only and pass through unchanged.
//
// HTTP: POST /settings
func (h *SettingsHandler) HandleSettingsForm(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.GetSettings(r.Context(), viewerID(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	in := settingsFromForm(r, service.SettingsFrom(user))
	if _, err := h.profiles.UpdateSettings(r.Context(), user.ID, in); err != nil {
		h.formError(w, r, user, in, err)
		return
	}
	redirect(w, r, "/settings?saved=1")
}

// HandleEmailForm changes the email from the settings page.
//
// HTTP: POST /settings/email
func (h *SettingsHandler) HandleEmailForm(w http.ResponseWriter, r *http.Request) {
	user, err := h.profiles.GetSettings(r.Context(), viewerID(r))
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	_, err = h.profiles.ChangeEmail(r.Context(), user.ID, r.PostFormValue("email"), r.PostFormValue("currentPassword"))
	if err != nil {
		h.formError(w, r, user, service.SettingsFrom(user), err)
		return
	}
	redirect(w, r, "/settings?saved=1")
}

func (h *SettingsHandler) formError(w http.ResponseWriter, r *http.Request, user *model.UserData, in service.SettingsInput, err error) {
	status, _, appErr := errorStatus(err)
	if appErr == nil || status == http.StatusUnauthorized || status == http.StatusNotFound {
		h.renderError(w, r, err)
		return
	}

	page := newSettingsPage(user)
	page.Settings = in
	page.Skills = strings.Join(in.Skills, ", ")
	page.Tools = strings.Join(in.Tools, ", ")
	page.Error = appErr.Message
	page.Field = appErr.Field
	h.render(w, r, status, "settings", "Settings", user, page)
}

func newSettingsPage(user *model.UserData) settingsPage {
	return settingsPage{
		Settings: service.SettingsFrom(user),
		Email:    user.Email,
		Skills:   strings.Join(user.Skills, ", "),
		Tools:    strings.Join(user.Tools, ", "),
	}
}

// settingsFromForm overlays the posted fields onto current.
func settingsFromForm(r *http.Request, current service.SettingsInput) service.SettingsInput {
	in := current
	in.Username = r.PostFormValue("username")
	in.Bio = r.PostFormValue("bio")
	in.ProfileEmoji = strings.TrimSpace(r.PostFormValue("profileEmoji"))
	in.BannerImage = strings.TrimSpace(r.PostFormValue("bannerImage"))
	in.BannerPreset = r.PostFormValue("bannerPreset")
	in.AccentColor = r.PostFormValue("accentColor")
	in.ProfileTheme = model.Theme(r.PostFormValue("profileTheme"))
	in.PageLayout = model.Layout(r.PostFormValue("profileLayout"))
	in.CustomCSS = r.PostFormValue("customCSS")
	in.HeaderText = r.PostFormValue("headerText")
	in.FooterText = r.PostFormValue("footerText")
	in.ShowJoinDate = r.PostFormValue("showJoinDate") == "on"
	in.CustomLayout = r.PostFormValue("customLayout")
	in.General = model.General{
		DisplayName: r.PostFormValue("displayName"),
		Profession:  r.PostFormValue("profession"),
		Location:    r.PostFormValue("location"),
		Tagline:     r.PostFormValue("tagline"),
	}
	in.SocialLinks = model.SocialLinks{
		Website:  strings.TrimSpace(r.PostFormValue("website")),
		Twitter:  strings.TrimSpace(r.PostFormValue("twitter")),
		GitHub:   strings.TrimSpace(r.PostFormValue("github")),
		LinkedIn: strings.TrimSpace(r.PostFormValue("linkedin")),
	}
	in.Skills = strings.Split(r.PostFormValue("skills"), ",")
	in.Tools = strings.Split(r.PostFormValue("tools"), ",")
	return in
}

// tagParam reads ?tag=. Absent or empty means no filter.
func tagParam(r *http.Request) *string {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		return nil
	}
	return &tag
}
