package handler

import (
	"net/http"
	"strings"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/auth"
	"github.com/sakif/minispace/internal/service"
)

const oauthStateCookie = "minispace_oauth_state"

// AuthHandler covers email/password accounts, GitHub login and the session
// cookie, both as JSON endpoints and as the /login and /register forms.
type AuthHandler struct {
	*Views
	auth   *service.AuthService
	github *auth.GitHubProvider // nil when GitHub login is not configured
	secure bool
	logger zerolog.Logger
}

func NewAuthHandler(
	views *Views,
	authService *service.AuthService,
	github *auth.GitHubProvider,
	secureCookies bool,
	logger zerolog.Logger,
) *AuthHandler {
	return &AuthHandler{
		Views:  views,
		auth:   authService,
		github: github,
		secure: secureCookies,
		logger: logger.With().Str("handler", "auth").Logger(),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authForm is the data for the login and register pages.
type authForm struct {
	Email    string
	Username string
	Next     string
	Error    string
	Field    string
	GitHub   bool
}

func (h *AuthHandler) startSession(w http.ResponseWriter, res *service.AuthResult) {
	auth.SetSessionCookie(w, res.Token, h.auth.TokenTTL(), h.secure)
}

// HandleRegister creates an account and signs it in.
//
// HTTP: POST /api/auth/register
// BODY: {"email": "...", "username": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.startSession(w, res)
	writeJSON(w, r, http.StatusCreated, res)
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.auth.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.startSession(w, res)
	writeJSON(w, r, http.StatusOK, res)
}

// HandleLogout clears the session cookie. Tokens are stateless, so a copied
// token stays valid until it expires.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secure)
	writeJSON(w, r, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in user.
//
// HTTP: GET /api/auth/me (RequireAuth)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

// =========================================================================
// GitHub
// =========================================================================

// HandleGitHubLogin redirects to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// The random state is kept in a short-lived HttpOnly cookie and checked on
// the callback, so only a flow started here can complete.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		h.NotFound(w, r)
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes the OAuth flow: check state, exchange the
// code, find or create the account, set the session cookie.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		h.NotFound(w, r)
		return
	}
	query := r.URL.Query()

	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || query.Get("state") != stateCookie.Value {
		h.logger.Warn().Msg("github callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info().Str("error", errParam).Msg("github callback: authorization denied")
		redirect(w, r, "/login?error=denied")
		return
	}

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Msg("github callback: exchange failed")
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	res, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.renderError(w, r, err)
		return
	}

	h.startSession(w, res)
	redirect(w, r, "/profile")
}

// =========================================================================
// Forms
// =========================================================================

// HandleLoginPage renders the sign-in form.
//
// HTTP: GET /login?next=
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	form := authForm{Next: r.URL.Query().Get("next"), GitHub: h.github != nil}
	if r.URL.Query().Get("error") == "denied" {
		form.Error = "GitHub sign-in was cancelled."
	}
	h.render(w, r, http.StatusOK, "login", "Sign in", nil, form)
}

// HandleLoginForm signs in from the HTML form and follows "next".
//
// HTTP: POST /login
func (h *AuthHandler) HandleLoginForm(w http.ResponseWriter, r *http.Request) {
	form := authForm{
		Email:  strings.TrimSpace(r.PostFormValue("email")),
		Next:   r.PostFormValue("next"),
		GitHub: h.github != nil,
	}

	res, err := h.auth.Login(r.Context(), form.Email, r.PostFormValue("password"))
	if err != nil {
		status, _, appErr := errorStatus(err)
		if appErr == nil {
			h.renderError(w, r, err)
			return
		}
		form.Error = appErr.Message
		h.render(w, r, status, "login", "Sign in", nil, form)
		return
	}

	h.startSession(w, res)
	redirect(w, r, safeNext(form.Next))
}

// HandleRegisterPage renders the sign-up form.
//
// HTTP: GET /register
func (h *AuthHandler) HandleRegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "register", "Create an account", nil, authForm{GitHub: h.github != nil})
}

// HandleRegisterForm creates an account from the HTML form.
//
// HTTP: POST /register
func (h *AuthHandler) HandleRegisterForm(w http.ResponseWriter, r *http.Request) {
	in := service.RegisterInput{
		Email:    r.PostFormValue("email"),
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}

	res, err := h.auth.Register(r.Context(), in)
	if err != nil {
		status, _, appErr := errorStatus(err)
		if appErr == nil {
			h.renderError(w, r, err)
			return
		}
		form := authForm{
			Email:    in.Email,
			Username: in.Username,
			Error:    appErr.Message,
			Field:    appErr.Field,
			GitHub:   h.github != nil,
		}
		h.render(w, r, status, "register", "Create an account", nil, form)
		return
	}

	h.startSession(w, res)
	redirect(w, r, "/profile")
}

// HandleLogoutForm clears the session and returns home.
//
// HTTP: POST /logout
func (h *AuthHandler) HandleLogoutForm(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.secure)
	redirect(w, r, "/")
}
