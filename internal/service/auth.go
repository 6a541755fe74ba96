// Package service holds the business rules between the HTTP handlers and
// the repositories.
//
// THE THREE LAYERS:
//
//	handler (HTTP)     parses forms and JSON, picks status codes and pages
//	service (rules)    validates, checks ownership, keeps the page cache honest
//	repository (SQL)   reads and writes rows
//
// A handler never talks to SQLite and a repository never sees an
// *http.Request. Everything a blog "means" (who may edit an article, what
// a valid username looks like, when a cached profile page goes stale)
// lives here, so it can be exercised with plain function calls.
//
// THE THREE SERVICES:
//   - AuthService: accounts, passwords, GitHub sign-in, session tokens
//   - ArticleService: writing, publishing and deleting articles
//   - ProfileService: settings, the user directory and the composed
//     profile page
//
// DEPENDENCY INJECTION:
// Every constructor takes repository.UserRepository and
// repository.ArticleRepository (interfaces), never *sqlite.DB. server.New
// passes the SQLite store; the tests in this package pass fakeStore, a
// map-backed implementation in fakes_test.go. The page cache is injected the
// same way: Redis in production, cache.Memory in tests, cache.Noop when
// caching is switched off.
//
// ERRORS:
// Services return *apperror.AppError values (NotFound, ValidationFailed,
// Forbidden, ...) or wrap them with fmt.Errorf("...: %w", err). They never
// choose HTTP status codes; handler.writeError does that with errors.Is.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/apperror"
	"github.com/sakif/minispace/internal/auth"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/repository"
)

// maxUsernameAttempts bounds the numbered suffixes tried when a GitHub
// login is already taken, before falling back to a random suffix.
const maxUsernameAttempts = 20

var invalidUsernameChars = regexp.MustCompile(`[^a-z0-9_-]+`)

// AuthService registers and signs in users.
//
// There are two ways in:
//  1. email + password: Register, then Login. Passwords are bcrypt hashes
//     (auth.PasswordService); the plaintext never reaches the repository.
//  2. GitHub: LoginOrRegisterGitHub links to an existing account by GitHub
//     id or email, or creates one with a username derived from the GitHub
//     login.
//
// Both paths end in AuthResult: the user plus a signed JWT for the cookie.
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    zerolog.Logger
}

// NewAuthService wires the service to its store and the token and password
// helpers. The logger is tagged with service=auth so every line it writes
// can be filtered.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger.With().Str("service", "auth").Logger(),
	}
}

// AuthResult is the signed-in user and the session token to put in the cookie.
type AuthResult struct {
	User  *model.UserData `json:"user"`
	Token string          `json:"token"`
}

// RegisterInput is the body of POST /api/auth/register and of the register
// form. Validate checks shape only; uniqueness is the repository's job.
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (in RegisterInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Email, emailRules()...),
		validation.Field(&in.Username, usernameRules()...),
		validation.Field(&in.Password, passwordRules()...),
	)
}

// Register creates an email + password account and signs it in.
// The username is lowercased before validation.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))
	in.Username = strings.TrimSpace(strings.ToLower(in.Username))

	if err := in.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return nil, apperror.Conflict("email", in.Email)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("checking email: %w", err)
	}

	user := model.NewUserData(in.Username, in.Email)
	user.PasswordHash = hash
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.logger.Info().Str("userID", user.ID).Str("username", user.Username).Msg("user registered")
	return s.issue(user)
}

// Login checks an email + password pair. Unknown emails and wrong passwords
// give the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", "email and password are required")
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			s.logger.Info().Str("userID", user.ID).Msg("failed login")
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, fmt.Errorf("verifying password: %w", err)
	}

	s.logger.Info().Str("userID", user.ID).Msg("user logged in")
	return s.issue(user)
}

// LoginOrRegisterGitHub signs in the account linked to the GitHub user,
// creating one on first login. New profiles are seeded from GitHub: the
// login becomes the username (suffixed when taken), and name, bio and blog
// fill the matching profile fields.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil || gh.ID == 0 {
		return nil, apperror.ValidationFailed("github", "GitHub user is missing")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	if err == nil {
		s.logger.Info().Str("userID", user.ID).Int64("githubID", gh.ID).Msg("user logged in via GitHub")
		return s.issue(user)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("looking up GitHub user %d: %w", gh.ID, err)
	}

	username, err := s.availableUsername(ctx, gh.Login)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(strings.ToLower(gh.Email))
	if email != "" {
		if _, err := s.users.GetUserByEmail(ctx, email); err == nil {
			// The address belongs to another account; don't link them silently.
			email = ""
		}
	}

	user = model.NewUserData(username, email)
	user.GitHubID = gh.ID
	user.Bio = strings.TrimSpace(gh.Bio)
	user.General.DisplayName = strings.TrimSpace(gh.Name)
	user.SocialLinks.GitHub = "https://github.com/" + gh.Login
	user.SocialLinks.Website = strings.TrimSpace(gh.Blog)

	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating GitHub user %d: %w", gh.ID, err)
	}

	s.logger.Info().
		Str("userID", user.ID).
		Str("username", user.Username).
		Int64("githubID", gh.ID).
		Msg("user registered via GitHub")
	return s.issue(user)
}

func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.UserData, error) {
	if id == "" {
		return nil, apperror.Unauthorized("not signed in")
	}
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching user %s: %w", id, err)
	}
	return user, nil
}

// TokenTTL is the lifetime of issued session tokens.
func (s *AuthService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

func (s *AuthService) issue(user *model.UserData) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issuing token for %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// availableUsername turns a GitHub login into a free, valid username:
// "Octo.Cat" -> "octo-cat", then "octo-cat-2", "octo-cat-3", ...
func (s *AuthService) availableUsername(ctx context.Context, login string) (string, error) {
	base := invalidUsernameChars.ReplaceAllString(strings.ToLower(login), "-")
	base = strings.Trim(base, "-")
	if len(base) > MaxUsernameLength-4 {
		base = base[:MaxUsernameLength-4]
	}
	for len(base) < MinUsernameLength {
		base += "_"
	}

	for i := 1; i <= maxUsernameAttempts; i++ {
		candidate := base
		if i > 1 {
			candidate = fmt.Sprintf("%s-%d", base, i)
		}
		if !validUsername(candidate) {
			continue
		}
		_, err := s.users.GetUserByUsername(ctx, candidate)
		if errors.Is(err, apperror.ErrNotFound) {
			return candidate, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking username %s: %w", candidate, err)
		}
	}

	// xid strings are 20 chars; keep the tail, which varies most.
	id := xid.New().String()
	return "user-" + id[len(id)-10:], nil
}
