package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/minispace/internal/apperror"
	"github.com/sakif/minispace/internal/auth"
	"github.com/sakif/minispace/internal/model"
)

// =========================================================================
// Register
// =========================================================================

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.auth.Register(context.Background(), RegisterInput{
		Email:    " Alice@Example.com ",
		Username: "Alice",
		Password: testPassword,
	})
	require.NoError(t, err)

	assert.Equal(t, "alice", res.User.Username)
	assert.Equal(t, "alice@example.com", res.User.Email)
	assert.NotEmpty(t, res.Token)
	assert.NotEqual(t, testPassword, res.User.PasswordHash)
	assert.Equal(t, model.DefaultLayout, res.User.LayoutTemplate)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    RegisterInput
		field string
	}{
		{"bad email", RegisterInput{"nope", "alice", testPassword}, "email"},
		{"short username", RegisterInput{"a@example.com", "al", testPassword}, "username"},
		{"long username", RegisterInput{"a@example.com", strings.Repeat("a", 31), testPassword}, "username"},
		{"username chars", RegisterInput{"a@example.com", "al ice", testPassword}, "username"},
		{"reserved username", RegisterInput{"a@example.com", "discover", testPassword}, "username"},
		{"short password", RegisterInput{"a@example.com", "alice", "short"}, "password"},
		{"long password", RegisterInput{"a@example.com", "alice", strings.Repeat("p", 73)}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			_, err := env.auth.Register(context.Background(), tt.in)
			require.ErrorIs(t, err, apperror.ErrValidation)

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.field, appErr.Field)
		})
	}
}

func TestRegister_Conflicts(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")
	ctx := context.Background()

	_, err := env.auth.Register(ctx, RegisterInput{"alice@example.com", "other", testPassword})
	assert.ErrorIs(t, err, apperror.ErrConflict, "email taken")

	_, err = env.auth.Register(ctx, RegisterInput{"new@example.com", "alice", testPassword})
	assert.ErrorIs(t, err, apperror.ErrConflict, "username taken")
}

// =========================================================================
// Login
// =========================================================================

func TestLogin(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice")
	ctx := context.Background()

	res, err := env.auth.Login(ctx, "ALICE@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)

	_, err = env.auth.Login(ctx, "alice@example.com", "wrong-password")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = env.auth.Login(ctx, "nobody@example.com", testPassword)
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = env.auth.Login(ctx, "", "")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

// =========================================================================
// GitHub
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.auth.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:    42,
		Login: "Octo.Cat",
		Name:  "The Octocat",
		Email: "octo@github.com",
		Bio:   "hello",
		Blog:  "octo.blog",
	})
	require.NoError(t, err)

	u := res.User
	assert.Equal(t, "octo-cat", u.Username)
	assert.Equal(t, int64(42), u.GitHubID)
	assert.Equal(t, "octo@github.com", u.Email)
	assert.Equal(t, "The Octocat", u.General.DisplayName)
	assert.Equal(t, "https://github.com/Octo.Cat", u.SocialLinks.GitHub)
	assert.Equal(t, "octo.blog", u.SocialLinks.Website)
	assert.Empty(t, u.PasswordHash)
	assert.NotEmpty(t, res.Token)
}

func TestLoginOrRegisterGitHub_ReturningUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.auth.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 7, Login: "octo"})
	require.NoError(t, err)
	second, err := env.auth.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 7, Login: "renamed-on-github"})
	require.NoError(t, err)

	assert.Equal(t, first.User.ID, second.User.ID)
	assert.Equal(t, "octo", second.User.Username, "existing profile is not overwritten")
}

func TestLoginOrRegisterGitHub_UsernameCollisions(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "octo")
	ctx := context.Background()

	tests := []struct {
		id    int64
		login string
		want  string
	}{
		{1, "octo", "octo-2"},
		{2, "octo", "octo-3"},
		{3, "api", "api-2"},
		{4, "x", "x__"},
	}
	for _, tt := range tests {
		res, err := env.auth.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: tt.id, Login: tt.login})
		require.NoError(t, err)
		assert.Equal(t, tt.want, res.User.Username)
	}
}

func TestLoginOrRegisterGitHub_EmailOwnedByAnotherAccount(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	res, err := env.auth.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID: 9, Login: "alice-gh", Email: "alice@example.com",
	})
	require.NoError(t, err)
	assert.Empty(t, res.User.Email)
}

func TestLoginOrRegisterGitHub_MissingUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.LoginOrRegisterGitHub(context.Background(), nil)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestGetUserByID(t *testing.T) {
	env := newTestEnv(t)
	user := env.register(t, "alice")
	ctx := context.Background()

	got, err := env.auth.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = env.auth.GetUserByID(ctx, "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = env.auth.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
