package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/minispace/internal/apperror"
	"github.com/sakif/minispace/internal/auth"
	"github.com/sakif/minispace/internal/cache"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/profile"
	"github.com/sakif/minispace/internal/repository"
)

// =========================================================================
// FAKE STORE
// =========================================================================

// fakeStore is an in-memory repository.UserRepository and
// repository.ArticleRepository. Set the *Err fields to simulate failures.
type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*model.UserData
	articles map[string]*model.Article
	nextID   int
	clock    time.Time

	setPublishedErr  error
	// setPublishedHook, when set, runs at the start of SetPublished.
	setPublishedHook func()

	listByAuthorCalls int
}

var (
	_ repository.UserRepository    = (*fakeStore)(nil)
	_ repository.ArticleRepository = (*fakeStore)(nil)
)

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[string]*model.UserData{},
		articles: map[string]*model.Article{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeStore) CreateUser(_ context.Context, u *model.UserData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Username == u.Username ||
			(u.Email != "" && existing.Email == u.Email) ||
			(u.GitHubID != 0 && existing.GitHubID == u.GitHubID) {
			return apperror.Conflict("user", u.Username)
		}
	}
	u.ID = f.id("user")
	u.CreatedAt = f.tick()
	u.UpdatedAt = u.CreatedAt
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeStore) findUser(match func(*model.UserData) bool, key string) (*model.UserData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.NotFound("user", key)
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.UserData, error) {
	return f.findUser(func(u *model.UserData) bool { return u.ID == id }, id)
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (*model.UserData, error) {
	return f.findUser(func(u *model.UserData) bool { return u.Username == username }, username)
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.UserData, error) {
	return f.findUser(func(u *model.UserData) bool { return email != "" && u.Email == email }, email)
}

func (f *fakeStore) GetUserByGitHubID(_ context.Context, id int64) (*model.UserData, error) {
	return f.findUser(func(u *model.UserData) bool { return u.GitHubID == id }, fmt.Sprint(id))
}

func (f *fakeStore) ListUsers(_ context.Context, query string, opts repository.ListOptions) ([]model.UserData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserData
	for _, u := range f.users {
		if query == "" || strings.Contains(u.Username, strings.ToLower(query)) {
			out = append(out, *u)
		}
	}
	slices.SortFunc(out, func(a, b model.UserData) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

func (f *fakeStore) UpdateUser(_ context.Context, u *model.UserData) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.users[u.ID]
	if !ok {
		return 0, apperror.NotFound("user", u.ID)
	}
	for _, other := range f.users {
		if other.ID != u.ID && (other.Username == u.Username || (u.Email != "" && other.Email == u.Email)) {
			return 0, apperror.Conflict("user", u.Username)
		}
	}

	var rewritten int64
	if old.Username != u.Username {
		for _, a := range f.articles {
			if a.AuthorName == old.Username {
				a.AuthorName = u.Username
				rewritten++
			}
		}
	}
	stored := *u
	f.users[u.ID] = &stored
	return rewritten, nil
}

func (f *fakeStore) CreateArticle(_ context.Context, a *model.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = f.id("article")
	a.CreatedAt = f.tick()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	f.articles[a.ID] = &stored
	return nil
}

func (f *fakeStore) GetArticle(_ context.Context, id string) (*model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.articles[id]
	if !ok {
		return nil, apperror.NotFound("article", id)
	}
	copied := *a
	return &copied, nil
}

func (f *fakeStore) sorted(keep func(*model.Article) bool) []model.Article {
	out := []model.Article{}
	for _, a := range f.articles {
		if keep(a) {
			out = append(out, *a)
		}
	}
	slices.SortFunc(out, func(a, b model.Article) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out
}

func (f *fakeStore) ListByAuthor(_ context.Context, author string, publishedOnly bool) ([]model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listByAuthorCalls++
	return f.sorted(func(a *model.Article) bool {
		return a.AuthorName == author && (a.Published || !publishedOnly)
	}), nil
}

func (f *fakeStore) ListPublished(_ context.Context, opts repository.ListOptions) ([]model.Article, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	opts = opts.Normalize()
	out := f.sorted(func(a *model.Article) bool { return a.Published })
	if opts.Offset >= len(out) {
		return []model.Article{}, nil
	}
	out = out[opts.Offset:]
	if len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateArticle(_ context.Context, a *model.Article) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.articles[a.ID]
	if !ok {
		return apperror.NotFound("article", a.ID)
	}
	stored.Title, stored.Excerpt, stored.Body, stored.Tags = a.Title, a.Excerpt, a.Body, a.Tags
	return nil
}

func (f *fakeStore) SetPublished(_ context.Context, id string, published bool) error {
	if f.setPublishedHook != nil {
		f.setPublishedHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setPublishedErr != nil {
		return f.setPublishedErr
	}
	a, ok := f.articles[id]
	if !ok {
		return apperror.NotFound("article", id)
	}
	a.Published = published
	return nil
}

func (f *fakeStore) DeleteArticle(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.articles[id]; !ok {
		return apperror.NotFound("article", id)
	}
	delete(f.articles, id)
	return nil
}

// =========================================================================
// HELPERS
// =========================================================================

const testPassword = "correct-horse"

type testEnv struct {
	store     *fakeStore
	pages     *cache.Memory
	passwords *auth.PasswordService
	auth      *AuthService
	articles  *ArticleService
	profiles  *ProfileService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	require.NoError(t, err)

	store := newFakeStore()
	pages := cache.NewMemory()
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)
	logger := zerolog.Nop()

	articles := NewArticleService(store, store, pages, logger)
	composer := profile.NewComposer(profile.NewMarkdownRenderer(true))

	return &testEnv{
		store:     store,
		pages:     pages,
		passwords: passwords,
		auth:      NewAuthService(store, tokens, passwords, logger),
		articles:  articles,
		profiles:  NewProfileService(store, store, composer, articles, passwords, pages, time.Minute, logger),
	}
}

// register creates a password account named username.
func (e *testEnv) register(t *testing.T, username string) *model.UserData {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Email:    username + "@example.com",
		Username: username,
		Password: testPassword,
	})
	require.NoError(t, err)
	return res.User
}

func (e *testEnv) write(t *testing.T, owner *model.UserData, title string, published bool, tags ...string) *model.Article {
	t.Helper()
	ctx := context.Background()
	a, err := e.articles.Create(ctx, owner.ID, ArticleInput{Title: title, Excerpt: "about " + title, Tags: tags})
	require.NoError(t, err)
	if published {
		a, err = e.articles.TogglePublish(ctx, owner.ID, a.ID)
		require.NoError(t, err)
	}
	return a
}

func ptr(s string) *string { return &s }
