package service

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/sakif/minispace/internal/apperror"
	"github.com/sakif/minispace/internal/cache"
	"github.com/sakif/minispace/internal/model"
	"github.com/sakif/minispace/internal/repository"
)

// ArticleInput is what the writer controls: title, excerpt, body and tags.
// ID, author and timestamps are never taken from the client; the service
// and the repository fill them in.
type ArticleInput struct {
	Title   string   `json:"title"`
	Excerpt string   `json:"excerpt"`
	Body    string   `json:"body"`
	Tags    []string `json:"tags"`
}

func (in ArticleInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.Required, validation.RuneLength(1, MaxTitleLength)),
		validation.Field(&in.Excerpt, validation.RuneLength(0, MaxExcerptLength)),
		validation.Field(&in.Body, validation.Length(0, MaxBodyLength)),
		validation.Field(&in.Tags,
			validation.Length(0, MaxTags),
			validation.Each(validation.RuneLength(1, MaxTagLength)),
		),
	)
}

// normalize trims the text fields and cleans the tag list (see
// normalizeTags) before validation runs, so "  Go " and "Go" are the same tag.
func (in ArticleInput) normalize() ArticleInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Tags = normalizeTags(in.Tags)
	return in
}

// operation names the kind of in-flight write on an article.
type operation int

const (
	opUpdating operation = iota
	opDeleting
)

// inFlight tracks articles with a publish toggle or delete in progress.
// An article is in at most one set at a time.
//
// WHY TRACK THIS ON THE SERVER?
// A publish toggle is read, flip, write. Two toggles racing on the same
// article could both read "draft" and both write "published", and a delete
// racing a toggle could resurrect a row the user just removed. Rather than
// queueing, the second request is refused with a conflict.
//
// The owner's pages also read a snapshot (InFlight) to grey out the
// controls of the rows that are busy, and only those rows.
//
// CONCURRENCY:
// HTTP handlers run on their own goroutines, so the maps are guarded by a
// sync.Mutex. snapshot hands out copies (maps.Clone): a caller ranging over
// the result must not race with begin/end mutating the original.
type inFlight struct {
	mu       sync.Mutex
	updating map[string]bool
	deleting map[string]bool
}

func newInFlight() *inFlight {
	return &inFlight{updating: map[string]bool{}, deleting: map[string]bool{}}
}

// begin marks id as busy. It returns false when another operation on id is
// still running.
func (f *inFlight) begin(op operation, id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updating[id] || f.deleting[id] {
		return false
	}
	if op == opDeleting {
		f.deleting[id] = true
	} else {
		f.updating[id] = true
	}
	return true
}

func (f *inFlight) end(op operation, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if op == opDeleting {
		delete(f.deleting, id)
	} else {
		delete(f.updating, id)
	}
}

func (f *inFlight) snapshot() (updating, deleting map[string]bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.updating), maps.Clone(f.deleting)
}

// ArticleService enforces ownership and publication rules for articles.
//
// OWNERSHIP:
// Articles point at their author by username (AuthorName), not by user id,
// because the username is what appears in URLs. Every write loads the
// caller by id (owner) and compares usernames; a mismatch is Forbidden.
//
// VISIBILITY:
// Drafts exist only for their author. Anyone else asking for one gets
// NotFound, the same answer as for an id that never existed.
//
// CACHING:
// Non-owner profile pages are cached by ProfileService. Every write here
// drops the author's cached pages (invalidateProfile), so a publish shows
// up on the public page straight away instead of after the TTL.
type ArticleService struct {
	articles repository.ArticleRepository
	users    repository.UserRepository
	pages    cache.Cache
	inflight *inFlight
	logger   zerolog.Logger
}

// NewArticleService takes users as well as articles: ownership checks need
// to turn the caller's id into a username.
func NewArticleService(
	articles repository.ArticleRepository,
	users repository.UserRepository,
	pages cache.Cache,
	logger zerolog.Logger,
) *ArticleService {
	return &ArticleService{
		articles: articles,
		users:    users,
		pages:    pages,
		inflight: newInFlight(),
		logger:   logger.With().Str("service", "article").Logger(),
	}
}

// Create saves a new draft authored by the owner.
func (s *ArticleService) Create(ctx context.Context, ownerID string, in ArticleInput) (*model.Article, error) {
	owner, err := s.owner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	in = in.normalize()
	if err := in.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	article := &model.Article{
		Title:      in.Title,
		Excerpt:    in.Excerpt,
		Body:       in.Body,
		Tags:       in.Tags,
		AuthorName: owner.Username,
	}
	if err := s.articles.CreateArticle(ctx, article); err != nil {
		return nil, fmt.Errorf("creating article: %w", err)
	}

	s.logger.Info().Str("articleID", article.ID).Str("author", owner.Username).Msg("article created")
	s.invalidate(ctx, owner.Username)
	return article, nil
}

// Get returns an article. Drafts are visible only to their author; anyone
// else gets not-found rather than forbidden so drafts stay hidden.
func (s *ArticleService) Get(ctx context.Context, viewerID, id string) (*model.Article, error) {
	article, err := s.articles.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Published {
		return article, nil
	}

	if viewerID != "" {
		viewer, err := s.users.GetUserByID(ctx, viewerID)
		if err == nil && viewer.Username == article.AuthorName {
			return article, nil
		}
	}
	return nil, apperror.NotFound("article", id)
}

// Update replaces the article's content. Publication state is unchanged.
func (s *ArticleService) Update(ctx context.Context, ownerID, id string, in ArticleInput) (*model.Article, error) {
	article, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	in = in.normalize()
	if err := in.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	article.Title = in.Title
	article.Excerpt = in.Excerpt
	article.Body = in.Body
	article.Tags = in.Tags
	if err := s.articles.UpdateArticle(ctx, article); err != nil {
		return nil, fmt.Errorf("updating article %s: %w", id, err)
	}

	s.invalidate(ctx, article.AuthorName)
	return article, nil
}

// TogglePublish flips the article between draft and published.
//
// THE OPTIMISTIC FLIP:
//  1. claim the article in the in-flight set (or fail with Conflict)
//  2. load it and check the caller owns it
//  3. flip Published on the in-memory copy
//  4. save; on failure flip it back, so the returned article and the
//     error agree with what is stored
//
// The deferred end runs on every path, including the early returns, so a
// failed toggle never leaves the article stuck as "busy".
func (s *ArticleService) TogglePublish(ctx context.Context, ownerID, id string) (*model.Article, error) {
	if !s.inflight.begin(opUpdating, id) {
		return nil, apperror.Conflict("article", id+" (operation in progress)")
	}
	defer s.inflight.end(opUpdating, id)

	article, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	article.Published = !article.Published
	if err := s.articles.SetPublished(ctx, id, article.Published); err != nil {
		article.Published = !article.Published
		s.logger.Error().Err(err).Str("articleID", id).Msg("publish toggle failed, reverted")
		return article, fmt.Errorf("toggling publish on %s: %w", id, err)
	}

	s.logger.Info().Str("articleID", id).Bool("published", article.Published).Msg("publish toggled")
	s.invalidate(ctx, article.AuthorName)
	return article, nil
}

// Delete removes the article. It shares TogglePublish's in-flight guard.
func (s *ArticleService) Delete(ctx context.Context, ownerID, id string) error {
	if !s.inflight.begin(opDeleting, id) {
		return apperror.Conflict("article", id+" (operation in progress)")
	}
	defer s.inflight.end(opDeleting, id)

	article, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if err := s.articles.DeleteArticle(ctx, id); err != nil {
		return fmt.Errorf("deleting article %s: %w", id, err)
	}

	s.logger.Info().Str("articleID", id).Str("author", article.AuthorName).Msg("article deleted")
	s.invalidate(ctx, article.AuthorName)
	return nil
}

// ListForOwner returns all of the owner's articles, drafts included.
func (s *ArticleService) ListForOwner(ctx context.Context, ownerID string) ([]model.Article, error) {
	owner, err := s.owner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.articles.ListByAuthor(ctx, owner.Username, false)
}

// ListPublishedByAuthor is the public list behind the RSS feed. Usernames
// are stored lowercase, so the lookup is lowercased too.
func (s *ArticleService) ListPublishedByAuthor(ctx context.Context, username string) ([]model.Article, error) {
	return s.articles.ListByAuthor(ctx, strings.ToLower(username), true)
}

// Discover lists recent published articles from every author.
func (s *ArticleService) Discover(ctx context.Context, opts repository.ListOptions) ([]model.Article, error) {
	return s.articles.ListPublished(ctx, opts)
}

// InFlight returns copies of the IDs with a publish toggle (updating) or a
// delete (deleting) in progress.
func (s *ArticleService) InFlight() (updating, deleting map[string]bool) {
	return s.inflight.snapshot()
}

func (s *ArticleService) owner(ctx context.Context, ownerID string) (*model.UserData, error) {
	if ownerID == "" {
		return nil, apperror.Unauthorized("sign in to manage articles")
	}
	owner, err := s.users.GetUserByID(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading owner %s: %w", ownerID, err)
	}
	return owner, nil
}

// owned loads the article and checks ownerID wrote it.
func (s *ArticleService) owned(ctx context.Context, ownerID, id string) (*model.Article, error) {
	owner, err := s.owner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	article, err := s.articles.GetArticle(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.AuthorName != owner.Username {
		return nil, apperror.Forbidden("only the author can change this article")
	}
	return article, nil
}

func (s *ArticleService) invalidate(ctx context.Context, username string) {
	invalidateProfile(ctx, s.pages, s.logger, username)
}
